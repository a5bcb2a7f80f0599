package source

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// xmlNode is a minimal element tree with the handful of queries the floor
// parser needs: descendants by name, attribute filters and string value.
type xmlNode struct {
	Name    string
	Attr    map[string]string
	Kids    []*xmlNode
	content []any // string or *xmlNode, in document order
}

func parseXMLTree(body []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity

	var root *xmlNode
	var stack []*xmlNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{Name: t.Name.Local, Attr: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.Attr[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Kids = append(parent.Kids, n)
				parent.content = append(parent.content, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.content = append(top.content, string(t))
			}
		}
	}
	if root == nil {
		return nil, errors.New("empty document")
	}
	return root, nil
}

// Text is the concatenated character data of n and its descendants.
func (n *xmlNode) Text() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *xmlNode) writeText(b *strings.Builder) {
	for _, c := range n.content {
		switch v := c.(type) {
		case string:
			b.WriteString(v)
		case *xmlNode:
			v.writeText(b)
		}
	}
}

// Children returns direct children named name.
func (n *xmlNode) Children(name string) []*xmlNode {
	var out []*xmlNode
	for _, k := range n.Kids {
		if k.Name == name {
			out = append(out, k)
		}
	}
	return out
}

// Child returns the first direct child named name, or nil.
func (n *xmlNode) Child(name string) *xmlNode {
	for _, k := range n.Kids {
		if k.Name == name {
			return k
		}
	}
	return nil
}

// Find returns the descendants of n (n included) named name, in document order.
func (n *xmlNode) Find(name string) []*xmlNode {
	var out []*xmlNode
	n.walk(func(e *xmlNode) {
		if e.Name == name {
			out = append(out, e)
		}
	})
	return out
}

// First returns the first descendant named name, or nil.
func (n *xmlNode) First(name string) *xmlNode {
	if found := n.Find(name); len(found) > 0 {
		return found[0]
	}
	return nil
}

// Links returns descendant <a> elements whose rel attribute equals rel.
func (n *xmlNode) Links(rel string) []*xmlNode {
	var out []*xmlNode
	for _, a := range n.Find("a") {
		if a.Attr["rel"] == rel {
			out = append(out, a)
		}
	}
	return out
}

func (n *xmlNode) walk(fn func(*xmlNode)) {
	fn(n)
	for _, k := range n.Kids {
		k.walk(fn)
	}
}
