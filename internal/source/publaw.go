package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"civicdata/us-ingester/internal/refdata"
)

var lawCongress = regexp.MustCompile(`(?i)PLAW-(\d{1,3})`)

// lawDetailURL maps ".../PLAW-113publ3/html/PLAW-113publ3.htm" to
// ".../PLAW-113publ3/content-detail.html".
func lawDetailURL(href string) string {
	parts := strings.Split(href, "/")
	if len(parts) > 2 {
		parts = parts[:len(parts)-2]
	} else {
		parts = parts[:0]
	}
	return strings.Join(parts, "/") + "/content-detail.html"
}

// asciiFold strips accents and compatibility forms, e.g. NBSP to space.
func asciiFold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFKC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// htmlText is the string value of the whole document.
func htmlText(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String(), nil
}

// lawHref resolves a package-relative href such as
// "PLAW-113publ3/html/PLAW-113publ3.htm" against law_base_url.
func (s *FloorSource) lawHref(href string) string {
	if strings.Contains(href, "://") || s.cfg.LawBaseURL == "" {
		return href
	}
	return strings.TrimRight(s.cfg.LawBaseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

var errNoBillCitation = errors.New("no bill citation on law detail page")

// lawBill resolves a public-law link to the bill it enacted, as pseudo-id
// fields {congress, identifier}.
func (s *FloorSource) lawBill(ctx context.Context, href string) (map[string]string, error) {
	url := lawDetailURL(s.lawHref(href))
	m := lawCongress.FindStringSubmatch(url)
	if m == nil {
		return nil, itemErr(ErrLookup, url, errors.New("no PLAW congress in url"))
	}
	resp, err := s.lawGet.Get(ctx, url)
	if err != nil {
		return nil, itemErr(ErrNetwork, url, err)
	}
	if !resp.OK() {
		return nil, itemErr(ErrNetwork, url, fmt.Errorf("status %d", resp.StatusCode))
	}
	text, err := htmlText(resp.Body)
	if err != nil {
		return nil, itemErr(ErrParse, url, err)
	}
	code := refdata.BillRegex.FindString(asciiFold(text))
	if code == "" {
		return nil, itemErr(ErrLookup, url, errNoBillCitation)
	}
	return map[string]string{"congress": m[1], "identifier": refdata.BillCodeToID(code)}, nil
}
