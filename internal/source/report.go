package source

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies why an item was skipped.
type ErrorKind string

const (
	ErrConfig  ErrorKind = "config"
	ErrIO      ErrorKind = "io"
	ErrLookup  ErrorKind = "lookup"
	ErrNetwork ErrorKind = "network"
	ErrParse   ErrorKind = "parse"
)

// ItemError is yielded in place of a record when one item could not be
// produced. Fatal errors end the source's run.
type ItemError struct {
	Kind  ErrorKind
	Item  string // path or url
	Err   error
	Fatal bool
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Item, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

func itemErr(kind ErrorKind, item string, err error) *ItemError {
	return &ItemError{Kind: kind, Item: item, Err: err}
}

func fatalErr(kind ErrorKind, item string, err error) *ItemError {
	return &ItemError{Kind: kind, Item: item, Err: err, Fatal: true}
}

// IsFatal reports whether err ends a source run. Only an *ItemError marked
// Fatal does; anything else is skipped like a parse failure.
func IsFatal(err error) bool {
	var ie *ItemError
	return errors.As(err, &ie) && ie.Fatal
}

// maxReasons bounds how many skip reasons a Report keeps verbatim.
const maxReasons = 20

// Report aggregates one source run.
type Report struct {
	Source  string
	Emitted map[string]int    // by record kind
	Skipped map[ErrorKind]int // by failure kind
	Reasons []string          // first maxReasons skip messages
	Fatal   error
}

func NewReport(source string) *Report {
	return &Report{Source: source, Emitted: map[string]int{}, Skipped: map[ErrorKind]int{}}
}

func (r *Report) Emit(kind string) { r.Emitted[kind]++ }

// Skip records err; errors that are not *ItemError count as parse failures.
func (r *Report) Skip(err error) {
	var ie *ItemError
	if !errors.As(err, &ie) {
		ie = itemErr(ErrParse, "", err)
	}
	r.Skipped[ie.Kind]++
	if len(r.Reasons) < maxReasons {
		r.Reasons = append(r.Reasons, ie.Error())
	}
	if ie.Fatal && r.Fatal == nil {
		r.Fatal = ie
	}
}

func (r *Report) TotalSkipped() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}

func (r *Report) TotalEmitted() int {
	n := 0
	for _, v := range r.Emitted {
		n += v
	}
	return n
}

// String renders e.g. "bills: emitted bill=12; skipped io=1 lookup=2".
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString(r.Source)
	b.WriteString(": emitted")
	b.WriteString(joinCounts(r.Emitted))
	if len(r.Skipped) > 0 {
		sk := make(map[string]int, len(r.Skipped))
		for k, v := range r.Skipped {
			sk[string(k)] = v
		}
		b.WriteString("; skipped")
		b.WriteString(joinCounts(sk))
	}
	if r.Fatal != nil {
		b.WriteString("; fatal: ")
		b.WriteString(r.Fatal.Error())
	}
	return b.String()
}

func joinCounts(m map[string]int) string {
	if len(m) == 0 {
		return " none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%d", k, m[k])
	}
	return b.String()
}
