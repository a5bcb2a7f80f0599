package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is implemented by every normalized entity handed to a sink.
type Record interface {
	Kind() string     // bill, event, person, organization, post, membership
	RecordID() string // ocd-<kind>/<uuid>
	DisplayName() string
	Body() string
}

// Envelope carries a record through post-processing and out to the sinks.
type Envelope struct {
	Source   string // e.g. "bills"
	Record   Record
	Labels   map[string]string // added/derived labels (post-process)
	Observed time.Time
}

// Key is the dedup key of the envelope. It ends in a digest of the record's
// content so a record that changed under the same id is pushed again.
func (e Envelope) Key() string {
	return e.Source + "::" + e.Record.Kind() + "::" + e.Record.RecordID() + "::" + contentDigest(e.Record)
}

func contentDigest(rec Record) string {
	b, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

type Link struct {
	URL       string `json:"url"`
	Note      string `json:"note,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// namespace keeps record ids stable across runs over the same input.
var namespace = uuid.MustParse("6f1c2f7a-5b0e-4d57-9b86-2d1e0c4a8f31")

// NewID derives a deterministic "ocd-<kind>/<uuid>" id from a record's natural key.
func NewID(kind string, key ...string) string {
	return "ocd-" + kind + "/" + uuid.NewSHA1(namespace, []byte(kind+"\x00"+strings.Join(key, "\x00"))).String()
}
