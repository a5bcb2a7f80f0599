package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// PseudoID builds a "~{...}" reference for an entity the source does not
// assign an id to. Keys are sorted so equal fields give equal ids.
func PseudoID(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, quote(k)+": "+quote(fields[k]))
	}
	return "~{" + strings.Join(parts, ", ") + "}"
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
