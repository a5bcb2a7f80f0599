package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// FloorState is the last floor document processed to completion.
type FloorState struct {
	LastDay    string `json:"last_day"`    // document URL or YYYYMMDD
	LastDigest string `json:"last_digest"` // hex sha256 of the body
}

// Unchanged reports whether body for day is the document already processed.
func (s FloorState) Unchanged(day string, body []byte) bool {
	return s.LastDay == day && s.LastDigest == Digest(body)
}

func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// LoadFloorState returns the zero state when path does not exist yet.
func LoadFloorState(path string) (FloorState, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return FloorState{}, nil
	}
	if err != nil {
		return FloorState{}, err
	}
	var s FloorState
	return s, json.Unmarshal(b, &s)
}

func SaveFloorState(path string, s FloorState) error {
	b, err := json.MarshalIndent(s, "", " ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
