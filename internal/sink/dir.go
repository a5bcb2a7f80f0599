package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ugorji/go/codec"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
)

// dirSink writes each record to <path>/<kind>_<uuid>.<ext>.
type dirSink struct {
	path   string
	ext    string
	handle codec.Handle
}

func NewDir(cfg config.DirConfig) (Sink, error) {
	d := &dirSink{path: cfg.Path}
	switch cfg.Format {
	case "", "json":
		jh := &codec.JsonHandle{}
		jh.Indent = 2
		jh.HTMLCharsAsIs = true
		d.handle, d.ext = jh, "json"
	case "msgpack":
		mh := &codec.MsgpackHandle{}
		mh.WriteExt = true
		d.handle, d.ext = mh, "msgpack"
	default:
		return nil, fmt.Errorf("dir sink: unknown format %q", cfg.Format)
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("dir sink: %w", err)
	}
	return d, nil
}

func (d *dirSink) Name() string { return "dir" }

// FileName is the scrape-dir name of rec, e.g. bill_<uuid>.json.
func (d *dirSink) FileName(rec model.Record) string {
	id := rec.RecordID()
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
	}
	return rec.Kind() + "_" + id + "." + d.ext
}

func (d *dirSink) Push(ctx context.Context, envs []model.Envelope) error {
	for _, e := range envs {
		if err := ctx.Err(); err != nil {
			return err
		}
		var buf []byte
		if err := codec.NewEncoderBytes(&buf, d.handle).Encode(e.Record); err != nil {
			return fmt.Errorf("dir sink: encode %s: %w", e.Record.RecordID(), err)
		}
		if err := os.WriteFile(filepath.Join(d.path, d.FileName(e.Record)), buf, 0o644); err != nil {
			return fmt.Errorf("dir sink: %w", err)
		}
	}
	return nil
}
