package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// fetchModes are the unitedstates/congress tasks run before a bill walk, in order.
var fetchModes = []string{"bills", "bill_versions"}

// CommandRunner runs one external command to completion in dir.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) error

func execRunner(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

var errFetchNotConfigured = errors.New("set congress_path/US_CONGRESS_PATH and python_bin/US_VIRTENV_PYTHON_BIN_PATH to run the unitedstates/congress scraper")

// RunFetch runs "<python> <congress>/run bills" then "... bill_versions" in
// the data dir. Failures are returned, never fatal: the walk proceeds with
// whatever is already on disk.
func (s *BillSource) RunFetch(ctx context.Context) []error {
	if s.cfg.PythonBin == "" || s.cfg.CongressPath == "" {
		return []error{itemErr(ErrConfig, "fetch", errFetchNotConfigured)}
	}
	script := filepath.Join(s.cfg.CongressPath, "run")
	var errs []error
	for _, mode := range fetchModes {
		if err := s.run(ctx, s.cfg.DataDir, s.cfg.PythonBin, script, mode); err != nil {
			errs = append(errs, itemErr(ErrIO, "fetch "+mode, fmt.Errorf("%s %s %s: %w", s.cfg.PythonBin, script, mode, err)))
		}
	}
	return errs
}
