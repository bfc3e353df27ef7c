package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Dir writes each run as <id>.json, <id>.org and <id>-fills.csv /
// <id>-equity.csv under a directory.
type Dir struct {
	path string
}

func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &Dir{path: path}, nil
}

func (d *Dir) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return fmt.Errorf("record run: empty run id")
	}
	base := filepath.Join(d.path, r.ID)

	if err := writeJSONFile(base+".json", r); err != nil {
		return err
	}
	if err := WriteCSV(r.Report, base+"-fills.csv", base+"-equity.csv"); err != nil {
		return err
	}
	return WriteOrg(base+".org", r)
}

// LoadRun reads back a run written by RecordRun.
func (d *Dir) LoadRun(ctx context.Context, runID string) (Run, error) {
	fh, err := os.Open(filepath.Join(d.path, runID+".json"))
	if os.IsNotExist(err) {
		return Run{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, err
	}
	defer fh.Close()
	return ReadJSON(fh)
}

func (d *Dir) Close() error { return nil }

// Open returns the journal named by kind ("sqlite" or "dir").
func Open(kind, path string) (Journal, error) {
	switch kind {
	case "sqlite":
		return NewSQLite(path)
	case "dir", "csv", "json":
		return NewDir(path)
	default:
		return nil, fmt.Errorf("unknown journal type %q", kind)
	}
}
