package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/gridbt/market"
)

// ReadFile loads bars from a .csv or .parquet file.
func ReadFile(path string) ([]market.Bar, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSVFile(path)
	case ".parquet":
		return ReadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported bar file %q (want .csv or .parquet)", path)
	}
}

// Import reads each file and upserts its bars into w. It returns the number
// of bars written.
func Import(ctx context.Context, w Writer, paths ...string) (int, error) {
	total := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		bars, err := ReadFile(p)
		if err != nil {
			return total, err
		}
		n, err := w.Upsert(ctx, bars)
		if err != nil {
			return total, fmt.Errorf("import %s: %w", p, err)
		}
		total += n
	}
	return total, nil
}
