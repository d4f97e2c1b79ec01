package query

import (
	"context"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// Scan defaults.
const (
	DefaultPageSize    = 500
	DefaultScanWorkers = 4
)

// ScanOptions configures Scan.
type ScanOptions struct {
	PageSize int // rows per list call
	Workers  int // concurrent list calls

	// KeyColumn names an integer column identifying rows. When set, rows
	// whose key was already seen on an earlier page are dropped, which
	// happens when rows shift between pages during the scan.
	KeyColumn string
}

// Scan fetches every row selected by spec by counting first and then
// listing pages concurrently. Pages are assembled in order. spec.Limit and
// spec.Offset bound the scanned window as in List.
//
// Scan is a convenience on top of Count and List; each page is a separate
// round trip and the result is not a consistent snapshot.
func (e *Engine) Scan(ctx context.Context, spec Spec, opts ScanOptions) (*ResultTable, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultScanWorkers
	}
	if e.schema.Paging == PagingNone {
		return nil, &QueryError{Table: e.schema.Table, Reason: "table does not support paging"}
	}
	if spec.Limit < 0 || spec.Offset < 0 {
		// Let List produce the error without sending anything.
		return e.List(ctx, spec)
	}

	cols, err := e.columns(spec.Fields)
	if err != nil {
		return nil, err
	}
	keyIdx := -1
	if opts.KeyColumn != "" {
		for i, c := range cols {
			if c.Name == opts.KeyColumn {
				keyIdx = i
			}
		}
		if keyIdx < 0 || cols[keyIdx].Type != rrtype.Integer {
			return nil, &QueryError{Table: e.schema.Table, Column: opts.KeyColumn, Reason: "key column must be a selected integer column"}
		}
	}

	total, err := e.Count(ctx, spec.Selector)
	if err != nil {
		return nil, err
	}
	total -= spec.Offset
	if spec.Limit > 0 && spec.Limit < total {
		total = spec.Limit
	}
	if total <= 0 {
		return &ResultTable{Columns: cols, Rows: []Row{}}, nil
	}

	pages := (total + opts.PageSize - 1) / opts.PageSize
	results := make([][]Row, pages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := 0; i < pages; i++ {
		page := spec
		page.Offset = spec.Offset + i*opts.PageSize
		page.Limit = min(opts.PageSize, total-i*opts.PageSize)

		g.Go(func() error {
			t, err := e.List(gctx, page)
			if err != nil {
				return err
			}
			results[i] = t.Rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, total)
	seen := roaring64.New()
	dropped := 0
	for _, page := range results {
		for _, row := range page {
			if keyIdx >= 0 {
				if k, ok := row[keyIdx].AsInt(); ok && k >= 0 {
					if !seen.CheckedAdd(uint64(k)) {
						dropped++
						continue
					}
				}
			}
			rows = append(rows, row)
		}
	}

	e.ev.Logger().Debug("query scan",
		slog.String("table", e.schema.Table),
		slog.Int("pages", pages),
		slog.Int("rows", len(rows)),
		slog.Int("duplicates", dropped),
	)
	return &ResultTable{Columns: cols, Rows: rows}, nil
}

// KeyFor returns column if it is an integer column of s and selected by
// fields (every column when fields is empty), and "" otherwise. The result
// suits ScanOptions.KeyColumn.
func (s *Schema) KeyFor(column string, fields []string) string {
	c, ok := s.Column(column)
	if !ok || c.Type != rrtype.Integer {
		return ""
	}
	if len(fields) == 0 {
		return c.Name
	}
	for _, f := range fields {
		if f == c.Name {
			return c.Name
		}
	}
	return ""
}
