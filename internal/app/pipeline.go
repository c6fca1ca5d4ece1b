package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/framekit/framekit/internal/config"
	"github.com/framekit/framekit/internal/frame"
	"github.com/framekit/framekit/internal/ingest"
	"github.com/framekit/framekit/internal/query"
	"github.com/framekit/framekit/internal/render"
	"github.com/framekit/framekit/internal/storage"
	"github.com/framekit/framekit/pkg/types"
)

// Pipeline is one query-mode run: load, optionally restrict and filter, then
// print the frame or an aggregate.
type Pipeline struct {
	// Sources are object keys under the storage root. Several sources are
	// merged in the given order. "-" reads CSV from Stdin.
	Sources []string

	// SQLite and SQL read the frame from a SQLite query instead of Sources.
	SQLite string
	SQL    string

	// Kinds is a comma separated kind list, e.g. "1,4,3".
	Kinds string

	// Select restricts the frame to these labels.
	Select []string

	// Where is a predicate expression such as "PPG >= 25 AND Games < 1400".
	Where string

	// Op is column_op, average, add_rows, count, sum, min, max or avg.
	// Empty prints the frame.
	Op     string
	Labels []string

	Stdin io.Reader
}

// RunPipeline executes p against the configured storage and writes the
// result to w.
func RunPipeline(ctx context.Context, cfg *config.Config, p Pipeline, w io.Writer) error {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	kindList := p.Kinds
	if kindList == "" {
		kindList = cfg.Ingest.Kinds
	}
	kinds, err := types.ParseKinds(kindList)
	if err != nil {
		return fmt.Errorf("invalid kinds: %w", err)
	}

	f, err := p.load(ctx, cfg, kinds)
	if err != nil {
		return err
	}
	log.Printf("app: loaded %d rows, %d columns", f.NumRows(), f.NumColumns())

	if len(p.Select) > 0 {
		if f, err = frame.RestrictColumns(f, p.Select); err != nil {
			return err
		}
	}
	if p.Where != "" {
		if f, err = query.Apply(f, p.Where); err != nil {
			return err
		}
	}

	if p.Op == "" {
		return render.Table(w, f)
	}
	return p.aggregate(f, w)
}

func (p Pipeline) load(ctx context.Context, cfg *config.Config, kinds []types.Kind) (*frame.Frame, error) {
	switch {
	case p.SQLite != "":
		if p.SQL == "" {
			return nil, fmt.Errorf("a SQL query is required with a SQLite source")
		}
		db, err := ingest.OpenSQLite(p.SQLite)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return ingest.ReadQuery(ctx, db, p.SQL, kinds)

	case len(p.Sources) == 1 && p.Sources[0] == "-":
		if p.Stdin == nil {
			return nil, fmt.Errorf("no standard input available")
		}
		return ingest.ReadCSV(p.Stdin, cfg.Delimiter(), kinds)

	case len(p.Sources) > 0:
		store, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		loader := ingest.NewLoader(store, cfg.Delimiter(), cfg.Ingest.Concurrency)
		if len(p.Sources) == 1 {
			return loader.Load(ctx, p.Sources[0], kinds)
		}
		return loader.LoadAll(ctx, p.Sources, kinds)

	default:
		return nil, fmt.Errorf("no source given")
	}
}

func (p Pipeline) aggregate(f *frame.Frame, w io.Writer) error {
	op := strings.ToLower(p.Op)
	labels := p.Labels

	switch op {
	case "column_op":
		if len(labels) == 0 {
			return fmt.Errorf("column_op needs at least one label")
		}
		values, err := frame.ColumnOp(f, labels)
		if err != nil {
			return err
		}
		return render.Values(w, strings.Join(labels, ","), values)

	case "add_rows":
		if len(labels) != 2 {
			return fmt.Errorf("add_rows needs exactly two labels, got %d", len(labels))
		}
		values, err := frame.AddRows(f, labels[0], labels[1])
		if err != nil {
			return err
		}
		return render.Values(w, labels[0]+"+"+labels[1], values)
	}

	if len(labels) != 1 {
		return fmt.Errorf("%s needs exactly one label, got %d", op, len(labels))
	}

	var (
		v   float64
		err error
	)
	if op == "average" {
		v, err = frame.Average(f, labels[0])
	} else {
		var typ frame.AggregateType
		if typ, err = frame.ParseAggregateType(op); err == nil {
			v, err = frame.Aggregate(f, labels[0], typ)
		}
	}
	if err != nil {
		return err
	}
	return render.Scalar(w, op+"("+labels[0]+")", v)
}
