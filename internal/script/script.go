// Package script runs YAML write scripts against a database: each step is
// one insert, update, delete or lookup batch.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tuannm99/novakey/internal/dberr"
	"github.com/tuannm99/novakey/internal/engine"
	"github.com/tuannm99/novakey/internal/record"
)

var ErrBadStep = errors.New("script: invalid step")

type Script struct {
	Steps []Step `yaml:"steps"`
}

type Step struct {
	Op      string           `yaml:"op"`
	Table   string           `yaml:"table"`
	Rows    []map[string]any `yaml:"rows"`
	Updates []UpdateStep     `yaml:"updates"`
	IDs     []uint64         `yaml:"ids"`
	Key     []any            `yaml:"key"`

	// Expect is "ok" or an error category such as "constraint". Empty means
	// no expectation.
	Expect string `yaml:"expect"`
}

// UpdateStep sets columns of an existing row; unset columns keep their
// current value.
type UpdateStep struct {
	ID  uint64         `yaml:"id"`
	Set map[string]any `yaml:"set"`
}

func Parse(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("script: decode: %w", err)
	}
	for i, st := range s.Steps {
		if st.Table == "" {
			return nil, fmt.Errorf("%w: step %d has no table", ErrBadStep, i+1)
		}
		switch strings.ToLower(st.Op) {
		case "insert", "update", "delete", "lookup":
		default:
			return nil, fmt.Errorf("%w: step %d: unknown op %q", ErrBadStep, i+1, st.Op)
		}
	}
	return &s, nil
}

// Outcome is the result of one step.
type Outcome struct {
	Step    int
	Op      string
	Table   string
	Err     error
	Message string

	// Unexpected is set when the step carried an Expect that did not match.
	Unexpected bool
}

func (o Outcome) String() string {
	status := "ok"
	if o.Err != nil {
		status = "rejected"
		if cat := dberr.GetCategory(o.Err); cat != "" {
			status += " [" + string(cat) + "]"
		}
		status += ": " + o.Err.Error()
	}
	line := fmt.Sprintf("%3d %-6s %-16s %s", o.Step, o.Op, o.Table, status)
	if o.Message != "" {
		line += " (" + o.Message + ")"
	}
	if o.Unexpected {
		line += " UNEXPECTED"
	}
	return line
}

// Run applies every step in order, printing one line per step to w. A
// failing step does not stop the script.
func Run(ctx context.Context, db *engine.Database, s *Script, w io.Writer) ([]Outcome, error) {
	out := make([]Outcome, 0, len(s.Steps))
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		o := Outcome{Step: i + 1, Op: strings.ToLower(st.Op), Table: st.Table}
		o.Message, o.Err = apply(ctx, db, st)
		o.Unexpected = !matches(st.Expect, o.Err)
		out = append(out, o)
		if w != nil {
			if _, err := fmt.Fprintln(w, o.String()); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

func matches(expect string, err error) bool {
	switch e := strings.ToUpper(strings.TrimSpace(expect)); e {
	case "":
		return true
	case "OK":
		return err == nil
	default:
		return err != nil && string(dberr.GetCategory(err)) == e
	}
}

func apply(ctx context.Context, db *engine.Database, st Step) (string, error) {
	tbl, err := db.Table(st.Table)
	if err != nil {
		return "", err
	}
	schema := tbl.Schema()

	switch strings.ToLower(st.Op) {
	case "insert":
		payloads := make([]map[string]any, len(st.Rows))
		for i, r := range st.Rows {
			p, err := record.CoercePayload(schema, r)
			if err != nil {
				return "", err
			}
			payloads[i] = p
		}
		ids, err := db.Insert(ctx, st.Table, payloads)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ids=%v", ids), nil

	case "update":
		updates := make([]engine.RowUpdate, len(st.Updates))
		for i, u := range st.Updates {
			cur, err := db.Get(ctx, st.Table, record.RowID(u.ID))
			if err != nil {
				return "", err
			}
			set, err := record.CoercePayload(schema, u.Set)
			if err != nil {
				return "", err
			}
			p := cur.Payload()
			maps.Copy(p, set)
			updates[i] = engine.RowUpdate{ID: cur.ID(), Payload: p}
		}
		if err := db.Update(ctx, st.Table, updates); err != nil {
			return "", err
		}
		return fmt.Sprintf("rows=%d", len(updates)), nil

	case "delete":
		ids := make([]record.RowID, len(st.IDs))
		for i, id := range st.IDs {
			ids[i] = record.RowID(id)
		}
		if err := db.Delete(ctx, st.Table, ids); err != nil {
			return "", err
		}
		return fmt.Sprintf("rows=%d", len(ids)), nil

	case "lookup":
		cols, err := schema.KeyColumns()
		if err != nil {
			return "", err
		}
		if len(cols) != len(st.Key) {
			return "", fmt.Errorf("%w: key needs %d values, got %d", ErrBadStep, len(cols), len(st.Key))
		}
		vals := make([]any, len(cols))
		for i, c := range cols {
			v, err := record.Coerce(c, st.Key[i])
			if err != nil {
				return "", err
			}
			vals[i] = v
		}
		row, found, err := db.LookupByKey(ctx, st.Table, vals...)
		if err != nil {
			return "", err
		}
		if !found {
			return "not found", nil
		}
		return fmt.Sprintf("id=%d %v", row.ID(), row.Payload()), nil
	}
	return "", fmt.Errorf("%w: unknown op %q", ErrBadStep, st.Op)
}
