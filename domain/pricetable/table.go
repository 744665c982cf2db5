package pricetable

import (
	"fmt"
	"math"

	"gopairs/domain/core"
)

// Series is one named column of aligned observations
type Series struct {
	ID     core.InstrumentID `json:"id"`
	Values []float64         `json:"values"`
}

// Table is the canonical input to both screeners: an ordered set of
// equal-length price series, one per instrument. Observation i of every
// column refers to the same time step.
//
// A Table is immutable once built. Columns are copied in on construction and
// the slices handed out by Column must be treated as read-only, which is what
// makes concurrent per-pair work over a shared Table safe.
type Table struct {
	ids     []core.InstrumentID
	index   map[core.InstrumentID]int
	columns [][]float64
	rows    int
}

// New builds a Table from series in the given column order
func New(series ...Series) (*Table, error) {
	b := NewBuilder()
	for _, s := range series {
		b.AddColumn(s.ID, s.Values)
	}
	return b.Build()
}

// Builder accumulates columns and validates them once in Build
type Builder struct {
	series []Series
}

// NewBuilder creates an empty table builder
func NewBuilder() *Builder {
	return &Builder{}
}

// AddColumn appends a column. Values are copied.
func (b *Builder) AddColumn(id core.InstrumentID, values []float64) *Builder {
	cp := make([]float64, len(values))
	copy(cp, values)
	b.series = append(b.series, Series{ID: id, Values: cp})
	return b
}

// Build validates the accumulated columns and returns the Table
func (b *Builder) Build() (*Table, error) {
	t := &Table{
		ids:     make([]core.InstrumentID, 0, len(b.series)),
		index:   make(map[core.InstrumentID]int, len(b.series)),
		columns: make([][]float64, 0, len(b.series)),
	}

	for i, s := range b.series {
		if s.ID == "" {
			return nil, core.NewInvalidInputError(fmt.Sprintf("column %d", i), "instrument identifier cannot be empty")
		}
		if _, dup := t.index[s.ID]; dup {
			return nil, core.NewInvalidInputError(s.ID.String(), "duplicate instrument identifier")
		}
		if i == 0 {
			t.rows = len(s.Values)
		} else if len(s.Values) != t.rows {
			return nil, fmt.Errorf("%w: %s has %d observations, %s has %d",
				core.ErrRaggedTable, s.ID, len(s.Values), t.ids[0], t.rows)
		}
		for row, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, core.NewInvalidInputError(s.ID.String(), fmt.Sprintf("non-finite observation at row %d", row))
			}
		}

		t.index[s.ID] = len(t.ids)
		t.ids = append(t.ids, s.ID)
		t.columns = append(t.columns, s.Values)
	}

	return t, nil
}

// IDs returns the instrument identifiers in column order
func (t *Table) IDs() []core.InstrumentID {
	out := make([]core.InstrumentID, len(t.ids))
	copy(out, t.ids)
	return out
}

// ID returns the identifier of column i
func (t *Table) ID(i int) core.InstrumentID {
	return t.ids[i]
}

// Column returns column i. The slice is shared and must not be modified.
func (t *Table) Column(i int) []float64 {
	return t.columns[i]
}

// Lookup returns the column index for an instrument
func (t *Table) Lookup(id core.InstrumentID) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Values returns a copy of the series for an instrument
func (t *Table) Values(id core.InstrumentID) ([]float64, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	out := make([]float64, t.rows)
	copy(out, t.columns[i])
	return out, true
}

// Width returns the number of instruments (columns)
func (t *Table) Width() int {
	return len(t.ids)
}

// Len returns the number of observations per instrument (rows)
func (t *Table) Len() int {
	return t.rows
}

// Pairs enumerates every unordered pair of the table's instruments
func (t *Table) Pairs() []Pair {
	return Pairs(t.ids)
}

// Fingerprint hashes ids and observations so stored runs can be tied back to their input
func (t *Table) Fingerprint() core.Hash {
	f := core.NewFingerprinter()
	for i, id := range t.ids {
		f.Label(id.String())
		f.Floats(t.columns[i])
	}
	return f.Sum()
}
