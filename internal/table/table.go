package table

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"hashdrop/internal/digest"
	"hashdrop/internal/dupes"
	"hashdrop/internal/metadata"
)

var (
	// ErrDuplicatePath is returned when a path is inserted twice in a batch.
	ErrDuplicatePath = errors.New("path already in table")
	// ErrUnknownPath is returned for a digest result with no record.
	ErrUnknownPath = errors.New("path not in table")
	// ErrDisabledAlgorithm is returned for a digest result of an algorithm
	// the batch did not enable.
	ErrDisabledAlgorithm = errors.New("algorithm not enabled for this batch")
)

// Table is the authoritative record set of the current batch. It has no
// locking: exactly one goroutine owns it and everyone else reads
// snapshots.
type Table struct {
	algorithms []digest.Algorithm
	enabled    map[digest.Algorithm]bool
	scanned    bool

	records map[string]*metadata.Record
	byRow   map[int]string
	rows    []int // sorted

	index          *dupes.Index
	hideDuplicates bool
	search         Search
	searchRE       *regexp.Regexp
}

// New creates an empty table for the given algorithms.
func New(algs []digest.Algorithm, scanned bool) *Table {
	t := &Table{}
	t.Reset(algs, scanned)
	return t
}

// Reset clears all records and duplicate state for a new batch. The
// search and filtering toggles are kept.
func (t *Table) Reset(algs []digest.Algorithm, scanned bool) {
	t.algorithms = append([]digest.Algorithm(nil), algs...)
	t.enabled = make(map[digest.Algorithm]bool, len(algs))
	for _, a := range algs {
		t.enabled[a] = true
	}
	t.scanned = scanned
	t.records = make(map[string]*metadata.Record)
	t.byRow = make(map[int]string)
	t.rows = nil

	cfg := dupes.NewConfig(algs...)
	if t.index == nil {
		t.index = dupes.NewIndex(cfg)
	} else {
		t.index.Reconfigure(cfg)
	}
}

// Algorithms returns the enabled algorithms.
func (t *Table) Algorithms() []digest.Algorithm {
	return append([]digest.Algorithm(nil), t.algorithms...)
}

// Scanned reports whether content scanning was part of the batch.
func (t *Table) Scanned() bool {
	return t.scanned
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Insert adds a record. Its Row must be unique; rows are expected to be
// assigned in discovery order.
func (t *Table) Insert(rec metadata.Record) error {
	if _, ok := t.records[rec.Path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, rec.Path)
	}
	if other, ok := t.byRow[rec.Row]; ok {
		return fmt.Errorf("row %d already used by %s", rec.Row, other)
	}

	r := rec.Clone()
	if r.Digests == nil {
		r.Digests = make(map[digest.Algorithm]string)
	}
	for alg := range r.Digests {
		if !t.enabled[alg] {
			delete(r.Digests, alg)
		}
	}

	t.records[r.Path] = &r
	t.byRow[r.Row] = r.Path

	i := sort.SearchInts(t.rows, r.Row)
	t.rows = append(t.rows, 0)
	copy(t.rows[i+1:], t.rows[i:])
	t.rows[i] = r.Row

	t.index.Set(r.Row, r.Digests)
	return nil
}

// ApplyDigest merges one digest result into its record.
func (t *Table) ApplyDigest(path string, alg digest.Algorithm, value string) error {
	if !t.enabled[alg] {
		return fmt.Errorf("%w: %s", ErrDisabledAlgorithm, alg)
	}
	r, ok := t.records[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	r.Digests[alg] = value
	t.index.Set(r.Row, r.Digests)
	return nil
}

// Remove deletes the records for paths and returns how many existed.
func (t *Table) Remove(paths ...string) int {
	removed := make(map[int]bool)
	for _, p := range paths {
		r, ok := t.records[p]
		if !ok {
			continue
		}
		t.index.Remove(r.Row)
		delete(t.byRow, r.Row)
		delete(t.records, p)
		removed[r.Row] = true
	}
	if len(removed) == 0 {
		return 0
	}

	kept := t.rows[:0]
	for _, row := range t.rows {
		if !removed[row] {
			kept = append(kept, row)
		}
	}
	t.rows = kept
	return len(removed)
}

// RemoveRows deletes records by row number.
func (t *Table) RemoveRows(rows ...int) int {
	paths := make([]string, 0, len(rows))
	for _, row := range rows {
		if p, ok := t.byRow[row]; ok {
			paths = append(paths, p)
		}
	}
	return t.Remove(paths...)
}

// Get returns a copy of the record for path.
func (t *Table) Get(path string) (metadata.Record, bool) {
	r, ok := t.records[path]
	if !ok {
		return metadata.Record{}, false
	}
	return r.Clone(), true
}

// SetHideDuplicates toggles duplicate filtering. Enabling it while no
// duplicates exist is allowed; it simply hides nothing.
func (t *Table) SetHideDuplicates(hide bool) {
	t.hideDuplicates = hide
}

// HideDuplicates reports whether duplicate filtering is on.
func (t *Table) HideDuplicates() bool {
	return t.hideDuplicates
}

// SetSearch installs a search filter. An invalid pattern is rejected and
// the previous filter stays in place.
func (t *Table) SetSearch(s Search) error {
	re, err := s.compile()
	if err != nil {
		return err
	}
	t.search = s
	t.searchRE = re
	return nil
}

// CurrentSearch returns the active search filter.
func (t *Table) CurrentSearch() Search {
	return t.search
}

// Columns returns the visible columns.
func (t *Table) Columns() []Column {
	return columns(t.algorithms, t.scanned)
}

// Highlight returns the duplicate color for a row.
func (t *Table) Highlight(row int) (dupes.Color, bool) {
	return t.index.Highlight(row)
}

// View is one row as presented to a reader.
type View struct {
	metadata.Record
	Color     *dupes.Color `json:"color,omitempty"`
	Duplicate bool         `json:"duplicate"`
}

func (t *Table) view(r *metadata.Record) View {
	v := View{Record: r.Clone()}
	if c, ok := t.index.Highlight(r.Row); ok {
		v.Color = &c
		v.Duplicate = true
	}
	return v
}

func (t *Table) visible(r *metadata.Record, cols []Column) bool {
	if t.hideDuplicates && t.index.Hidden(r.Row) {
		return false
	}
	if t.searchRE == nil {
		return true
	}
	for _, c := range cols {
		if t.searchRE.MatchString(c.Value(*r)) {
			return true
		}
	}
	return false
}

// Visible returns the rows that pass duplicate filtering and the search
// filter, in row order.
func (t *Table) Visible() []View {
	cols := t.Columns()
	out := make([]View, 0, len(t.rows))
	for _, row := range t.rows {
		r := t.records[t.byRow[row]]
		if t.visible(r, cols) {
			out = append(out, t.view(r))
		}
	}
	return out
}

// All returns every row regardless of filters, in row order.
func (t *Table) All() []View {
	out := make([]View, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, t.view(t.records[t.byRow[row]]))
	}
	return out
}

// Group is a duplicate group with its member paths in row order.
type Group struct {
	dupes.Group
	Paths []string `json:"paths"`
}

// Groups returns the duplicate groups ordered by ordinal.
func (t *Table) Groups() []Group {
	groups := t.index.Groups()
	out := make([]Group, len(groups))
	for i, g := range groups {
		paths := make([]string, len(g.Rows))
		for j, row := range g.Rows {
			paths[j] = t.byRow[row]
		}
		out[i] = Group{Group: g, Paths: paths}
	}
	return out
}

// Stats summarises the table.
type Stats struct {
	Total            int  `json:"total"`
	Visible          int  `json:"visible"`
	Filtered         int  `json:"filtered"`
	Groups           int  `json:"groups"`
	DuplicateRecords int  `json:"duplicateRecords"`
	FilterAvailable  bool `json:"filterAvailable"`
	HideDuplicates   bool `json:"hideDuplicates"`
}

// Stats counts visible and filtered-out rows.
func (t *Table) Stats() Stats {
	cols := t.Columns()
	visible := 0
	for _, row := range t.rows {
		if t.visible(t.records[t.byRow[row]], cols) {
			visible++
		}
	}

	dupRecords := 0
	for _, g := range t.index.Groups() {
		dupRecords += len(g.Rows)
	}

	return Stats{
		Total:            len(t.rows),
		Visible:          visible,
		Filtered:         len(t.rows) - visible,
		Groups:           t.index.GroupCount(),
		DuplicateRecords: dupRecords,
		FilterAvailable:  t.index.FilterAvailable(),
		HideDuplicates:   t.hideDuplicates,
	}
}

// String renders the statistics line shown under the table.
func (s Stats) String() string {
	if s.Filtered == 0 {
		return fmt.Sprintf("%d", s.Visible)
	}
	return fmt.Sprintf("%d (%d filtered)", s.Visible, s.Filtered)
}
