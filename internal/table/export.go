package table

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// EmptyCell is written in place of an empty value.
const EmptyCell = "-"

// WriteTSV writes the visible rows as tab-separated values with a header
// line. Empty cells are written as "-". Tabs and newlines inside values
// are replaced by spaces.
func (t *Table) WriteTSV(w io.Writer) error {
	cols := t.Columns()
	bw := bufio.NewWriter(w)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if _, err := fmt.Fprintln(bw, strings.Join(header, "\t")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cells := make([]string, len(cols))
	for _, v := range t.Visible() {
		for i, c := range cols {
			cells[i] = tsvCell(c.Value(v.Record))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(cells, "\t")); err != nil {
			return fmt.Errorf("failed to write row %d: %w", v.Row, err)
		}
	}
	return bw.Flush()
}

var tsvReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func tsvCell(v string) string {
	if v == "" {
		return EmptyCell
	}
	return tsvReplacer.Replace(v)
}
