package table

import (
	"hashdrop/internal/digest"
	"hashdrop/internal/metadata"
)

// Column is one exported or searchable column.
type Column struct {
	Name  string
	Value func(metadata.Record) string
}

// columns lists the visible columns for the enabled algorithms, with the
// match column only when the batch was scanned.
func columns(algs []digest.Algorithm, scanned bool) []Column {
	cols := []Column{
		{Name: "Filename", Value: func(r metadata.Record) string { return r.Filename }},
	}

	enabled := make(map[digest.Algorithm]bool, len(algs))
	for _, a := range algs {
		enabled[a] = true
	}
	for _, alg := range digest.All() {
		if !enabled[alg] {
			continue
		}
		a := alg
		cols = append(cols, Column{Name: a.Label(), Value: func(r metadata.Record) string { return r.Digests[a] }})
	}

	if scanned {
		cols = append(cols, Column{Name: "Matches", Value: func(r metadata.Record) string { return r.Matches() }})
	}

	return append(cols,
		Column{Name: "Size", Value: func(r metadata.Record) string { return r.SizeText() }},
		Column{Name: "Extension", Value: func(r metadata.Record) string { return r.Extension }},
		Column{Name: "MIME Type", Value: func(r metadata.Record) string { return r.MIMEType }},
		Column{Name: "Type", Value: func(r metadata.Record) string { return r.TypeDescriptor }},
		Column{Name: "Directory", Value: func(r metadata.Record) string { return r.DirectoryLabel }},
		Column{Name: "Path", Value: func(r metadata.Record) string { return r.Path }},
	)
}
