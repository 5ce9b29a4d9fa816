package dupes

import (
	"sort"
	"strings"

	"hashdrop/internal/digest"
)

// Config selects which digest identifies a file. The identity of a record
// is its value for the first algorithm in Precedence that is enabled and
// holds a real digest.
type Config struct {
	Enabled    map[digest.Algorithm]bool
	Precedence []digest.Algorithm
}

// DefaultPrecedence is strongest first.
func DefaultPrecedence() []digest.Algorithm {
	return []digest.Algorithm{digest.SHA256, digest.SHA1, digest.MD5}
}

// NewConfig enables algs with the default precedence.
func NewConfig(algs ...digest.Algorithm) Config {
	enabled := make(map[digest.Algorithm]bool, len(algs))
	for _, a := range algs {
		enabled[a] = true
	}
	return Config{Enabled: enabled, Precedence: DefaultPrecedence()}
}

// IsPlaceholder reports whether a digest cell holds no usable value: empty,
// the display dash, or an error-tagged value.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "-" || digest.IsErrorValue(v)
}

// Identity picks the identity algorithm and value from a record's digests.
func (c Config) Identity(digests map[digest.Algorithm]string) (digest.Algorithm, string, bool) {
	for _, alg := range c.Precedence {
		if !c.Enabled[alg] {
			continue
		}
		if v := digests[alg]; !IsPlaceholder(v) {
			return alg, v, true
		}
	}
	return "", "", false
}

// Group is a set of at least two rows sharing an identity value.
type Group struct {
	Algorithm digest.Algorithm `json:"algorithm"`
	Value     string           `json:"value"`
	Ordinal   int              `json:"ordinal"`
	Color     Color            `json:"color"`
	Rows      []int            `json:"rows"`
}

// bucket holds every row with one identity value. It is a duplicate group
// only while it has two or more rows.
type bucket struct {
	key  string
	alg  digest.Algorithm
	val  string
	rows []int // sorted
}

func (b *bucket) insert(row int) {
	i := sort.SearchInts(b.rows, row)
	b.rows = append(b.rows, 0)
	copy(b.rows[i+1:], b.rows[i:])
	b.rows[i] = row
}

func (b *bucket) remove(row int) {
	i := sort.SearchInts(b.rows, row)
	if i < len(b.rows) && b.rows[i] == row {
		b.rows = append(b.rows[:i], b.rows[i+1:]...)
	}
}

// Index tracks duplicate groups incrementally as rows are inserted,
// updated and removed. It is batch-scoped: Reset clears everything,
// including color assignments. Index is not safe for concurrent use; the
// record table owns it.
type Index struct {
	config  Config
	rowKey  map[int]string
	buckets map[string]*bucket
	// ordinals survive a group dissolving so its color is stable for the
	// rest of the batch
	ordinals    map[string]int
	nextOrdinal int
	groups      int
}

// NewIndex creates an empty index.
func NewIndex(config Config) *Index {
	if len(config.Precedence) == 0 {
		config.Precedence = DefaultPrecedence()
	}
	idx := &Index{config: config}
	idx.Reset()
	return idx
}

// Config returns the identity configuration.
func (idx *Index) Config() Config {
	return idx.config
}

// Reset forgets all rows, groups and colors.
func (idx *Index) Reset() {
	idx.rowKey = make(map[int]string)
	idx.buckets = make(map[string]*bucket)
	idx.ordinals = make(map[string]int)
	idx.nextOrdinal = 0
	idx.groups = 0
}

// Reconfigure installs a new identity configuration and clears the index.
func (idx *Index) Reconfigure(config Config) {
	if len(config.Precedence) == 0 {
		config.Precedence = DefaultPrecedence()
	}
	idx.config = config
	idx.Reset()
}

// Set records the current digests of row, moving it between groups if its
// identity changed. Rows without an identity leave every group.
func (idx *Index) Set(row int, digests map[digest.Algorithm]string) {
	alg, val, ok := idx.config.Identity(digests)
	key := ""
	if ok {
		key = string(alg) + ":" + val
	}

	old, had := idx.rowKey[row]
	if had && old == key {
		return
	}
	if had {
		idx.detach(row, old)
	}
	if !ok {
		return
	}

	idx.rowKey[row] = key
	b := idx.buckets[key]
	if b == nil {
		b = &bucket{key: key, alg: alg, val: val}
		idx.buckets[key] = b
	}
	b.insert(row)

	if len(b.rows) == 2 {
		idx.groups++
		if _, seen := idx.ordinals[key]; !seen {
			idx.ordinals[key] = idx.nextOrdinal
			idx.nextOrdinal++
		}
	}
}

// Remove drops row from the index.
func (idx *Index) Remove(row int) {
	if key, had := idx.rowKey[row]; had {
		idx.detach(row, key)
	}
}

func (idx *Index) detach(row int, key string) {
	delete(idx.rowKey, row)
	b := idx.buckets[key]
	if b == nil {
		return
	}
	b.remove(row)
	switch len(b.rows) {
	case 1:
		idx.groups--
	case 0:
		delete(idx.buckets, key)
	}
}

func (idx *Index) groupOf(row int) *bucket {
	key, ok := idx.rowKey[row]
	if !ok {
		return nil
	}
	b := idx.buckets[key]
	if b == nil || len(b.rows) < 2 {
		return nil
	}
	return b
}

// Highlight returns the display color of row if it belongs to a duplicate
// group.
func (idx *Index) Highlight(row int) (Color, bool) {
	b := idx.groupOf(row)
	if b == nil {
		return Color{}, false
	}
	return ColorFor(idx.ordinals[b.key]), true
}

// Hidden reports whether duplicate filtering hides row: every member of a
// group except the one with the lowest row.
func (idx *Index) Hidden(row int) bool {
	b := idx.groupOf(row)
	return b != nil && b.rows[0] != row
}

// Kept returns the row that stays visible under filtering for row's group.
func (idx *Index) Kept(row int) (int, bool) {
	b := idx.groupOf(row)
	if b == nil {
		return 0, false
	}
	return b.rows[0], true
}

// AnyDuplicates reports whether at least one group exists.
func (idx *Index) AnyDuplicates() bool {
	return idx.groups > 0
}

// FilterAvailable reports whether duplicate filtering can be enabled.
func (idx *Index) FilterAvailable() bool {
	return idx.AnyDuplicates()
}

// GroupCount returns the number of duplicate groups.
func (idx *Index) GroupCount() int {
	return idx.groups
}

// Groups returns every duplicate group ordered by ordinal.
func (idx *Index) Groups() []Group {
	out := make([]Group, 0, idx.groups)
	for key, b := range idx.buckets {
		if len(b.rows) < 2 {
			continue
		}
		ord := idx.ordinals[key]
		out = append(out, Group{
			Algorithm: b.alg,
			Value:     b.val,
			Ordinal:   ord,
			Color:     ColorFor(ord),
			Rows:      append([]int(nil), b.rows...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}
