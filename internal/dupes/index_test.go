package dupes

import (
	"fmt"
	"testing"

	"hashdrop/internal/digest"
)

func sha(v string) map[digest.Algorithm]string {
	return map[digest.Algorithm]string{digest.SHA256: v}
}

func TestIsPlaceholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v    string
		want bool
	}{
		{"", true},
		{"-", true},
		{"  ", true},
		{"error: couldn't open file /x", true},
		{"d41d8cd98f00b204e9800998ecf8427e", false},
	}
	for _, tt := range tests {
		if got := IsPlaceholder(tt.v); got != tt.want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestIdentityPrecedence(t *testing.T) {
	t.Parallel()

	digests := map[digest.Algorithm]string{
		digest.MD5:    "m",
		digest.SHA1:   "s1",
		digest.SHA256: "-",
	}

	tests := []struct {
		name    string
		enabled []digest.Algorithm
		wantAlg digest.Algorithm
		wantVal string
		wantOK  bool
	}{
		{"sha256 placeholder falls through", []digest.Algorithm{digest.MD5, digest.SHA1, digest.SHA256}, digest.SHA1, "s1", true},
		{"md5 only", []digest.Algorithm{digest.MD5}, digest.MD5, "m", true},
		{"disabled value ignored", []digest.Algorithm{digest.SHA256}, "", "", false},
		{"nothing enabled", nil, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			alg, val, ok := NewConfig(tt.enabled...).Identity(digests)
			if alg != tt.wantAlg || val != tt.wantVal || ok != tt.wantOK {
				t.Errorf("Identity() = (%q, %q, %v), want (%q, %q, %v)", alg, val, ok, tt.wantAlg, tt.wantVal, tt.wantOK)
			}
		})
	}
}

func TestGroupsABCAndD(t *testing.T) {
	t.Parallel()

	idx := NewIndex(NewConfig(digest.SHA256))
	// Digests arrive out of row order
	idx.Set(2, sha("same"))
	idx.Set(3, sha("other"))
	idx.Set(0, sha("same"))
	idx.Set(1, sha("same"))

	groups := idx.Groups()
	if len(groups) != 1 {
		t.Fatalf("Groups() = %v, want one group", groups)
	}
	if fmt.Sprint(groups[0].Rows) != "[0 1 2]" {
		t.Errorf("group rows = %v, want [0 1 2]", groups[0].Rows)
	}

	for row, wantHidden := range map[int]bool{0: false, 1: true, 2: true, 3: false} {
		if got := idx.Hidden(row); got != wantHidden {
			t.Errorf("Hidden(%d) = %v, want %v", row, got, wantHidden)
		}
	}

	if _, ok := idx.Highlight(3); ok {
		t.Error("D should not be highlighted")
	}
	c0, ok0 := idx.Highlight(0)
	c2, ok2 := idx.Highlight(2)
	if !ok0 || !ok2 || c0 != c2 {
		t.Errorf("group members should share a color: %v/%v %v/%v", c0, ok0, c2, ok2)
	}
	if !idx.AnyDuplicates() || !idx.FilterAvailable() {
		t.Error("AnyDuplicates should be true")
	}
}

func TestRecordWithoutIdentityNeverGroups(t *testing.T) {
	t.Parallel()

	idx := NewIndex(NewConfig(digest.SHA256))
	idx.Set(0, sha(""))
	idx.Set(1, sha(""))
	idx.Set(2, sha("-"))
	idx.Set(3, sha("-"))
	idx.Set(4, sha("error: couldn't open file /a"))
	idx.Set(5, sha("error: couldn't open file /a"))
	idx.Set(6, map[digest.Algorithm]string{digest.MD5: "m"})
	idx.Set(7, map[digest.Algorithm]string{digest.MD5: "m"})

	if idx.AnyDuplicates() {
		t.Errorf("Groups() = %v, want none", idx.Groups())
	}
	for row := 0; row < 8; row++ {
		if idx.Hidden(row) {
			t.Errorf("Hidden(%d) = true", row)
		}
	}
}

func TestRemovePromotesNextWithoutRecolouring(t *testing.T) {
	t.Parallel()

	idx := NewIndex(NewConfig(digest.SHA256))
	idx.Set(0, sha("first"))
	idx.Set(1, sha("first"))
	idx.Set(2, sha("x"))
	idx.Set(3, sha("x"))
	idx.Set(4, sha("x"))

	before, _ := idx.Highlight(3)

	idx.Remove(2)

	if idx.Hidden(3) {
		t.Error("row 3 should be kept after removing row 2")
	}
	if !idx.Hidden(4) {
		t.Error("row 4 should still be hidden")
	}
	after, ok := idx.Highlight(3)
	if !ok || after != before {
		t.Errorf("color changed from %v to %v", before, after)
	}
	if kept, _ := idx.Kept(4); kept != 3 {
		t.Errorf("Kept(4) = %d, want 3", kept)
	}
}

func TestSingletonDissolves(t *testing.T) {
	t.Parallel()

	idx := NewIndex(NewConfig(digest.SHA256))
	idx.Set(0, sha("v"))
	idx.Set(1, sha("v"))
	if idx.GroupCount() != 1 {
		t.Fatalf("GroupCount() = %d, want 1", idx.GroupCount())
	}

	idx.Remove(0)
	if idx.AnyDuplicates() || idx.GroupCount() != 0 {
		t.Error("a group of one should dissolve")
	}
	if _, ok := idx.Highlight(1); ok {
		t.Error("singleton should not be highlighted")
	}
	if len(idx.Groups()) != 0 {
		t.Errorf("Groups() = %v, want none", idx.Groups())
	}

	// Re-forming keeps the batch-scoped color
	idx.Set(5, sha("w"))
	idx.Set(6, sha("w"))
	idx.Set(2, sha("v"))
	c, _ := idx.Highlight(2)
	if c != Palette[0] {
		t.Errorf("re-formed group color = %v, want %v", c, Palette[0])
	}
	c, _ = idx.Highlight(5)
	if c != Palette[1] {
		t.Errorf("second group color = %v, want %v", c, Palette[1])
	}
}

func TestIdentityUpgradeMovesRow(t *testing.T) {
	t.Parallel()

	idx := NewIndex(NewConfig(digest.MD5, digest.SHA256))
	idx.Set(0, map[digest.Algorithm]string{digest.MD5: "m"})
	idx.Set(1, map[digest.Algorithm]string{digest.MD5: "m"})
	if !idx.AnyDuplicates() {
		t.Fatal("rows should group on MD5 before SHA-256 arrives")
	}

	idx.Set(0, map[digest.Algorithm]string{digest.MD5: "m", digest.SHA256: "s0"})
	if idx.AnyDuplicates() {
		t.Error("row 0 moved to its SHA-256 identity, group should dissolve")
	}

	idx.Set(1, map[digest.Algorithm]string{digest.MD5: "m", digest.SHA256: "s0"})
	if !idx.AnyDuplicates() {
		t.Error("rows should group again on SHA-256")
	}
	groups := idx.Groups()
	if len(groups) != 1 || groups[0].Algorithm != digest.SHA256 {
		t.Errorf("Groups() = %+v, want one SHA-256 group", groups)
	}
}

func TestPaletteRecycles(t *testing.T) {
	t.Parallel()

	idx := NewIndex(NewConfig(digest.SHA256))
	for g := 0; g < len(Palette)+2; g++ {
		v := fmt.Sprintf("v%d", g)
		idx.Set(2*g, sha(v))
		idx.Set(2*g+1, sha(v))
	}

	c0, _ := idx.Highlight(0)
	c10, _ := idx.Highlight(2 * len(Palette))
	if c0 != c10 {
		t.Errorf("group %d color = %v, want reuse of %v", len(Palette), c10, c0)
	}
	groups := idx.Groups()
	for i, g := range groups {
		if g.Ordinal != i {
			t.Errorf("Groups()[%d].Ordinal = %d", i, g.Ordinal)
		}
	}
}

func TestResetClearsColors(t *testing.T) {
	t.Parallel()

	idx := NewIndex(NewConfig(digest.SHA256))
	idx.Set(0, sha("a"))
	idx.Set(1, sha("a"))
	idx.Set(2, sha("b"))
	idx.Set(3, sha("b"))

	idx.Reset()
	if idx.AnyDuplicates() {
		t.Fatal("Reset should clear groups")
	}

	idx.Set(0, sha("b"))
	idx.Set(1, sha("b"))
	c, _ := idx.Highlight(0)
	if c != Palette[0] {
		t.Errorf("after Reset first group color = %v, want %v", c, Palette[0])
	}
}

func TestColorHex(t *testing.T) {
	t.Parallel()

	if got := Palette[0].Hex(); got != "#64ff6464" {
		t.Errorf("Hex() = %q, want #64ff6464", got)
	}
	if ColorFor(13) != Palette[3] {
		t.Error("ColorFor should wrap modulo the palette size")
	}
}
