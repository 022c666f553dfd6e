package fontmap

import (
	"testing"

	"github.com/npillmayer/feafile/otl"
)

func TestOrderedBasics(t *testing.T) {
	m := NewOrdered([]string{".notdef", "a", "b", "c"})
	if m.NumGlyphs() != 4 {
		t.Fatalf("wrong glyph count %d", m.NumGlyphs())
	}
	if !m.Contains("b") || m.Contains("z") {
		t.Errorf("containment broken")
	}
	if gid, ok := m.GidFor("c"); !ok || gid != 3 {
		t.Errorf("wrong gid for c: %d", gid)
	}
	if name, ok := m.NameFor(1); !ok || name != "a" {
		t.Errorf("wrong name for gid 1: %q", name)
	}
	if _, ok := m.NameFor(99); ok {
		t.Errorf("out-of-range gid resolved")
	}
}

func TestOrderedCIDs(t *testing.T) {
	m := NewOrdered([]string{".notdef", "a", "b"})
	if gid, ok := m.GidForCID(2); !ok || gid != 2 {
		t.Errorf("CIDs map to glyph indices directly")
	}
	if _, ok := m.GidForCID(3); ok {
		t.Errorf("out-of-range CID resolved")
	}
	if _, ok := m.GidForCID(-1); ok {
		t.Errorf("negative CID resolved")
	}
}

func TestOrderedIteration(t *testing.T) {
	m := NewOrdered([]string{".notdef", "a"})
	var gids []otl.GlyphIndex
	var names []string
	for gid, name := range m.Glyphs() {
		gids = append(gids, gid)
		names = append(names, name)
	}
	if len(gids) != 2 || gids[1] != 1 || names[1] != "a" {
		t.Errorf("iteration broken: %v %v", gids, names)
	}
}

func TestOrderedDuplicateNames(t *testing.T) {
	m := NewOrdered([]string{".notdef", "dup", "dup"})
	if gid, _ := m.GidFor("dup"); gid != 1 {
		t.Errorf("first occurrence must win for duplicate names, got %d", gid)
	}
}
