package catalog

import "testing"

func TestIdentIsUserData(t *testing.T) {
	if ReservedCatalogIdent.IsUserData() {
		t.Errorf("reserved catalog ident must not be reported as user data")
	}
	if !Ident("collection-abc").IsUserData() {
		t.Errorf("collection- prefixed ident must be reported as user data")
	}
	if !Ident("index-abc").IsUserData() {
		t.Errorf("index- prefixed ident must be reported as user data")
	}
	if !Ident("mydb/collection-3").IsUserData() {
		t.Errorf("directoryPerDB collection ident must be reported as user data")
	}
	if !Ident("index/index-4").IsUserData() {
		t.Errorf("directoryForIndexes index ident must be reported as user data")
	}
}

func TestIdentSetMinus(t *testing.T) {
	s := NewIdentSet([]Ident{"a", "b", "c"})
	other := NewIdentSet([]Ident{"b"})

	got := NewIdentSet(s.Minus(other))
	if got.Has("b") {
		t.Errorf("Minus result still contains %q", "b")
	}
	if !got.Has("a") || !got.Has("c") {
		t.Errorf("Minus result missing expected members: %v", got)
	}
	if len(got) != 2 {
		t.Errorf("Minus result has %d members, want 2", len(got))
	}
}
