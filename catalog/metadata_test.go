package catalog

import "testing"

func TestCollectionMetadataAllIdents(t *testing.T) {
	meta := CollectionMetadata{
		Ident: "collection-a",
		Indexes: []IndexDescriptor{
			{Name: "_id_", Ident: "index-a1"},
			{Name: "by_name", Ident: "index-a2"},
		},
	}

	all := meta.AllIdents()
	if len(all) != 3 {
		t.Fatalf("AllIdents() returned %d idents, want 3", len(all))
	}
	if all[0] != "collection-a" {
		t.Errorf("AllIdents()[0] = %q, want collection ident first", all[0])
	}

	if id, ok := meta.IndexIdent("by_name"); !ok || id != "index-a2" {
		t.Errorf("IndexIdent(%q) = (%q, %v), want (index-a2, true)", "by_name", id, ok)
	}
	if _, ok := meta.IndexIdent("nonexistent"); ok {
		t.Errorf("IndexIdent(nonexistent) reported found")
	}
}
