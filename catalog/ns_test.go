package catalog

import "testing"

func TestNamespaceDBAndCollection(t *testing.T) {
	ns := NewNamespace("mydb", "orders.items")
	if got := ns.DB(); got != "mydb" {
		t.Errorf("DB() = %q, want %q", got, "mydb")
	}
	if got := ns.Collection(); got != "orders.items" {
		t.Errorf("Collection() = %q, want %q", got, "orders.items")
	}
	if got := ns.String(); got != "mydb.orders.items" {
		t.Errorf("String() = %q, want %q", got, "mydb.orders.items")
	}
}

func TestNamespaceDropPending(t *testing.T) {
	pending := NewNamespace("mydb", "system.drop.12345i0t0.orders")
	if !pending.DropPending() {
		t.Errorf("expected %q to report DropPending", pending)
	}
	live := NewNamespace("mydb", "orders")
	if live.DropPending() {
		t.Errorf("did not expect %q to report DropPending", live)
	}
}

func TestNamespaceIsReplicated(t *testing.T) {
	cases := []struct {
		ns   Namespace
		want bool
	}{
		{NewNamespace("local", "oplog.rs"), false},
		{NewNamespace("mydb", "tmp.mr.123"), false},
		{NewNamespace("mydb", "system.indexes"), false},
		{NewNamespace("mydb", "orders"), true},
	}
	for _, c := range cases {
		if got := c.ns.IsReplicated(); got != c.want {
			t.Errorf("IsReplicated(%q) = %v, want %v", c.ns, got, c.want)
		}
	}
}
