package memkv_test

import (
	"testing"

	"github.com/nsdb/catalogcoord/catalog/coordinatortest"
	"github.com/nsdb/catalogcoord/catalog/engine"
	"github.com/nsdb/catalogcoord/catalog/engine/memkv"
)

func TestCoordinator(t *testing.T) {
	coordinatortest.RunCoordinatorTests(t, "memkv", func() engine.KvEngine {
		return memkv.NewEngine(memkv.DefaultOptions())
	}, coordinatortest.NoClock)
}
