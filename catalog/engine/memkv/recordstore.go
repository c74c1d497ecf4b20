package memkv

import (
	"fmt"

	"github.com/nsdb/catalogcoord/catalog/engine"
	"github.com/nsdb/catalogcoord/catalog/engine/memkv/internal"
)

// recordStore adapts internal.RecordStore to engine.RecordStore. It
// ignores the txn argument beyond type-checking: writes are applied
// eagerly, per the package doc.
type recordStore struct {
	backing *internal.RecordStore
}

func (rs *recordStore) Insert(_ engine.Txn, id string, data []byte) error {
	if _, exists := rs.backing.Records.Load(id); exists {
		return engine.ErrRecordExists.New("memkv: record %q already exists", id)
	}
	cp := append([]byte(nil), data...)
	rs.backing.Records.Store(id, cp)
	return nil
}

func (rs *recordStore) Update(_ engine.Txn, id string, data []byte) error {
	if _, ok := rs.backing.Records.Load(id); !ok {
		return fmt.Errorf("memkv: record %q not found", id)
	}
	cp := append([]byte(nil), data...)
	rs.backing.Records.Store(id, cp)
	return nil
}

func (rs *recordStore) Delete(_ engine.Txn, id string) error {
	rs.backing.Records.Delete(id)
	return nil
}

func (rs *recordStore) Iterate(fn func(id string, data []byte) error) error {
	var iterErr error
	rs.backing.Records.Range(func(id string, data []byte) bool {
		if err := fn(id, data); err != nil {
			iterErr = err
			return false
		}
		return true
	})
	return iterErr
}
