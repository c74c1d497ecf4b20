package catalogstore

import "github.com/nsdb/catalogcoord/catalog"

// record is the on-disk shape of one catalog entry inside the reserved
// ident's record store, keyed by namespace string.
type record struct {
	NS       string                     `msgpack:"ns"`
	Metadata catalog.CollectionMetadata `msgpack:"metadata"`
}
