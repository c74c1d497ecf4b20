package config

import (
	"github.com/spf13/viper"

	"github.com/nsdb/catalogcoord/catalog/coordinator"
)

// Keys are the viper keys FromViper reads. A host binding CLI flags or
// CATALOG_-prefixed environment variables to these keys can build
// coordinator.Options without depending on this package's field names
// directly.
const (
	KeyDirectoryPerDB      = "directory-per-db"
	KeyDirectoryForIndexes = "directory-for-indexes"
	KeyForRepair           = "for-repair"
)

// FromViper builds coordinator.Options from v, defaulting every field
// to false when v is nil or the key is unset.
func FromViper(v *viper.Viper) coordinator.Options {
	if v == nil {
		return coordinator.Options{}
	}
	return coordinator.Options{
		DirectoryPerDB:      v.GetBool(KeyDirectoryPerDB),
		DirectoryForIndexes: v.GetBool(KeyDirectoryForIndexes),
		ForRepair:           v.GetBool(KeyForRepair),
	}
}
