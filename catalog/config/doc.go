// Package config adapts external configuration sources to
// coordinator.Options. It owns no CLI flags or environment variable
// names itself: a host embedding this layer binds its own flags with
// viper and calls FromViper with the result.
package config
