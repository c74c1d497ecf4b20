// Package catalogstore implements the Catalog: the durable mapping of
// namespace to { ident, metadata } persisted inside the reserved
// catalog ident's record store.
//
// Persisted records are encoded with vmihailenco/msgpack, the same
// serialization library hugr-lab-airport-go uses for structured record
// payloads in this retrieved example pack, in place of a hand-rolled
// binary format.
package catalogstore
