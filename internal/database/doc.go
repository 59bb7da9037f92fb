// Package database provides the key/value persistence behind the media
// store.
//
// Database keeps entries in a single SQLite "metadata" table (WAL mode) and
// writes multi-key updates in one transaction. MemoryStore offers the same
// API without touching disk and is used for PERSISTENCE=memory and tests.
package database
