// Package sqlite provides the SQLite-backed brewer document and settings store.
//
// Documents keep their insertion order through the table rowid, which is the
// order the library index reports them in.
package sqlite
