// Package blueprint defines the creature blueprint document and its pure
// lifecycle helpers.
//
// A blueprint is the system-neutral source of truth the editor mutates. Its
// JSON field names are a storage contract: blueprints are embedded verbatim in
// stored records and exported actors, so renaming a tag breaks existing data.
package blueprint
