// Package storage defines the document store contracts used by the brewer.
//
// Documents live in collections addressed by "source.name" keys, mirroring
// compendium packs such as "world.acb-blueprints". A document reference is
// the collection key followed by a dot and the document id.
package storage
