// Package adapter defines the system adapter contract and its registry.
//
// Each game system plugs in an Adapter that projects blueprints into actors
// for that system, recovers blueprints from exported actors, and adds its own
// validation. Adapters may also implement Importer or LibrarySuggester to
// customize how library documents are folded into blueprints.
package adapter
