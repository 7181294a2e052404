// Package ledger defines the domain model of the provenance ledger: the roles
// that may act on an asset, the asset lifecycle, the hash-linked transaction
// blocks that record each transition, and the typed errors returned by the
// engine.
//
// An Entry pairs an Asset projection with its History. The projection is a
// cache: replaying History from genesis always reproduces it.
package ledger
