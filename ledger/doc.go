// Package ledger records the results of a search.
//
// A Ledger is append-only: results enter in submission order and accessors
// hand out copies. Rankings sort the succeeded results by mean primary score
// in the objective's direction, stable on submission order.
//
// A Snapshot is the persisted form of a ledger. It carries everything needed
// to rebuild rankings, the best pipeline and the search state, and is saved
// through a Store: a blob store (local directory or S3), redis, or a SQL
// database.
package ledger
