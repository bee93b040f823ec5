// Package store defines the persistence contracts for the pipeline's system
// of record: the ledger (balances and transactions) and the task store.
package store
