// Package postgres provides PostgreSQL-backed implementations of the store
// interfaces. All balance mutations are conditional single-statement updates
// paired with a ledger transaction insert, and task completion is a
// compare-and-swap on the status column.
package postgres
