// Package mocks provides shared in-memory fakes of the store and queue
// contracts for tests. The fakes honor the same invariants as the real
// implementations (conditional debit, compare-and-swap completion) so
// pipeline-level properties can be asserted without a database or broker.
package mocks
