// Package domain contains the core entities of the prediction billing
// pipeline: balances, ledger transactions, and prediction tasks. These types
// carry their own validation rules and know nothing about persistence,
// transport, or queueing.
package domain
