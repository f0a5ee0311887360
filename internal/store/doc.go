// Package store declares the persistence interfaces for scan run bookkeeping.
// Implementations live in other packages; this package must not import
// database drivers.
package store
