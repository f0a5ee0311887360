// Package scanner defines the core types shared across the scan pipeline: the
// tagged fetch outcome, the store result, and the narrow interfaces that the
// worker pool depends on.
package scanner
