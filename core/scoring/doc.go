// Package scoring turns reading and behavioral measurements into a single
// bounded vision score with a fixed interpretation.
package scoring
