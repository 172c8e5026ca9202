// Package diff implements range-based set reconciliation: given two replicas
// exposing the same ordered, hashable view of their data (see
// HashRangeQueryable), it finds the ranges on which they disagree without
// transferring the full data set, by iteratively exchanging hash summaries
// over narrower and narrower key ranges.
//
// The algorithm is a straightforward port of Aljoscha Meyer's range-based set
// reconciliation (see his February 2023 write-up); Start produces the
// all-encompassing first segment and Round consumes one peer's segments,
// returning the segments to send back and the ranges on which the two sides
// are known to actually differ. Neither function touches the network or
// holds state between calls — the caller drives the back-and-forth.
package diff
