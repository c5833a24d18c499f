// Package oplog defines the normalized operation record the analysis core consumes.
//
// Decoders in internal/ingest turn rows of any on-disk format into Raw values;
// Raw.Record validates them. Rows failing validation are counted in Rejects and
// never abort the file they came from.
package oplog
