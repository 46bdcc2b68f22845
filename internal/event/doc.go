// Package event provides the canonical event model shared by every stage of
// the aggregation pipeline.
//
// Events carry a deterministic SHA1-based identity key derived from the
// normalized title, a normalized date token, and the source identifier. The
// same key computation is used during normalization and deduplication, so the
// same underlying event always maps to the same key across runs.
package event
