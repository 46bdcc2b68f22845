// Package normalize converts raw per-source collection records into the
// canonical event model: placeholder backfill, engagement extraction,
// category assignment, and recurring-event consolidation.
package normalize
