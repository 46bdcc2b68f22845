// Package aggregate orchestrates a family-events request end to end: it
// fans collection out across sources in parallel, normalizes and merges the
// harvested records, and reports per-source outcomes alongside the results.
package aggregate
