// Package collector implements the per-source event collectors and the
// fallback controller that wraps them.
//
// Each collector returns raw, source-shaped records; only the normalization
// pipeline understands their field layout. The dynamic social-feed collector
// drives a headless browser session to defeat lazy-loading pagination; every
// source also has (or is) a static variant performing a single
// non-interactive fetch. The fallback controller decides, per request and
// per source, when to give up on dynamic collection and settle for the
// static result.
package collector
