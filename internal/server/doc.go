// Package server exposes the aggregation engine over HTTP.
package server
