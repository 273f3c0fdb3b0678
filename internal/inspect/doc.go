// Package inspect serves a read-only HTTP view of a running apiflow process,
// with a liveness probe next to the live session and graph.
package inspect
