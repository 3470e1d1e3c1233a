// Package main hosts the tracksync CLI entrypoint and command graph.
//
// Every command opens the shared catalog for the duration of one invocation
// and closes it (with a WAL checkpoint) before returning, so the file a sync
// client replicates is always complete. Commands that rewrite many rows or
// move files take the advisory catalog lock first.
//
// Keep this package lean: behaviour lives in the internal packages and the
// commands here only parse flags, wire components, and render results.
package main
