// Package memory implements in-memory repositories for all aggregates.
// It backs tests and single-instance deployments; the original design's
// global mutable maps live on here, but behind the domain repository
// interfaces and with per-key serialization.
//
// Concurrency discipline mirrors the postgres layer: every mutation of a
// (user, course) aggregate is serialized through a per-key lock, and reads
// return defensive copies so callers cannot alias internal state.
package memory
