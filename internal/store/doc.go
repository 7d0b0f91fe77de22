// Package store keeps a SQLite-backed history of benchmark runs so results
// from different builds or machines can be listed and compared.
//
// A run is written once: SaveReport ignores a run id it already holds, so
// re-recording the same report is harmless. Reads are deterministic, with
// runs ordered by start time then run id, and results in the order the
// runner produced them.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
