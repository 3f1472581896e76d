// Package manager owns the set of bot modules and drives their lifecycle:
// registration, loading persisted records, concurrent start, settings
// listing and updates, and stop. It is structured into small files by concern:
//
//   - manager.go: core Manager type, registration (AddModule) and lookups.
//   - config.go: ManagerConfig and defaults; NewWithConfig applies them.
//   - types.go: State and per-module status bookkeeping.
//   - start.go: StartModules, concurrent with first-error reporting.
//   - settings.go: ListSettings/UpdateSettings, the HTTP settings boundary.
//   - status_report.go: Snapshot (state and start error) and the /status view built on it.
//   - errors.go: error types and helpers (IsStartFailed).
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//
// The registry is written only while registering and read afterwards; it is
// still guarded by an RWMutex since HTTP handlers and module goroutines read it
// concurrently.
package manager
