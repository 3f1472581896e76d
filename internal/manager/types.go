package manager

// State is the lifecycle state of the module registry as a whole.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateRegistering   State = "registering"
	StateLoading       State = "loading"
	StateStarting      State = "starting"
	StateReady         State = "ready"
	StateUpdating      State = "updating"
	StateTerminating   State = "terminating"
	StateError         State = "error"
)

// moduleState tracks per-module start progress for status reporting.
type moduleState struct {
	started bool
	err     string
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State State
	Err   string
}
