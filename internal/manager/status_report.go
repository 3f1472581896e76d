package manager

import (
	"botd/pkg/types"
)

// Snapshot returns the registry state and start error read under one lock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	if s == StateReady && m.updating > 0 {
		s = StateUpdating
	}
	return Snapshot{State: s, Err: m.err}
}

// Status builds the /status response.
func (m *Manager) Status() types.StatusResponse {
	snap := m.Snapshot()
	resp := types.StatusResponse{State: string(snap.State), Error: snap.Err}
	for _, mod := range m.modulesInOrder() {
		ms := types.ModuleStatus{
			Name:     mod.Name(),
			Required: mod.Required(),
			Enabled:  mod.Enabled(),
		}
		m.mu.RLock()
		if st, ok := m.status[mod.Name()]; ok {
			ms.Started = st.started
			ms.Error = st.err
		}
		m.mu.RUnlock()
		resp.Modules = append(resp.Modules, ms)
	}
	return resp
}
