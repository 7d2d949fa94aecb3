package executor

import (
	"fmt"
	"log/slog"
)

// Manager owns every configured executor Connection and is the lookup
// table the Dispatcher uses to route tool calls, grounded on the
// teacher's internal/mcp Manager.
type Manager struct {
	logger      *slog.Logger
	connections []*Connection
	byID        map[string]*Connection
}

func NewManager(configs []Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{logger: logger, byID: make(map[string]*Connection, len(configs))}
	for _, cfg := range configs {
		conn := NewConnection(cfg, logger)
		m.connections = append(m.connections, conn)
		m.byID[cfg.ID] = conn
	}
	return m
}

func (m *Manager) Connection(id string) (*Connection, bool) {
	c, ok := m.byID[id]
	return c, ok
}

// Connections returns every configured executor connection, in
// configuration order.
func (m *Manager) Connections() []*Connection {
	return m.connections
}

// Close shuts down every connection, collecting (but not stopping on)
// individual close errors.
func (m *Manager) Close() error {
	var firstErr error
	for _, c := range m.connections {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close executor %q: %w", c.ID(), err)
		}
	}
	return firstErr
}
