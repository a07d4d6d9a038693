package dispatch

import (
	"sync"

	"github.com/gorilla/websocket"

	"maintenance-service/internal/logging"
)

// WSManager tracks websocket connections per user for in-app push.
type WSManager struct {
	connections map[int]map[*websocket.Conn]bool // userID -> set of connections
	mutex       sync.Mutex
	logger      *logging.Logger
}

func NewWSManager(logger *logging.Logger) *WSManager {
	return &WSManager{
		connections: make(map[int]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers a connection for a user, capped at 10 per user.
func (m *WSManager) AddConnection(userID int, conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.connections[userID]; !exists {
		m.connections[userID] = make(map[*websocket.Conn]bool)
	}
	if len(m.connections[userID]) >= 10 {
		m.logger.Warnf("Max connections reached for user %d", userID)
		return
	}
	m.connections[userID][conn] = true
	m.logger.Infof("Added websocket connection for user %d (total: %d)", userID, len(m.connections[userID]))
}

// RemoveConnection unregisters a connection for a user.
func (m *WSManager) RemoveConnection(userID int, conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if conns, exists := m.connections[userID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(m.connections, userID)
		}
	}
}

// SendToUser pushes a message to all of a user's connections, dropping the
// ones that error.
func (m *WSManager) SendToUser(userID int, message []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	conns, exists := m.connections[userID]
	if !exists {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			m.logger.Errorf("Failed to push to user %d: %v", userID, err)
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(m.connections, userID)
	}
}
