package client

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quizclash/internal/events"
)

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
)

var ErrCircuitOpen = errors.New("reconnect circuit open")

// ReconnectionStrategy controls retry pacing: exponential backoff capped at
// MaxDelay, a minimum interval between attempts, and a circuit breaker that
// opens after MaxFailures consecutive failures for a cooldown window.
type ReconnectionStrategy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MinInterval time.Duration
	MaxFailures int
	Cooldown    time.Duration
}

func DefaultReconnectionStrategy() ReconnectionStrategy {
	return ReconnectionStrategy{
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    15 * time.Second,
		MinInterval: 250 * time.Millisecond,
		MaxFailures: 3,
		Cooldown:    30 * time.Second,
	}
}

// Delay computes the backoff for a zero-based attempt number.
func (s ReconnectionStrategy) Delay(attempt int) time.Duration {
	delay := s.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= s.MaxDelay {
			return s.MaxDelay
		}
	}
	if delay < s.MinInterval {
		return s.MinInterval
	}
	return delay
}

// ConnectionManager is the single owner of the client's socket lifecycle and
// ConnectionState. Dial failures feed the strategy; the server enforces the
// per-identity connection ceiling.
type ConnectionManager struct {
	url      string
	strategy ReconnectionStrategy
	dial     func(url string) (*websocket.Conn, error)

	mu            sync.Mutex
	state         ConnState
	conn          *websocket.Conn
	failures      int
	attempt       int
	lastAttemptAt time.Time
	circuitUntil  time.Time
}

func NewConnectionManager(url string, strategy ReconnectionStrategy) *ConnectionManager {
	return &ConnectionManager{
		url:      url,
		strategy: strategy,
		state:    StateDisconnected,
		dial: func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		},
	}
}

func (m *ConnectionManager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect attempts one dial, honoring the minimum inter-attempt interval and
// the circuit breaker. Callers retry with NextDelay between attempts.
func (m *ConnectionManager) Connect(now time.Time) error {
	m.mu.Lock()
	if now.Before(m.circuitUntil) {
		m.mu.Unlock()
		return ErrCircuitOpen
	}
	if !m.circuitUntil.IsZero() && !now.Before(m.circuitUntil) {
		// Cooldown elapsed; the breaker resets the failure counter.
		m.circuitUntil = time.Time{}
		m.failures = 0
		m.attempt = 0
	}
	if !m.lastAttemptAt.IsZero() && now.Sub(m.lastAttemptAt) < m.strategy.MinInterval {
		m.mu.Unlock()
		return errors.New("attempt too soon")
	}
	m.lastAttemptAt = now
	if m.state == StateDisconnected {
		m.state = StateConnecting
	} else if m.state != StateConnected {
		m.state = StateReconnecting
	}
	url := m.url
	m.mu.Unlock()

	conn, err := m.dial(url)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failures++
		m.attempt++
		m.state = StateReconnecting
		if m.failures >= m.strategy.MaxFailures {
			m.circuitUntil = now.Add(m.strategy.Cooldown)
			log.Printf("reconnect circuit opened failures=%d cooldown=%s", m.failures, m.strategy.Cooldown)
		}
		return err
	}
	m.conn = conn
	m.state = StateConnected
	m.failures = 0
	m.attempt = 0
	return nil
}

// NextDelay is the backoff to wait before the next Connect call.
func (m *ConnectionManager) NextDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strategy.Delay(m.attempt)
}

// MarkDisconnected records a dropped socket so the next Connect reconnects.
func (m *ConnectionManager) MarkDisconnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.state = StateReconnecting
}

func (m *ConnectionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.state = StateDisconnected
}

// ReadLoop decodes frames into the buffer until the socket drops.
func (m *ConnectionManager) ReadLoop(buffer *EventBuffer) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.MarkDisconnected()
			return err
		}
		ev, err := events.Decode(data)
		if err != nil {
			log.Printf("dropping undecodable frame error=%v", err)
			continue
		}
		buffer.Add(ev)
	}
}
