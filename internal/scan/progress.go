package scan

import (
	"sync"
	"time"

	"github.com/wildicedemon/patrol/internal/logger"
	"github.com/wildicedemon/patrol/internal/match"
	"github.com/wildicedemon/patrol/internal/pattern"
)

// EventType tags a progress event.
type EventType string

const (
	EventScanStarted   EventType = "scan_started"
	EventPassStarted   EventType = "pass_started"
	EventPassProgress  EventType = "pass_progress"
	EventPassCompleted EventType = "pass_completed"
	EventScanCompleted EventType = "scan_completed"
	EventScanError     EventType = "scan_error"
)

// Event is one entry in the append-only progress stream. Consumers
// must not assume a fixed number of events per pass.
type Event struct {
	Type           EventType       `json:"type"`
	Pass           pattern.Pass    `json:"pass,omitempty"`
	Progress       int             `json:"progress,omitempty"`
	Message        string          `json:"message,omitempty"`
	FilesProcessed int             `json:"filesProcessed,omitempty"`
	TotalFiles     int             `json:"totalFiles,omitempty"`
	Findings       []match.Finding `json:"findings,omitempty"`
	Error          string          `json:"error,omitempty"`
	Timestamp      string          `json:"timestamp"`
}

func newEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Broadcaster fans progress events out to subscribers. Sends never
// block: a subscriber that falls behind loses events rather than
// stalling the scan.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan Event]bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[chan Event]bool)}
}

// Subscribe adds a new client to receive events
func (b *Broadcaster) Subscribe() chan Event {
	ch := make(chan Event, 256)
	b.mu.Lock()
	b.clients[ch] = true
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Broadcast sends an event to all connected clients
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.clients {
		select {
		case ch <- event:
		default:
			logger.Debug().Msg("Progress subscriber channel full, dropping event")
		}
	}
}

// Close drops every subscriber.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	for ch := range b.clients {
		close(ch)
		delete(b.clients, ch)
	}
	b.mu.Unlock()
}
