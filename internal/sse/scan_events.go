package sse

import (
	"context"
	"sync"

	"ms-scanning/internal/models"
	"ms-scanning/internal/scan/offline"
	"ms-scanning/internal/scan/override"
)

// GateEvent is the envelope pushed to every subscribed operator display.
type GateEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventScanResult      = "scan_result"
	EventOverridePending = "override_pending"
	EventOverrideState   = "override_state"
	EventSyncSummary     = "sync_summary"
)

// GateEventEmitter manages SSE connections and broadcasts engine events to
// every connected operator display. It is the coordinator's notifier.
type GateEventEmitter struct {
	clients     []chan GateEvent
	clientMutex sync.RWMutex
}

// NewGateEventEmitter creates a new SSE event emitter for gate events
func NewGateEventEmitter() *GateEventEmitter {
	return &GateEventEmitter{}
}

// Subscribe adds a client that receives every gate event until ctx is done
func (e *GateEventEmitter) Subscribe(ctx context.Context) chan GateEvent {
	clientChan := make(chan GateEvent, 10)

	e.clientMutex.Lock()
	e.clients = append(e.clients, clientChan)
	e.clientMutex.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		e.removeClient(clientChan)
	}()

	return clientChan
}

// ScanProcessed broadcasts a finished scan decision
func (e *GateEventEmitter) ScanProcessed(result models.ScanResult) {
	e.broadcast(GateEvent{Type: EventScanResult, Payload: result})
}

// OverridePending announces a scan waiting for a supervisor reason
func (e *GateEventEmitter) OverridePending(ticket models.Ticket, categories []string) {
	e.broadcast(GateEvent{Type: EventOverridePending, Payload: map[string]interface{}{
		"ticket_id":  ticket.ID,
		"event_id":   ticket.EventID,
		"categories": categories,
	}})
}

// OverrideChanged announces override session activation, expiry or shutdown
func (e *GateEventEmitter) OverrideChanged(ev override.Event) {
	e.broadcast(GateEvent{Type: EventOverrideState, Payload: ev})
}

// SyncCompleted announces the outcome of an offline queue drain
func (e *GateEventEmitter) SyncCompleted(summary offline.SyncSummary) {
	e.broadcast(GateEvent{Type: EventSyncSummary, Payload: summary})
}

func (e *GateEventEmitter) broadcast(event GateEvent) {
	e.clientMutex.RLock()
	clients := e.clients
	e.clientMutex.RUnlock()

	for _, clientChan := range clients {
		// Non-blocking send to avoid slowing down emitter if client is slow
		select {
		case clientChan <- event:
			// Successfully sent
		default:
			// Channel buffer full, skip this client for now
		}
	}
}

func (e *GateEventEmitter) removeClient(clientChan chan GateEvent) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	for i, ch := range e.clients {
		if ch == clientChan {
			e.clients = append(e.clients[:i], e.clients[i+1:]...)
			close(clientChan)
			break
		}
	}
}

// ClientCount returns the number of connected operator displays
func (e *GateEventEmitter) ClientCount() int {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return len(e.clients)
}
