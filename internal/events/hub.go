package events

import (
	"sync"
	"time"

	"studio/server/internal/model"

	"github.com/google/uuid"
)

const defaultBacklog = 256

// Hub fans studio events out to the SSE subscribers of each session and keeps
// a short backlog so a reconnecting client can resume from its last seq.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[string]chan model.StudioEvent
	seq     map[string]int64
	backlog map[string][]model.StudioEvent
	keep    int
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		subs:    map[string]map[string]chan model.StudioEvent{},
		seq:     map[string]int64{},
		backlog: map[string][]model.StudioEvent{},
		keep:    defaultBacklog,
		now:     time.Now,
	}
}

func (h *Hub) Subscribe(sessionID string, buf int) (string, <-chan model.StudioEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subID := uuid.NewString()
	if _, ok := h.subs[sessionID]; !ok {
		h.subs[sessionID] = map[string]chan model.StudioEvent{}
	}
	ch := make(chan model.StudioEvent, buf)
	h.subs[sessionID][subID] = ch

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		sessionSubs, ok := h.subs[sessionID]
		if !ok {
			return
		}
		c, ok := sessionSubs[subID]
		if !ok {
			return
		}
		delete(sessionSubs, subID)
		close(c)
		if len(sessionSubs) == 0 {
			delete(h.subs, sessionID)
		}
	}
	return subID, ch, unsubscribe
}

// Emit stamps an event with the next seq of its session, records it in the
// backlog and publishes it.
func (h *Hub) Emit(sessionID string, typ model.StudioEventType, payload map[string]any) model.StudioEvent {
	h.mu.Lock()
	h.seq[sessionID]++
	evt := model.StudioEvent{
		EventID:   uuid.NewString(),
		Seq:       h.seq[sessionID],
		SessionID: sessionID,
		Type:      typ,
		TS:        h.now().UTC(),
		Payload:   payload,
	}
	log := append(h.backlog[sessionID], evt)
	if len(log) > h.keep {
		log = log[len(log)-h.keep:]
	}
	h.backlog[sessionID] = log
	h.mu.Unlock()

	h.Publish(sessionID, evt)
	return evt
}

func (h *Hub) Publish(sessionID string, evt model.StudioEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sessionSubs, ok := h.subs[sessionID]
	if !ok {
		return
	}
	for _, ch := range sessionSubs {
		select {
		case ch <- evt:
		default:
			// Drop stale subscribers to keep producer non-blocking.
		}
	}
}

// Since returns the retained events with seq greater than fromSeq.
func (h *Hub) Since(sessionID string, fromSeq int64) []model.StudioEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []model.StudioEvent
	for _, evt := range h.backlog[sessionID] {
		if evt.Seq > fromSeq {
			out = append(out, evt)
		}
	}
	return out
}
