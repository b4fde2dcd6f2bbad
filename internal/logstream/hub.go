package logstream

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/constants"
	"github.com/kapu/post-reactors/internal/domain"
)

// Reporter records user-visible progress of an operation.
type Reporter interface {
	Report(logType domain.LogType, message string, data any)
}

type subscriber struct {
	id int
	ch chan domain.LogEntry
}

// Hub keeps the most recent log entries and fans new ones out to subscribers.
// Slow subscribers drop entries instead of blocking reporters.
type Hub struct {
	mu          sync.RWMutex
	entries     []domain.LogEntry
	next        int
	full        bool
	subscribers []subscriber
	nextSubID   int
	now         func() time.Time
	logger      *zap.Logger
}

func NewHub(size int, logger *zap.Logger) *Hub {
	if size <= 0 {
		size = constants.LogStreamConfig.BufferSize
	}
	return &Hub{
		entries:   make([]domain.LogEntry, size),
		nextSubID: 1,
		now:       time.Now,
		logger:    logger,
	}
}

// Report stores an entry, mirrors it to the process log and publishes it.
func (h *Hub) Report(logType domain.LogType, message string, data any) {
	entry := domain.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: h.now(),
		Type:      logType,
		Message:   message,
		Data:      data,
	}

	h.mirror(entry)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = entry
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}

	// Sends never block and unsubscribe closes under the same lock.
	for _, sub := range h.subscribers {
		select {
		case sub.ch <- entry:
		default:
			h.logger.Debug("Log subscriber lagging, entry dropped", zap.Int("subscriber", sub.id))
		}
	}
}

// Recent returns up to limit entries, oldest first. limit <= 0 returns everything buffered.
func (h *Hub) Recent(limit int) []domain.LogEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recentLocked(limit)
}

func (h *Hub) recentLocked(limit int) []domain.LogEntry {
	var ordered []domain.LogEntry
	if h.full {
		ordered = append(ordered, h.entries[h.next:]...)
	}
	ordered = append(ordered, h.entries[:h.next]...)

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	result := make([]domain.LogEntry, len(ordered))
	copy(result, ordered)
	return result
}

// Clear drops buffered entries; subscribers stay attached.
func (h *Hub) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = make([]domain.LogEntry, len(h.entries))
	h.next = 0
	h.full = false
}

// Subscribe returns a channel of new entries and a function that detaches it.
func (h *Hub) Subscribe() (<-chan domain.LogEntry, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribeLocked()
}

// SubscribeWithBacklog snapshots the buffer and subscribes in one step, so every entry
// shows up exactly once: either in the backlog or on the channel.
func (h *Hub) SubscribeWithBacklog() ([]domain.LogEntry, <-chan domain.LogEntry, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	backlog := h.recentLocked(0)
	ch, unsubscribe := h.subscribeLocked()
	return backlog, ch, unsubscribe
}

func (h *Hub) subscribeLocked() (<-chan domain.LogEntry, func()) {
	id := h.nextSubID
	h.nextSubID++
	ch := make(chan domain.LogEntry, constants.LogStreamConfig.SubscriberBuffer)
	h.subscribers = append(h.subscribers, subscriber{id: id, ch: ch})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, sub := range h.subscribers {
				if sub.id == id {
					h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
}

func (h *Hub) mirror(entry domain.LogEntry) {
	fields := []zap.Field{zap.String("type", string(entry.Type))}
	if entry.Data != nil {
		fields = append(fields, zap.Any("data", entry.Data))
	}

	switch entry.Type {
	case domain.LogError:
		h.logger.Error(entry.Message, fields...)
	case domain.LogWarning:
		h.logger.Warn(entry.Message, fields...)
	default:
		h.logger.Info(entry.Message, fields...)
	}
}
