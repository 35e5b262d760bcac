package eventbus

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nodeconductor/logger"
	"sync"
	"time"
)

type (
	Bus interface {
		// Register returns a channel receiving every event published for identifier.
		// AllEvents subscribes to everything.
		Register(identifier string) chan Event
		Unregister(identifier string, ch chan Event)
		Publish(ev Event)
		// Recent returns the last events published for identifier, oldest first.
		Recent(identifier string) []Event
	}

	Event struct {
		Type       Type       `json:"event_type"`
		Message    string     `json:"message"`
		Actor      string     `json:"actor"`
		BackupID   *uuid.UUID `json:"backup_id,omitempty"`
		ScheduleID *uuid.UUID `json:"schedule_id,omitempty"`
		SourceID   *uuid.UUID `json:"source_id,omitempty"`
		Timestamp  time.Time  `json:"timestamp"`
	}

	Type string
)

const (
	AllEvents   = "*"
	SystemActor = "system"

	subscriberBuffer = 1000
	historySize      = 50
)

const (
	ScheduleCreated  Type = "backup_schedule_created"
	ScheduleUpdated  Type = "backup_schedule_updated"
	ScheduleDeleted  Type = "backup_schedule_deleted"
	ScheduleExecuted Type = "backup_schedule_executed"

	BackupCreationScheduled    Type = "backup_creation_scheduled"
	BackupCreationSucceeded    Type = "backup_creation_succeeded"
	BackupRestorationScheduled Type = "backup_restoration_scheduled"
	BackupRestorationSucceeded Type = "backup_restoration_succeeded"
	BackupDeletionScheduled    Type = "backup_deletion_scheduled"
	BackupDeletionSucceeded    Type = "backup_deletion_succeeded"
	BackupErred                Type = "backup_erred"
)

type eventPublisher struct {
	events  map[string][]chan Event
	history map[string]*History[Event]
	lock    sync.Mutex
}

func New() Bus {
	return &eventPublisher{
		events:  make(map[string][]chan Event),
		history: make(map[string]*History[Event]),
	}
}

func (e *eventPublisher) Register(identifier string) chan Event {
	e.lock.Lock()
	defer e.lock.Unlock()

	ch := make(chan Event, subscriberBuffer)
	e.events[identifier] = append(e.events[identifier], ch)
	return ch
}

func (e *eventPublisher) Unregister(identifier string, ch chan Event) {
	e.lock.Lock()
	defer e.lock.Unlock()

	clients := e.events[identifier]
	for i, next := range clients {
		if next == ch {
			e.events[identifier] = append(clients[:i], clients[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish logs ev and delivers it to the subscribers of its backup, schedule
// and source and to AllEvents subscribers. Slow subscribers miss events rather
// than block the publisher.
func (e *eventPublisher) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Actor == "" {
		ev.Actor = SystemActor
	}

	logger.Info(ev.Message, ev.fields()...)

	identifiers := ev.identifiers()
	e.lock.Lock()
	clients := make([]chan Event, 0)
	for _, identifier := range identifiers {
		clients = append(clients, e.events[identifier]...)
		if identifier == AllEvents {
			continue
		}
		h, ok := e.history[identifier]
		if !ok {
			h = NewHistory[Event](historySize)
			e.history[identifier] = h
		}
		h.Add(ev)
	}

	for _, ch := range clients {
		select {
		case ch <- ev:
		default:
			logger.Warn("dropping event for slow subscriber",
				zap.String("event_type", string(ev.Type)))
		}
	}
	e.lock.Unlock()
}

func (e *eventPublisher) Recent(identifier string) []Event {
	e.lock.Lock()
	h, ok := e.history[identifier]
	e.lock.Unlock()

	if !ok {
		return []Event{}
	}
	return h.Values()
}

func (ev Event) identifiers() []string {
	ids := []string{AllEvents}
	for _, id := range []*uuid.UUID{ev.BackupID, ev.ScheduleID, ev.SourceID} {
		if id != nil {
			ids = append(ids, id.String())
		}
	}
	return ids
}

func (ev Event) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("event_type", string(ev.Type)),
		zap.String("actor", ev.Actor),
	}
	if ev.BackupID != nil {
		fields = append(fields, zap.String("backup", ev.BackupID.String()))
	}
	if ev.ScheduleID != nil {
		fields = append(fields, zap.String("schedule", ev.ScheduleID.String()))
	}
	if ev.SourceID != nil {
		fields = append(fields, zap.String("source", ev.SourceID.String()))
	}
	return fields
}
