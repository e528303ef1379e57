package vendorlink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
)

// DefaultResultTimeout is how long SendCommand waits for a result.
const DefaultResultTimeout = 10 * time.Second

// MQTTClient is the subset of MQTT operations the link needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
}

// Sink receives decoded snapshots. *coordinator.Coordinator satisfies it.
type Sink[T any] interface {
	Update(data T)
	SetError(err error)
}

// Logger defines the logging interface used by the link.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options configure a Link.
type Options struct {
	QoS byte

	// ResultTimeout bounds the wait for a command result. Zero selects
	// DefaultResultTimeout; a negative value sends commands without waiting.
	ResultTimeout time.Duration

	Logger Logger
}

// Link binds one configuration entry's coordinator to its SDK process.
type Link[T any] struct {
	client  MQTTClient
	domain  string
	entryID string
	sink    Sink[T]
	qos     byte
	timeout time.Duration
	logger  Logger

	mu      sync.Mutex
	started bool
	pending map[string]chan ResultMessage
}

// New creates a link for one entry. Call Start to begin receiving snapshots.
func New[T any](client MQTTClient, domain, entryID string, sink Sink[T], opts Options) *Link[T] {
	l := &Link[T]{
		client:  client,
		domain:  domain,
		entryID: entryID,
		sink:    sink,
		qos:     opts.QoS,
		timeout: opts.ResultTimeout,
		logger:  opts.Logger,
		pending: make(map[string]chan ResultMessage),
	}
	if l.timeout == 0 {
		l.timeout = DefaultResultTimeout
	}
	if l.logger == nil {
		l.logger = noopLogger{}
	}
	return l
}

// Start subscribes to the snapshot and result topics.
func (l *Link[T]) Start() error {
	topics := mqtt.Topics{}

	if err := l.client.Subscribe(topics.VendorResult(l.domain, l.entryID), l.qos, l.handleResult); err != nil {
		return fmt.Errorf("subscribing to %s results: %w", l.entryID, err)
	}
	if err := l.client.Subscribe(topics.VendorSnapshot(l.domain, l.entryID), l.qos, l.handleSnapshot); err != nil {
		return fmt.Errorf("subscribing to %s snapshots: %w", l.entryID, err)
	}

	l.mu.Lock()
	l.started = true
	l.mu.Unlock()
	return nil
}

// Stop unsubscribes and fails any command still waiting for a result.
func (l *Link[T]) Stop() error {
	l.mu.Lock()
	l.started = false
	for id, ch := range l.pending {
		close(ch)
		delete(l.pending, id)
	}
	l.mu.Unlock()

	topics := mqtt.Topics{}
	if err := l.client.Unsubscribe(topics.VendorSnapshot(l.domain, l.entryID)); err != nil {
		return fmt.Errorf("unsubscribing %s snapshots: %w", l.entryID, err)
	}
	if err := l.client.Unsubscribe(topics.VendorResult(l.domain, l.entryID)); err != nil {
		return fmt.Errorf("unsubscribing %s results: %w", l.entryID, err)
	}
	return nil
}

func (l *Link[T]) handleSnapshot(_ string, payload []byte) {
	var msg SnapshotMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.logger.Warn("undecodable vendor snapshot", "domain", l.domain, "entry_id", l.entryID, "error", err)
		l.sink.SetError(fmt.Errorf("%w: %w", ErrDecode, err))
		return
	}

	if msg.Error != "" {
		l.sink.SetError(fmt.Errorf("%w: %s", ErrVendor, msg.Error))
		return
	}

	var data T
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		l.logger.Warn("undecodable vendor snapshot data", "domain", l.domain, "entry_id", l.entryID, "error", err)
		l.sink.SetError(fmt.Errorf("%w: %w", ErrDecode, err))
		return
	}

	l.logger.Debug("vendor snapshot received", "domain", l.domain, "entry_id", l.entryID)
	l.sink.Update(data)
}

func (l *Link[T]) handleResult(_ string, payload []byte) {
	var msg ResultMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.ID == "" {
		l.logger.Warn("undecodable vendor command result", "domain", l.domain, "entry_id", l.entryID)
		return
	}

	l.mu.Lock()
	ch, ok := l.pending[msg.ID]
	if ok {
		delete(l.pending, msg.ID)
	}
	l.mu.Unlock()

	if ok {
		ch <- msg
	}
}

// Refresh asks the SDK process for a new snapshot. It implements
// coordinator.Refresher.
func (l *Link[T]) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(RefreshMessage{ID: uuid.NewString(), Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshalling refresh: %w", err)
	}
	if err := l.client.Publish(mqtt.Topics{}.VendorRefresh(l.domain, l.entryID), payload, l.qos, false); err != nil {
		return fmt.Errorf("publishing refresh for %s: %w", l.entryID, err)
	}
	return nil
}

// SendCommand asks the SDK process to call a vendor API method and, unless
// result waiting is disabled, waits for its result. A failed result is
// returned as an error wrapping ErrVendor.
func (l *Link[T]) SendCommand(ctx context.Context, method string, args map[string]any) error {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	cmd := CommandMessage{
		ID:        uuid.NewString(),
		Method:    method,
		Args:      args,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshalling command %s: %w", method, err)
	}

	var result chan ResultMessage
	if l.timeout > 0 {
		result = make(chan ResultMessage, 1)
		l.mu.Lock()
		l.pending[cmd.ID] = result
		l.mu.Unlock()
		defer l.forget(cmd.ID)
	}

	if err := l.client.Publish(mqtt.Topics{}.VendorCommand(l.domain, l.entryID), payload, l.qos, false); err != nil {
		return fmt.Errorf("publishing command %s: %w", method, err)
	}
	if result == nil {
		return nil
	}

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-result:
		if !ok {
			return ErrNotStarted
		}
		if !msg.Success {
			return fmt.Errorf("%w: %s: %s", ErrVendor, method, msg.Error)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s after %v", ErrTimeout, method, l.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Link[T]) forget(id string) {
	l.mu.Lock()
	delete(l.pending, id)
	l.mu.Unlock()
}
