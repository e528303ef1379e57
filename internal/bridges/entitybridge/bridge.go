package entitybridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/entity"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hub/internal/vendorlink"
)

// Bridge operation constants.
const (
	// minTopicParts is the minimum number of levels in a handled topic.
	minTopicParts = 3

	// DefaultCommandTimeout bounds one vendor command.
	DefaultCommandTimeout = 10 * time.Second

	// commandAttribution is how long after a successful command a state
	// change is recorded with the command source.
	commandAttribution = 30 * time.Second

	// historyTimeout bounds one state history write.
	historyTimeout = 5 * time.Second
)

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTClient is the subset of the MQTT client used by the bridge.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// TelemetryWriter receives every state change. *influxdb.Client satisfies it.
type TelemetryWriter interface {
	WriteEntityState(s influxdb.EntityState)
}

// Notifier signals that the data behind a set of entities changed.
// *coordinator.Coordinator satisfies it.
type Notifier interface {
	AddListener(fn func()) (remove func())
}

// Options holds configuration for creating a bridge.
type Options struct {
	// ID identifies the bridge in health messages.
	ID      string
	Version string

	MQTTClient MQTTClient
	Registry   *entity.Registry

	// History and Telemetry are optional.
	History   entity.StateHistoryRepository
	Telemetry TelemetryWriter

	HealthInterval time.Duration

	// CommandTimeout defaults to DefaultCommandTimeout.
	CommandTimeout time.Duration

	Logger Logger
}

// Bridge publishes entity state to MQTT and executes entity commands
// received from it.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	id             string
	mqtt           MQTTClient
	registry       *entity.Registry
	history        entity.StateHistoryRepository
	telemetry      TelemetryWriter
	health         *HealthReporter
	commandTimeout time.Duration
	logger         Logger

	// Last published state per unique ID, for change detection.
	stateCache   map[string]entity.State
	pendingCmd   map[string]time.Time
	stateCacheMu sync.Mutex

	// Per-entry command slots for platforms that limit parallel updates.
	limitersMu sync.Mutex
	limiters   map[string]chan struct{}

	watchMu sync.Mutex
	unwatch []func()

	listenersMu  sync.Mutex
	listeners    map[int]func(StateMessage)
	nextListener int

	commandsReceived atomic.Uint64
	commandsFailed   atomic.Uint64
	statesPublished  atomic.Uint64

	started  atomic.Bool
	stopped  atomic.Bool
	wg       sync.WaitGroup
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewBridge creates a bridge. Call Start to begin operation.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("entity registry is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		id:             opts.ID,
		mqtt:           opts.MQTTClient,
		registry:       opts.Registry,
		history:        opts.History,
		telemetry:      opts.Telemetry,
		commandTimeout: timeout,
		logger:         logger,
		stateCache:     make(map[string]entity.State),
		pendingCmd:     make(map[string]time.Time),
		limiters:       make(map[string]chan struct{}),
		listeners:      make(map[int]func(StateMessage)),
		ctx:            ctx,
		cancel:         cancel,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.ID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Counts:    b.healthCounts,
		Logger:    logger,
	})

	// Registering before Start keeps entities added during setup from
	// being missed. Their states are published once Start runs.
	opts.Registry.OnAdd(b.handleAdded)

	return b, nil
}

// Start subscribes to commands and requests, publishes the state of every
// registered entity and begins health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logger.Error("failed to publish starting status", "error", err)
	}

	topics := mqtt.Topics{}
	for _, topic := range []string{topics.EntityCommandAll(), topics.EntityRequestAll()} {
		if err := b.mqtt.Subscribe(topic, 1, b.handleMQTTMessage); err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		b.logger.Info("subscribed", "topic", topic)
	}

	b.started.Store(true)
	b.PublishAll(false)

	b.health.Start(ctx)

	b.logger.Info("entity bridge started",
		"bridge_id", b.id,
		"entities", b.registry.Count())
	return nil
}

// Stop cancels in-flight commands, stops watching coordinators and
// publishes a final stopping status. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.stopped.Store(true)
		b.cancel()

		b.watchMu.Lock()
		for _, remove := range b.unwatch {
			remove()
		}
		b.unwatch = nil
		b.watchMu.Unlock()

		b.health.Stop()
		b.wg.Wait()

		b.logger.Info("entity bridge stopped")
	})
}

// Watch republishes the changed states of an entry's entities whenever
// n signals an update.
func (b *Bridge) Watch(entry entity.ConfigEntry, n Notifier) {
	remove := n.AddListener(func() { b.PublishEntry(entry.EntryID) })

	b.watchMu.Lock()
	b.unwatch = append(b.unwatch, remove)
	b.watchMu.Unlock()
}

// PublishEntry publishes the states of one entry's entities that changed
// since they were last published.
func (b *Bridge) PublishEntry(entryID string) {
	if !b.active() {
		return
	}
	for _, reg := range b.registry.All() {
		if reg.Entry.EntryID == entryID {
			b.publishState(reg, false)
		}
	}
}

// PublishAll publishes every registered entity. With force set, unchanged
// states are republished too.
func (b *Bridge) PublishAll(force bool) int {
	n := 0
	for _, reg := range b.registry.All() {
		if _, published := b.publishState(reg, force); published {
			n++
		}
	}
	return n
}

// AddStateListener registers fn to receive every published state message.
func (b *Bridge) AddStateListener(fn func(StateMessage)) (remove func()) {
	b.listenersMu.Lock()
	id := b.nextListener
	b.nextListener++
	b.listeners[id] = fn
	b.listenersMu.Unlock()

	return func() {
		b.listenersMu.Lock()
		delete(b.listeners, id)
		b.listenersMu.Unlock()
	}
}

func (b *Bridge) notifyState(msg StateMessage) {
	b.listenersMu.Lock()
	fns := make([]func(StateMessage), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.listenersMu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
}

// State returns the last published state of an entity.
func (b *Bridge) State(uniqueID string) (entity.State, bool) {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()
	s, ok := b.stateCache[uniqueID]
	return s, ok
}

func (b *Bridge) active() bool {
	return b.started.Load() && !b.stopped.Load()
}

func (b *Bridge) handleAdded(reg entity.Registered) {
	if !b.active() {
		return
	}
	b.publishState(reg, false)
}

// handleMQTTMessage routes messages by the topic's second level.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logger.Error("invalid topic format", "topic", topic)
		return
	}

	switch parts[1] {
	case "command":
		b.handleCommand(topic, payload)
	case "request":
		b.handleRequest(payload)
	default:
		b.logger.Error("unknown message type", "topic", topic)
	}
}

// handleCommand runs commands on their own goroutine: a vendor command
// waits for a result delivered by the same MQTT client.
func (b *Bridge) handleCommand(topic string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.commandsReceived.Add(1)
		b.commandsFailed.Add(1)
		b.logger.Error("failed to parse command", "topic", topic, "error", err)
		return
	}
	if cmd.EntityID == "" {
		cmd.EntityID = mqtt.LastSegment(topic)
	}

	if b.stopped.Load() {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Execute(b.ctx, cmd)
	}()
}

// Execute runs cmd against its entity, publishes the ack and returns it.
// On success the entity's state is published after the ack.
func (b *Bridge) Execute(ctx context.Context, cmd CommandMessage) AckMessage {
	b.commandsReceived.Add(1)
	b.logger.Info("received command",
		"command_id", cmd.ID,
		"entity_id", cmd.EntityID,
		"command", cmd.Command,
		"source", cmd.Source)

	ack, reg := b.execute(ctx, cmd)
	if ack.Status != AckAccepted {
		b.commandsFailed.Add(1)
		b.logger.Warn("command failed",
			"command_id", cmd.ID,
			"entity_id", cmd.EntityID,
			"code", ack.Error.Code,
			"message", ack.Error.Message)
	}
	b.publishJSON(mqtt.Topics{}.EntityAck(cmd.EntityID), ack, false)

	if ack.Status == AckAccepted {
		b.publishState(reg, false)
	}
	return ack
}

func (b *Bridge) execute(ctx context.Context, cmd CommandMessage) (AckMessage, entity.Registered) {
	if b.stopped.Load() {
		return NewAckError(cmd, ErrCodeTimeout, "bridge stopping"), entity.Registered{}
	}
	reg, err := b.registry.Get(cmd.EntityID)
	if err != nil {
		return NewAckError(cmd, ErrCodeNotConfigured, fmt.Sprintf("entity %s not configured", cmd.EntityID)), reg
	}
	light, ok := reg.Entity.(entity.Light)
	if !ok {
		return NewAckError(cmd, ErrCodeInvalidCommand,
			fmt.Sprintf("entity %s is a %s and accepts no commands", cmd.EntityID, reg.Entity.Platform())), reg
	}

	var run func(ctx context.Context) error
	switch cmd.Command {
	case CommandTurnOn:
		params, err := ParseTurnOnParams(light, cmd.Parameters)
		if err != nil {
			return NewAckError(cmd, ErrCodeInvalidParameters, err.Error()), reg
		}
		run = func(ctx context.Context) error { return light.TurnOn(ctx, params) }
	case CommandTurnOff:
		run = light.TurnOff
	default:
		return NewAckError(cmd, ErrCodeInvalidCommand,
			fmt.Sprintf("%v: %q", ErrUnknownCommand, cmd.Command)), reg
	}

	ctx, cancel := context.WithTimeout(ctx, b.commandTimeout)
	defer cancel()
	stop := context.AfterFunc(b.ctx, cancel)
	defer stop()

	release, err := b.acquire(ctx, reg)
	if err != nil {
		return NewAckError(cmd, ErrCodeTimeout, "no command slot: "+err.Error()), reg
	}
	defer release()

	if err := run(ctx); err != nil {
		code := ErrCodeDeviceUnreachable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, vendorlink.ErrTimeout) {
			code = ErrCodeTimeout
		}
		return NewAckError(cmd, code, err.Error()), reg
	}

	b.stateCacheMu.Lock()
	b.pendingCmd[cmd.EntityID] = time.Now()
	b.stateCacheMu.Unlock()

	return NewAckMessage(cmd, AckAccepted), reg
}

// acquire takes a command slot when the entity's platform limits parallel
// updates. The returned func releases it.
func (b *Bridge) acquire(ctx context.Context, reg entity.Registered) (func(), error) {
	limiter, ok := reg.Entity.(entity.ParallelLimiter)
	if !ok || limiter.ParallelUpdates() <= 0 {
		return func() {}, nil
	}

	key := reg.Entry.EntryID + "/" + string(reg.Entity.Platform())
	b.limitersMu.Lock()
	slots, ok := b.limiters[key]
	if !ok {
		slots = make(chan struct{}, limiter.ParallelUpdates())
		b.limiters[key] = slots
	}
	b.limitersMu.Unlock()

	select {
	case slots <- struct{}{}:
		return func() { <-slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bridge) handleRequest(payload []byte) {
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logger.Error("failed to parse request", "error", err)
		return
	}

	b.logger.Info("received request", "request_id", req.RequestID, "action", req.Action)

	var resp ResponseMessage
	switch req.Action {
	case ActionReadAll:
		n := b.PublishAll(true)
		resp = newResponse(req, map[string]any{"states_published": n})
	case ActionReadState:
		resp = b.handleReadState(req)
	default:
		resp = newErrorResponse(req, ErrCodeInvalidCommand, fmt.Sprintf("unknown action: %s", req.Action))
	}

	b.publishJSON(mqtt.Topics{}.EntityResponse(req.RequestID), resp, false)
}

func (b *Bridge) handleReadState(req RequestMessage) ResponseMessage {
	reg, err := b.registry.Get(req.EntityID)
	if err != nil {
		return newErrorResponse(req, ErrCodeNotConfigured, fmt.Sprintf("entity %s not configured", req.EntityID))
	}
	state, _ := b.publishState(reg, true)
	return newResponse(req, map[string]any{"state": state})
}

// publishState reads the entity and publishes its state when it changed
// or force is set. Changes are also recorded in history and telemetry.
func (b *Bridge) publishState(reg entity.Registered, force bool) (entity.State, bool) {
	state := entity.StateOf(reg.Entity)
	uid := state.UniqueID

	b.stateCacheMu.Lock()
	prev, seen := b.stateCache[uid]
	changed := !seen || !prev.Equal(state)
	if !changed && !force {
		b.stateCacheMu.Unlock()
		return state, false
	}
	b.stateCache[uid] = state
	source := entity.HistorySourceCoordinator
	if changed {
		if at, ok := b.pendingCmd[uid]; ok {
			delete(b.pendingCmd, uid)
			if time.Since(at) <= commandAttribution {
				source = entity.HistorySourceCommand
			}
		}
	}
	b.stateCacheMu.Unlock()

	msg := NewStateMessage(reg, state)
	b.publishJSON(mqtt.Topics{}.EntityState(uid), msg, true)
	b.statesPublished.Add(1)
	b.notifyState(msg)

	if changed {
		b.record(reg, state, source)
	}
	return state, true
}

func (b *Bridge) record(reg entity.Registered, state entity.State, source string) {
	if b.history != nil {
		ctx, cancel := context.WithTimeout(b.ctx, historyTimeout)
		if err := b.history.RecordStateChange(ctx, state, source); err != nil {
			b.logger.Warn("failed to record state history", "entity_id", state.UniqueID, "error", err)
		}
		cancel()
	}
	if b.telemetry != nil {
		b.telemetry.WriteEntityState(influxdb.EntityState{
			UniqueID:   state.UniqueID,
			Platform:   string(state.Platform),
			Domain:     reg.Entry.Domain,
			On:         state.On,
			Available:  state.Available,
			Attributes: state.Attributes,
			Time:       state.UpdatedAt,
		})
	}
}

func (b *Bridge) publishJSON(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("failed to marshal message", "topic", topic, "error", err)
		return
	}
	if err := b.mqtt.Publish(topic, payload, 1, retained); err != nil {
		b.logger.Error("failed to publish", "topic", topic, "error", err)
	}
}

// ClearStateCache forgets published states so the next update republishes
// everything.
func (b *Bridge) ClearStateCache() {
	b.stateCacheMu.Lock()
	clear(b.stateCache)
	b.stateCacheMu.Unlock()
}

func (b *Bridge) healthCounts() HealthCounts {
	c := HealthCounts{
		ByPlatform: b.registry.CountByPlatform(),
		Total:      b.registry.Count(),
		Stats:      b.Statistics(),
	}
	b.stateCacheMu.Lock()
	for _, s := range b.stateCache {
		if !s.Available {
			c.Unavailable++
		}
	}
	b.stateCacheMu.Unlock()
	return c
}

// Statistics returns the bridge counters.
func (b *Bridge) Statistics() BridgeStatistics {
	return BridgeStatistics{
		CommandsReceived: b.commandsReceived.Load(),
		CommandsFailed:   b.commandsFailed.Load(),
		StatesPublished:  b.statesPublished.Load(),
	}
}
