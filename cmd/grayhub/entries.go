package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-hub/internal/api"
	"github.com/nerrad567/gray-logic-hub/internal/bridges/entitybridge"
	"github.com/nerrad567/gray-logic-hub/internal/coordinator"
	"github.com/nerrad567/gray-logic-hub/internal/entity"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hub/internal/integrations/comelit"
	"github.com/nerrad567/gray-logic-hub/internal/integrations/fritzbox"
	"github.com/nerrad567/gray-logic-hub/internal/integrations/yale"
	"github.com/nerrad567/gray-logic-hub/internal/process"
	"github.com/nerrad567/gray-logic-hub/internal/vendorlink"
)

var errUnsupportedDomain = errors.New("unsupported integration domain")

var errNoSnapshot = errors.New("no successful vendor snapshot")

// entryCoordinator is the type-independent part of a vendor coordinator.
type entryCoordinator interface {
	WaitReady(ctx context.Context) error
	RequestRefresh(ctx context.Context) error
	LastUpdateSuccess() bool
	LastUpdate() time.Time
	AddListener(fn func()) (remove func())
	Close()
}

type entryLink interface {
	Start() error
	Stop() error
}

// entityWatcher republishes entity states when a coordinator updates.
// *entitybridge.Bridge satisfies it.
type entityWatcher interface {
	Watch(entry entity.ConfigEntry, n entitybridge.Notifier)
}

// binding is one entry's coordinator, link and platform setup.
type binding struct {
	coord entryCoordinator
	link  entryLink

	// setup registers the entry's entities. It may return a func that
	// stops later additions.
	setup func() (remove func())
}

type entryDeps struct {
	bus          vendorlink.MQTTClient
	registry     *entity.Registry
	watcher      entityWatcher
	cooldown     time.Duration
	setupTimeout time.Duration
	broker       config.MQTTBrokerConfig
	log          *logging.Logger
}

// loadedEntry is a configuration entry whose link is running.
type loadedEntry struct {
	entry entity.ConfigEntry
	b     binding
	sdk   *process.Manager

	mu       sync.Mutex
	removes  []func()
	ready    bool
	unloaded bool
}

func (e *loadedEntry) isReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func readyCount(entries []*loadedEntry) int {
	n := 0
	for _, e := range entries {
		if e.isReady() {
			n++
		}
	}
	return n
}

// status reports the entry for the API.
func (e *loadedEntry) status() api.EntryStatus {
	st := api.EntryStatus{
		Domain:            e.entry.Domain,
		EntryID:           e.entry.EntryID,
		Title:             e.entry.Title,
		Ready:             e.isReady(),
		LastUpdateSuccess: e.b.coord.LastUpdateSuccess(),
		LastUpdate:        e.b.coord.LastUpdate(),
	}
	if e.sdk != nil {
		stats := e.sdk.Stats()
		st.SDK = &stats
	}
	return st
}

// entryStatuses snapshots every loaded entry.
func entryStatuses(entries []*loadedEntry) []api.EntryStatus {
	out := make([]api.EntryStatus, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.status())
	}
	return out
}

// unload stops watching for new entities, stops the link and closes the
// coordinator.
func (e *loadedEntry) unload() {
	e.mu.Lock()
	removes := e.removes
	e.removes = nil
	e.unloaded = true
	e.mu.Unlock()

	for _, remove := range removes {
		remove()
	}
	if e.sdk != nil {
		_ = e.sdk.Stop() //nolint:errcheck // Best-effort during shutdown
	}
	_ = e.b.link.Stop() //nolint:errcheck // Best-effort during shutdown
	e.b.coord.Close()
}

// setupEntries binds and sets up every enabled entry concurrently. An entry
// whose first snapshot does not arrive in time is set up once it does.
func setupEntries(ctx context.Context, cfg *config.Config, bus vendorlink.MQTTClient, registry *entity.Registry, watcher entityWatcher, log *logging.Logger) ([]*loadedEntry, error) {
	cooldown := cfg.GetRefreshCooldown()
	if cooldown == 0 {
		// Zero in the config disables debouncing; zero in coordinator
		// options selects the default.
		cooldown = -1
	}
	deps := entryDeps{
		bus:          bus,
		registry:     registry,
		watcher:      watcher,
		cooldown:     cooldown,
		setupTimeout: cfg.GetSetupTimeout(),
		broker:       cfg.MQTT.Broker,
		log:          log,
	}

	enabled := cfg.EnabledIntegrations()
	loaded := make([]*loadedEntry, len(enabled))

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range enabled {
		g.Go(func() error {
			e, err := setupEntry(ctx, gctx, in, deps)
			if err != nil {
				return fmt.Errorf("entry %s (%s): %w", in.EntryID, in.Domain, err)
			}
			loaded[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, e := range loaded {
			if e != nil {
				e.unload()
			}
		}
		return nil, err
	}
	return loaded, nil
}

// setupEntry starts one entry. ctx bounds the entry's lifetime and
// setupCtx only the wait for its first snapshot.
func setupEntry(ctx, setupCtx context.Context, in config.IntegrationConfig, deps entryDeps) (*loadedEntry, error) {
	entry := entity.ConfigEntry{EntryID: in.EntryID, Domain: in.Domain, Title: in.Title}

	b, err := bind(ctx, entry, deps)
	if err != nil {
		return nil, err
	}
	if err := b.link.Start(); err != nil {
		b.coord.Close()
		return nil, fmt.Errorf("starting vendor link: %w", err)
	}

	e := &loadedEntry{entry: entry, b: b}
	log := deps.log.Entry(entry.Domain, entry.EntryID)

	if in.SDK != nil {
		// The link subscribes first so the SDK's first snapshot is not missed.
		e.sdk = newSDKManager(in, b.coord, deps)
		if err := e.sdk.Start(ctx); err != nil {
			_ = b.link.Stop() //nolint:errcheck // Setup already failed
			b.coord.Close()
			return nil, fmt.Errorf("starting vendor sdk: %w", err)
		}
	}

	if err := b.coord.RequestRefresh(setupCtx); err != nil {
		log.Warn("initial refresh request failed", "error", err)
	}

	waitCtx, cancel := context.WithTimeout(setupCtx, deps.setupTimeout)
	err = b.coord.WaitReady(waitCtx)
	cancel()
	if err == nil {
		finishSetup(ctx, e, deps, log)
		return e, nil
	}

	log.Warn("entry not ready, setup deferred", "error", err)
	go func() {
		if err := waitForSuccess(ctx, b.coord); err != nil {
			return
		}
		finishSetup(ctx, e, deps, log)
	}()
	return e, nil
}

// newSDKManager builds the supervisor for an entry's vendor SDK process.
// The SDK learns its entry and link topics from the environment. It is
// killed and restarted while its coordinator's last update is a failure.
func newSDKManager(in config.IntegrationConfig, coord entryCoordinator, deps entryDeps) *process.Manager {
	env := []string{
		"GRAYHUB_DOMAIN=" + in.Domain,
		"GRAYHUB_ENTRY_ID=" + in.EntryID,
		"GRAYHUB_TOPIC=" + mqtt.Topics{}.VendorBase(in.Domain, in.EntryID),
		"GRAYHUB_MQTT_HOST=" + deps.broker.Host,
		"GRAYHUB_MQTT_PORT=" + strconv.Itoa(deps.broker.Port),
	}
	keys := make([]string, 0, len(in.SDK.Env))
	for k := range in.SDK.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+in.SDK.Env[k])
	}

	name := in.Domain + "/" + in.EntryID
	log := deps.log.Component("sdk").Entry(in.Domain, in.EntryID)

	mgr := process.NewManager(process.Config{
		Name:               name,
		Binary:             in.SDK.Command,
		Args:               in.SDK.Args,
		Env:                env,
		WorkDir:            in.SDK.WorkDir,
		RestartOnFailure:   true,
		RestartDelay:       in.SDK.GetRestartDelay(),
		MaxRestartAttempts: in.SDK.MaxRestarts,
		HealthCheckFunc: func(context.Context) error {
			if !coord.LastUpdateSuccess() {
				return errNoSnapshot
			}
			return nil
		},
		OnRestart: func(attempt int) {
			log.Info("vendor sdk restarting", "attempt", attempt)
		},
	})
	mgr.SetLogger(log)
	return mgr
}

// bind creates the coordinator and link for an entry's domain.
func bind(ctx context.Context, entry entity.ConfigEntry, deps entryDeps) (binding, error) {
	copts := coordinator.Options{Cooldown: deps.cooldown, Logger: deps.log}
	lopts := vendorlink.Options{QoS: 1, Logger: deps.log}
	add := deps.registry.AddEntitiesFunc(ctx, entry)

	switch entry.Domain {
	case config.DomainComelit:
		coord, link := vendorlink.Bind[comelit.Data](deps.bus, entry.Domain, entry.EntryID, copts, lopts)
		bridge := comelit.NewSerialBridge(entry, coord, comelit.NewLinkAPI(link))
		return binding{coord: coord, link: link, setup: func() func() {
			comelit.SetupEntry(entry, bridge, add)
			return nil
		}}, nil

	case config.DomainYale:
		coord, link := vendorlink.Bind[yale.Data](deps.bus, entry.Domain, entry.EntryID, copts, lopts)
		alarm := yale.NewAlarm(entry, coord)
		return binding{coord: coord, link: link, setup: func() func() {
			yale.SetupEntry(alarm, add)
			return nil
		}}, nil

	case config.DomainFritzbox:
		coord, link := vendorlink.Bind[fritzbox.Data](deps.bus, entry.Domain, entry.EntryID, copts, lopts)
		box := fritzbox.NewBox(coord, fritzbox.NewLinkAPI(link))
		return binding{coord: coord, link: link, setup: func() func() {
			return fritzbox.SetupEntry(box, add)
		}}, nil

	default:
		return binding{}, fmt.Errorf("%w: %s", errUnsupportedDomain, entry.Domain)
	}
}

// finishSetup registers the entry's entities, hands its coordinator to the
// bridge and deletes records of devices that no longer exist. It does
// nothing for an entry that has been unloaded.
func finishSetup(ctx context.Context, e *loadedEntry, deps entryDeps, log *logging.Logger) {
	e.mu.Lock()
	unloaded := e.unloaded
	e.mu.Unlock()
	if unloaded {
		return
	}

	remove := e.b.setup()

	e.mu.Lock()
	if e.unloaded {
		// Unloaded while the platform was being set up.
		e.mu.Unlock()
		if remove != nil {
			remove()
		}
		return
	}
	if remove != nil {
		e.removes = append(e.removes, remove)
	}
	e.ready = true
	e.mu.Unlock()

	deps.watcher.Watch(e.entry, e.b.coord)

	n, err := deps.registry.Prune(ctx, e.entry)
	if err != nil {
		log.Warn("pruning stale entity records failed", "error", err)
	}
	log.Info("entry set up",
		"entities", len(deps.registry.ByEntry(e.entry.EntryID)),
		"pruned", n)
}

// waitForSuccess blocks until the coordinator has a successful update.
func waitForSuccess(ctx context.Context, coord entryCoordinator) error {
	ok := make(chan struct{}, 1)
	remove := coord.AddListener(func() {
		if coord.LastUpdateSuccess() {
			select {
			case ok <- struct{}{}:
			default:
			}
		}
	})
	defer remove()

	if coord.LastUpdateSuccess() {
		return nil
	}
	select {
	case <-ok:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
