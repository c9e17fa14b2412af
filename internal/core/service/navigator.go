package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
	"github.com/yndnr/dxshell-go/internal/telemetry/metric"
)

// firstLaunchDone is the value stored under KeyFirstLaunch. Only the key's
// presence is checked.
const firstLaunchDone = "true"

// NavigatorConfig holds configuration for Navigator.
type NavigatorConfig struct {
	// Mode selects the active screen shown after registration.
	Mode domain.DeploymentMode

	// RetryInterval is the minimum gap between handshakes started by
	// reconnects (default: 10s).
	RetryInterval time.Duration
}

// DefaultNavigatorConfig returns default configuration.
func DefaultNavigatorConfig() *NavigatorConfig {
	return &NavigatorConfig{
		Mode:          domain.ModeWeb,
		RetryInterval: 10 * time.Second,
	}
}

// NavigatorDeps are the collaborators of a Navigator.
type NavigatorDeps struct {
	Store     KeyValueStore
	Session   *SessionStore
	Registrar Handshaker
	Web       WebSurface
	Metrics   *metric.Registry
	Logger    logger.Logger
}

// Navigator is the connectivity and navigation state machine.
//
// Every change to the navigation context happens under mu, and the active
// screen is updated in the same critical section that issues the command
// to the navigation surface. User transitions bump a generation counter;
// an entry resolution whose generation is stale when its handshake returns
// is discarded.
type Navigator struct {
	kv        KeyValueStore
	session   *SessionStore
	registrar Handshaker
	web       WebSurface
	mode      domain.DeploymentMode
	metrics   *metric.Registry
	logger    logger.Logger
	retry     *rate.Limiter

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	active     domain.Screen
	handle     NavigationHandle
	restore    domain.Screen
	connected  bool
	generation uint64
	resolving  bool
	// resolveGen is the generation of the latest ResolveEntry.
	resolveGen uint64
}

// NewNavigator creates a Navigator on the Init screen. Connectivity is
// assumed until Run learns otherwise.
func NewNavigator(deps NavigatorDeps, config *NavigatorConfig) *Navigator {
	if config == nil {
		config = DefaultNavigatorConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	interval := config.RetryInterval
	if interval <= 0 {
		interval = DefaultNavigatorConfig().RetryInterval
	}

	bg, cancel := context.WithCancel(context.Background())
	return &Navigator{
		kv:        deps.Store,
		session:   deps.Session,
		registrar: deps.Registrar,
		web:       deps.Web,
		mode:      config.Mode,
		metrics:   deps.Metrics,
		logger:    log.With("component", "navigator"),
		retry:     rate.NewLimiter(rate.Every(interval), 1),
		bg:        bg,
		cancel:    cancel,
		active:    domain.ScreenInit,
		connected: true,
	}
}

// Attach registers the navigation context of a freshly mounted screen. The
// most recent context is the one later transitions and restores go through.
func (n *Navigator) Attach(screen domain.Screen, handle NavigationHandle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = screen
	n.handle = handle
	n.logger.Debug("navigation context attached", "screen", screen)
}

// ResolveEntry decides the first screen.
//
// Without the first-launch marker the answer is Welcome, whatever the
// handshake (started in the background) does. With the marker the
// handshake runs first: success or a cached token leads to the active
// screen, anything else to Error.
func (n *Navigator) ResolveEntry(ctx context.Context) (domain.Screen, error) {
	n.mu.Lock()
	if n.handle == nil {
		n.mu.Unlock()
		return "", domain.ErrNoNavigationHandle
	}
	n.generation++
	gen := n.generation
	n.resolving = true
	n.resolveGen = gen
	if n.active == domain.ScreenOffline {
		n.restore = domain.ScreenInit
	} else {
		n.navigateLocked(domain.ScreenInit)
	}
	n.mu.Unlock()

	dest := n.decideEntry(ctx)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.generation != gen {
		// A user transition ended this resolution and no newer one runs.
		if n.resolveGen == gen {
			n.resolving = false
		}
		n.logger.Info("entry resolution superseded", "destination", dest)
		return "", domain.ErrSuperseded
	}
	n.resolving = false
	if n.active == domain.ScreenOffline {
		n.restore = dest
		n.logger.Info("entry resolved while offline", "destination", dest)
		return dest, nil
	}
	n.enterLocked(dest)
	return dest, nil
}

func (n *Navigator) decideEntry(ctx context.Context) domain.Screen {
	_, seen, err := n.kv.Get(ctx, KeyFirstLaunch)
	if err != nil {
		n.logger.Warn("first-launch marker read failed, treating as first launch", "error", err)
		seen = false
	}
	if !seen {
		n.goBackground("first launch registration", func(ctx context.Context) {
			if _, err := n.registrar.Register(ctx); err != nil {
				n.logger.Info("first launch registration failed", "error", err)
			}
		})
		return domain.ScreenWelcome
	}

	_, err = n.registrar.Register(ctx)
	if err == nil {
		return n.mode.ActiveScreen()
	}
	n.logger.Warn("registration failed during entry", "error", err)
	if _, ok := n.session.Token(ctx); ok {
		return n.mode.ActiveScreen()
	}
	return domain.ScreenError
}

// Proceed leaves Welcome for the active screen, writing the first-launch
// marker first. A failed write keeps the user on Welcome.
func (n *Navigator) Proceed(ctx context.Context) error {
	n.mu.Lock()
	if n.active != domain.ScreenWelcome {
		active := n.active
		n.mu.Unlock()
		return domain.ErrInvalidTransition.WithDetails("proceed from " + active.String())
	}
	gen := n.generation
	n.mu.Unlock()

	if err := n.kv.Set(ctx, KeyFirstLaunch, firstLaunchDone); err != nil {
		return domain.ErrStorageWrite.WithDetails("persist first-launch marker").WithCause(err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active != domain.ScreenWelcome || n.generation != gen {
		return domain.ErrSuperseded
	}
	n.generation++
	n.enterLocked(n.mode.ActiveScreen())
	return nil
}

// Retry leaves Error: the persisted token is cleared and entry resolution
// runs again from Init.
func (n *Navigator) Retry(ctx context.Context) (domain.Screen, error) {
	n.mu.Lock()
	if n.active != domain.ScreenError {
		active := n.active
		n.mu.Unlock()
		return "", domain.ErrInvalidTransition.WithDetails("retry from " + active.String())
	}
	n.mu.Unlock()

	if err := n.session.ClearToken(ctx); err != nil {
		return "", err
	}
	return n.ResolveEntry(ctx)
}

// OnConnectivity applies one connectivity report. Only changes of the
// connected flag act; repeated reports are ignored.
func (n *Navigator) OnConnectivity(state domain.ConnectivityState) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if state.IsConnected == n.connected {
		return
	}
	n.connected = state.IsConnected
	n.metrics.ObserveConnectivity(state.IsConnected)

	if !state.IsConnected {
		if n.active == domain.ScreenOffline {
			return
		}
		n.restore = n.active
		n.logger.Info("connection lost", "restore", n.restore)
		n.navigateLocked(domain.ScreenOffline)
		return
	}

	if n.active != domain.ScreenOffline {
		return
	}
	target := n.restore
	if target == "" {
		target = domain.ScreenInit
	}
	n.restore = ""
	n.logger.Info("connection restored", "restore", target)
	n.enterLocked(target)

	if target == domain.ScreenInit {
		if !n.resolving {
			n.goBackground("entry resolution after reconnect", func(ctx context.Context) {
				if _, err := n.ResolveEntry(ctx); err != nil {
					n.logger.Info("entry resolution after reconnect ended", "error", err)
				}
			})
		}
		return
	}

	if _, ok := n.session.Cached(); !ok && n.retry.Allow() {
		n.goBackground("handshake after reconnect", n.reconnectHandshake)
	}
}

func (n *Navigator) reconnectHandshake(ctx context.Context) {
	if _, err := n.registrar.Register(ctx); err != nil {
		n.logger.Info("handshake after reconnect failed", "error", err)
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active == domain.ScreenWebWrapper && n.web != nil {
		n.web.Reload(n.session.WebWrapperURL())
	}
}

// Run feeds connectivity reports from src into the navigator until ctx ends
// or the source closes. The source's current state, when it has one,
// replaces the assumed initial state without navigating.
func (n *Navigator) Run(ctx context.Context, src ConnectivitySource) error {
	if st, ok := src.Current(ctx); ok {
		n.mu.Lock()
		n.connected = st.IsConnected
		n.mu.Unlock()
		n.logger.Debug("initial connectivity", "connected", st.IsConnected)
	}

	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-events:
			if !ok {
				return nil
			}
			n.OnConnectivity(st)
		}
	}
}

// InterceptBack handles a back gesture. While the web surface is showing it
// forwards a navigateBack message to the web content and reports true,
// meaning the screen must stay.
func (n *Navigator) InterceptBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active != domain.ScreenWebWrapper || n.web == nil {
		return false
	}
	data, err := domain.EncodeBridgeMessage(domain.NavigateBack{})
	if err != nil {
		n.logger.Error("encode navigateBack failed", "error", err)
		return false
	}
	n.web.PostMessage(data)
	return true
}

// State returns a copy of the controller state.
func (n *Navigator) State() SessionState {
	_, hasToken := n.session.Cached()
	n.mu.Lock()
	defer n.mu.Unlock()
	return SessionState{
		ActiveScreen:  n.active,
		RestoreScreen: n.restore,
		Connected:     n.connected,
		HasToken:      hasToken,
		HandleBound:   n.handle != nil,
	}
}

// Close stops background work and waits for it to finish.
func (n *Navigator) Close() {
	n.cancel()
	n.wg.Wait()
}

// navigateLocked records to as the active screen and commands the surface.
func (n *Navigator) navigateLocked(to domain.Screen) {
	from := n.active
	if from == to {
		return
	}
	n.active = to
	n.metrics.ObserveTransition(from.String(), to.String())
	if n.handle == nil {
		n.logger.Warn("no navigation handle, screen recorded only", "to", to)
		return
	}
	n.logger.Debug("navigate", "from", from, "to", to)
	n.handle.Navigate(to)
}

// enterLocked navigates to and loads fresh web content when to is the web
// screen.
func (n *Navigator) enterLocked(to domain.Screen) {
	n.navigateLocked(to)
	if to == domain.ScreenWebWrapper && n.web != nil {
		n.web.Reload(n.session.WebWrapperURL())
	}
}

func (n *Navigator) goBackground(name string, fn func(ctx context.Context)) {
	if n.bg.Err() != nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("background task panicked", "task", name, "panic", r)
			}
		}()
		fn(logger.WithRequestID(n.bg, logger.NewRequestID()))
	}()
}
