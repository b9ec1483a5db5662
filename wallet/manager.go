package wallet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/luca-patrignani/chainplay/bridge"
	"github.com/luca-patrignani/chainplay/metrics"
	"github.com/luca-patrignani/chainplay/status"
	"github.com/luca-patrignani/chainplay/tasks"
)

// ErrConnectTimeout settles WaitConnected when the connect window closed
// before the player approved the wallet.
var ErrConnectTimeout = errors.New("wallet connect timed out")

// Action is work deferred until the wallet is connected.
type Action func(ctx context.Context)

type pendingAction struct {
	name string
	fn   Action
}

// URLOpener shows the connect page to the player, usually in a browser.
type URLOpener func(url string) error

// Manager owns the player's wallet session and the actions waiting for it.
type Manager struct {
	client  *bridge.Client
	status  *status.Channel
	tasks   *tasks.Group
	poller  *tasks.Group
	log     *slog.Logger
	metrics *metrics.Metrics
	openURL URLOpener

	connectTimeout time.Duration
	pollInterval   time.Duration

	mu         sync.Mutex
	session    Session
	pending    []pendingAction
	connecting bool

	settled    chan struct{}
	settleOnce sync.Once
	settleErr  error
}

type Option func(*Manager)

// WithConnectTimeout bounds the background wait for the player's approval.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) { m.connectTimeout = d }
}

// WithPollInterval sets the pause between account probes.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.pollInterval = d }
}

// WithURLOpener sets how the connect page is shown. Without one the URL
// only appears in the toast.
func WithURLOpener(open URLOpener) Option {
	return func(m *Manager) { m.openURL = open }
}

// WithTasks runs actions, direct and replayed, in g. The poll loop runs
// there too unless WithPollGroup gives it its own group.
func WithTasks(g *tasks.Group) Option {
	return func(m *Manager) { m.tasks = g }
}

// WithPollGroup runs the connect poll loop in g, keeping it out of the
// group actions are waited on.
func WithPollGroup(g *tasks.Group) Option {
	return func(m *Manager) { m.poller = g }
}

// WithLogger sets the logger; nil keeps slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithMetrics records connection and queue metrics in mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager checks that the bridge is up. An unreachable or unhealthy
// bridge is reported as a *bridge.ConnectionError.
func NewManager(ctx context.Context, client *bridge.Client, st *status.Channel, opts ...Option) (*Manager, error) {
	m := &Manager{
		client:         client,
		status:         st,
		log:            slog.Default(),
		connectTimeout: 300 * time.Second,
		pollInterval:   2 * time.Second,
		settled:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tasks == nil {
		m.tasks = tasks.New(context.Background(), 0, m.log)
	}
	if m.poller == nil {
		m.poller = m.tasks
	}

	ok, err := client.Health(ctx)
	if err != nil {
		return nil, &bridge.ConnectionError{URL: client.BaseURL(), Err: err}
	}
	if !ok {
		return nil, &bridge.ConnectionError{URL: client.BaseURL(), Err: errors.New("bridge unhealthy")}
	}
	return m, nil
}

// Connect links the player's wallet. A wallet already known to the bridge
// connects the session immediately; otherwise the connect page is opened
// and a background loop waits for the player to approve it. Connect
// returns without waiting for that approval.
func (m *Manager) Connect(ctx context.Context, playerID, displayName string) (Session, error) {
	m.mu.Lock()
	if m.session.Connected || m.connecting {
		s := m.session
		m.mu.Unlock()
		return s, nil
	}
	m.connecting = true
	m.mu.Unlock()

	acct, err := m.client.Account(ctx, playerID)
	if err != nil {
		m.abortConnect()
		return Session{}, err
	}
	if acct.Connected && acct.Address != "" {
		m.log.Info("wallet already connected", "address", acct.Address)
		m.establish(acct.Address)
		return m.Session(), nil
	}

	connectURL, err := m.client.ConnectPlayer(ctx, playerID, displayName)
	if err != nil {
		m.abortConnect()
		return Session{}, err
	}
	m.log.Info("connect wallet in browser", "url", connectURL)
	if connectURL != "" {
		if m.openURL != nil {
			if err := m.openURL(connectURL); err != nil {
				m.log.Warn("could not open connect page", "url", connectURL, "err", err)
			}
		}
		m.status.SetToast("Opened: "+connectURL, status.Negative, 15*time.Second)
	}
	m.status.SetPersistent("⏳ Web3: connect wallet in browser…", status.Negative)

	if !m.poller.Go("wallet-connect", func(ctx context.Context) { m.poll(ctx, playerID) }) {
		m.settle(tasks.ErrBusy)
		return m.Session(), tasks.ErrBusy
	}
	return m.Session(), nil
}

func (m *Manager) abortConnect() {
	m.mu.Lock()
	m.connecting = false
	m.mu.Unlock()
}

// poll asks the bridge for the player's account until it reports a wallet
// or the connect window closes. Probe failures are retried.
func (m *Manager) poll(ctx context.Context, playerID string) {
	deadline := time.Now().Add(m.connectTimeout)
	for time.Now().Before(deadline) {
		acct, err := m.client.Account(ctx, playerID)
		if err != nil {
			m.log.Debug("wallet probe failed", "err", err)
		} else if acct.Connected && acct.Address != "" {
			m.log.Info("wallet connected", "address", acct.Address)
			m.status.SetToast("✓ Wallet connected — Web3 active!", status.Positive, 5*time.Second)
			m.establish(acct.Address)
			return
		}

		timer := time.NewTimer(m.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.settle(ctx.Err())
			return
		case <-timer.C:
		}
	}

	m.log.Warn("wallet connect timed out", "after", m.connectTimeout)
	m.status.SetToast("✗ Wallet connect timed out — actions won't be recorded", status.Negative, 10*time.Second)
	m.status.SetPersistent("✦ Web3 OFF — wallet not connected", status.Negative)
	m.settle(ErrConnectTimeout)
}

// establish connects the session and replays whatever was queued before.
// The queue is taken under the same lock that flips Connected, so every
// action lands either in the replayed batch or runs directly. Replays are
// started before WaitConnected is released.
func (m *Manager) establish(address string) {
	m.mu.Lock()
	if m.session.Connected {
		m.mu.Unlock()
		return
	}
	m.session = newSession(address)
	m.connecting = false
	queued := m.pending
	m.pending = nil
	m.mu.Unlock()

	m.metrics.WalletConnected(true)
	m.status.SetPersistent("✦ Web3 ON  "+Truncate(address, 8)+"…", status.Positive)
	m.flush(queued)
	m.settle(nil)
}

func (m *Manager) flush(queued []pendingAction) {
	if len(queued) == 0 {
		return
	}
	m.log.Info("replaying queued actions", "count", len(queued))
	for _, p := range queued {
		if !m.tasks.Go(p.name, p.fn) {
			// the group refused: run it here so it is still attempted once
			m.log.Warn("task group full, replaying inline", "action", p.name)
			p.fn(m.tasks.Context())
		}
	}
}

func (m *Manager) settle(err error) {
	m.settleOnce.Do(func() {
		m.settleErr = err
		close(m.settled)
	})
}

// EnqueueOrRun starts fn now when the wallet is connected, otherwise it
// queues fn to be replayed once after connection. It reports whether fn
// was queued. tasks.ErrBusy means fn was dropped.
func (m *Manager) EnqueueOrRun(name string, fn Action) (bool, error) {
	m.mu.Lock()
	if !m.session.Connected {
		m.pending = append(m.pending, pendingAction{name: name, fn: fn})
		m.mu.Unlock()
		m.metrics.PendingQueued()
		m.log.Debug("action queued until wallet connects", "action", name)
		return true, nil
	}
	m.mu.Unlock()

	if !m.tasks.Go(name, fn) {
		return false, tasks.ErrBusy
	}
	return false, nil
}

// Pending returns the number of queued actions.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// IsConnected reports whether the session has a wallet.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Connected
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// WaitConnected blocks until the connect attempt settles. It returns nil
// once connected and ErrConnectTimeout when the window closed first.
func (m *Manager) WaitConnected(ctx context.Context) error {
	select {
	case <-m.settled:
		return m.settleErr
	case <-ctx.Done():
		return ctx.Err()
	}
}
