package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luca-patrignani/chainplay/bridge"
	"github.com/luca-patrignani/chainplay/ledger"
	"github.com/luca-patrignani/chainplay/metrics"
	"github.com/luca-patrignani/chainplay/prover"
	"github.com/luca-patrignani/chainplay/status"
	"github.com/luca-patrignani/chainplay/tasks"
	"github.com/luca-patrignani/chainplay/wallet"
)

const (
	notConnectedTTL = 5 * time.Second
	provingTTL      = 15 * time.Second
	failureTTL      = 8 * time.Second
)

// Settings are the per-player values every run needs.
type Settings struct {
	PlayerID          string
	NetworkPassphrase string
	SignTimeout       time.Duration
	SignPollInterval  time.Duration
	ToastTTL          time.Duration
}

type options struct {
	builder    PayloadBuilder
	submitter  Submitter
	provider   prover.Provider
	log        *slog.Logger
	registerer prometheus.Registerer
	metrics    *metrics.Metrics
	openURL    wallet.URLOpener
	clock      func() time.Time
	journal    *ledger.Journal
}

// Option configures New and Connect.
type Option func(*options)

// WithPayloadBuilder turns proofs into signable transactions. Without one
// the dispatcher runs in proof-only mode.
func WithPayloadBuilder(b PayloadBuilder) Option {
	return func(o *options) { o.builder = b }
}

// WithSubmitter sends signed transactions to the chain.
func WithSubmitter(s Submitter) Option {
	return func(o *options) { o.submitter = s }
}

// WithProvider skips prover detection.
func WithProvider(p prover.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithLogger sets the logger; nil keeps slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRegisterer registers the engine metrics with reg. Used by Connect.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithMetrics shares already registered instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithURLOpener sets how the wallet connect page and each signer page are
// shown to the player.
func WithURLOpener(open wallet.URLOpener) Option {
	return func(o *options) { o.openURL = open }
}

// WithClock replaces time.Now for toast expiry and journal timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithJournal records finished runs in j instead of a fresh journal.
func WithJournal(j *ledger.Journal) Option {
	return func(o *options) { o.journal = j }
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Dispatcher turns game hooks into tracked on-chain actions. Hooks never
// block: every run happens in the background and reports through the
// status channel.
type Dispatcher struct {
	wallet     *wallet.Manager
	client     *bridge.Client
	status     *status.Channel
	tasks      *tasks.Group // action runs
	background *tasks.Group // wallet poll loop, nil when built by New
	openURL    wallet.URLOpener
	provider   prover.Provider
	builder    PayloadBuilder
	submitter  Submitter
	journal    *ledger.Journal
	metrics    *metrics.Metrics
	log        *slog.Logger
	settings   Settings

	mu           sync.Mutex
	roundID      uint64
	meetingRound uint64
}

// New wires a dispatcher from already built parts. Most callers want
// Connect instead. Without WithProvider proofs are simulated.
func New(w *wallet.Manager, client *bridge.Client, st *status.Channel, g *tasks.Group, settings Settings, opts ...Option) *Dispatcher {
	o := buildOptions(opts)
	if o.provider == nil {
		o.provider = prover.NewSimulator()
	}
	if o.journal == nil {
		o.journal = ledger.NewJournal(o.clock)
	}
	if settings.ToastTTL <= 0 {
		settings.ToastTTL = 4 * time.Second
	}
	return &Dispatcher{
		wallet:    w,
		client:    client,
		status:    st,
		tasks:     g,
		openURL:   o.openURL,
		provider:  o.provider,
		builder:   o.builder,
		submitter: o.submitter,
		journal:   o.journal,
		metrics:   o.metrics,
		log:       o.log,
		settings:  settings,
		roundID:   1,
	}
}

// OnJoin registers the local player. Unlike gameplay actions a join fired
// before the wallet connected is queued and replayed once it does.
func (d *Dispatcher) OnJoin(color, name string) {
	round, _ := d.Rounds()
	r := d.newRun(ActionJoin, "Player registered")
	r.kind = prover.Join
	r.inputs = prover.Inputs{RoundID: round}
	r.round = round
	r.metadata = map[string]any{"color": color, "name": name}
	r.args = func(s wallet.Session, p prover.Proof) Args {
		return JoinArgs{
			Address:    s.Address,
			Color:      color,
			Name:       truncateRunes(name, 10),
			PlayerHash: prover.Digest([]byte(fmt.Sprintf("%s:%s:%s", s.Address, color, name))),
			RoleHash:   p.Digest,
		}
	}

	if !d.wallet.IsConnected() {
		r.transition(AwaitingWallet)
		d.status.SetToast(fmt.Sprintf("⏳ %s: waiting for wallet…", r.action), status.Negative, provingTTL)
	}
	if _, err := d.wallet.EnqueueOrRun(string(r.action), func(ctx context.Context) { d.execute(ctx, r) }); err != nil {
		d.fail(r, err)
	}
}

// OnMove is deliberately a no-op: moves are too frequent to record.
func (d *Dispatcher) OnMove(x, y int) {}

// OnTaskComplete proves and records a finished task.
func (d *Dispatcher) OnTaskComplete(taskID int64) {
	round, _ := d.Rounds()
	r := d.newRun(ActionTask, fmt.Sprintf("Task %d proof generated", taskID))
	r.kind = prover.Task
	r.inputs = prover.Inputs{RoundID: round, TaskID: taskID}
	r.round = round
	r.metadata = map[string]any{"task_id": taskID}
	r.args = func(s wallet.Session, p prover.Proof) Args {
		return TaskArgs{Address: s.Address, Proof: p}
	}
	d.dispatch(r)
}

// OnKill proves the kill distance and records the kill against
// victimWallet.
func (d *Dispatcher) OnKill(killerX, killerY, victimX, victimY int64, victimWallet string) {
	round, _ := d.Rounds()
	r := d.newRun(ActionKill, "Kill proof generated")
	r.kind = prover.Kill
	r.inputs = prover.Inputs{RoundID: round, DX: killerX - victimX, DY: killerY - victimY}
	r.round = round
	r.metadata = map[string]any{"victim": wallet.Truncate(victimWallet, 8)}
	r.args = func(s wallet.Session, p prover.Proof) Args {
		return KillArgs{Killer: s.Address, Victim: victimWallet, Proof: p}
	}
	d.dispatch(r)
}

// OnVote proves and records a vote in the current meeting round.
func (d *Dispatcher) OnVote(targetIndex int64, targetWallet string) {
	round, meeting := d.Rounds()
	r := d.newRun(ActionVote, "Vote proof generated")
	r.kind = prover.Vote
	r.inputs = prover.Inputs{RoundID: round, MeetingRound: meeting, TargetIndex: targetIndex}
	r.round = round
	r.metadata = map[string]any{"target_index": targetIndex}
	r.args = func(s wallet.Session, p prover.Proof) Args {
		return VoteArgs{
			Voter:      s.Address,
			TargetHash: prover.Digest([]byte(targetWallet)),
			ProofHash:  p.Digest,
			Nullifier:  p.Nullifier,
		}
	}
	d.dispatch(r)
}

// OnMeetingStart opens a new meeting round, whether or not the wallet is
// connected, and records the meeting on-chain.
func (d *Dispatcher) OnMeetingStart() {
	d.mu.Lock()
	d.meetingRound++
	round := d.roundID
	d.mu.Unlock()

	r := d.newRun(ActionMeeting, "Meeting started")
	r.round = round
	r.metadata = map[string]any{}
	r.args = func(s wallet.Session, _ prover.Proof) Args {
		return MeetingArgs{Caller: s.Address}
	}
	d.dispatch(r)
}

// dispatch starts a gameplay run, or fails it at once when the wallet is
// not connected yet.
func (d *Dispatcher) dispatch(r *run) {
	if !d.wallet.IsConnected() {
		r.transition(AwaitingWallet)
		msg := fmt.Sprintf("⚠ %s: wallet not connected — approve the wallet in browser", r.action)
		d.status.SetToast(msg, status.Negative, notConnectedTTL)
		d.finish(r, Failed, msg, ErrNotConnected)
		return
	}
	if !d.tasks.Go(string(r.action), func(ctx context.Context) { d.execute(ctx, r) }) {
		d.fail(r, tasks.ErrBusy)
	}
}

// Tick expires the toast; call it once per frame.
func (d *Dispatcher) Tick(now time.Time) {
	d.status.Tick(now)
}

// Toast returns the current toast, or nil.
func (d *Dispatcher) Toast() *status.Toast {
	t, _ := d.status.Read()
	return t
}

// Persistent returns the HUD line.
func (d *Dispatcher) Persistent() status.Line {
	_, l := d.status.Read()
	return l
}

// NextRound advances the game round and returns the new round id.
func (d *Dispatcher) NextRound() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roundID++
	return d.roundID
}

// Rounds returns the current round id and meeting round.
func (d *Dispatcher) Rounds() (round, meeting uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roundID, d.meetingRound
}

// Wallet returns the session manager.
func (d *Dispatcher) Wallet() *wallet.Manager {
	return d.wallet
}

// Provider returns the proving backend in use.
func (d *Dispatcher) Provider() prover.Provider {
	return d.provider
}

// Journal holds one entry per finished run.
func (d *Dispatcher) Journal() *ledger.Journal {
	return d.journal
}

// Wait blocks until every started run returned. Joins still queued for
// the wallet and the wallet poll loop are not waited for.
func (d *Dispatcher) Wait() {
	d.tasks.Wait()
}

// Close stops the wallet poll loop, abandons in-flight waits and joins
// every task.
func (d *Dispatcher) Close() {
	if d.background != nil {
		d.background.Close()
	}
	d.tasks.Close()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
