package dispatcher

import (
	"context"
	"fmt"

	"github.com/luca-patrignani/chainplay/bridge"
	"github.com/luca-patrignani/chainplay/config"
	"github.com/luca-patrignani/chainplay/metrics"
	"github.com/luca-patrignani/chainplay/prover"
	"github.com/luca-patrignani/chainplay/status"
	"github.com/luca-patrignani/chainplay/tasks"
	"github.com/luca-patrignani/chainplay/wallet"
)

// Connect builds the engine for cfg and starts linking the player's
// wallet. It returns as soon as the bridge answered: the wallet may still
// be waiting for approval in the browser, which the persistent status
// line shows. The only error that stops the game from using the engine
// is a *bridge.ConnectionError.
func Connect(ctx context.Context, cfg config.Config, opts ...Option) (*Dispatcher, error) {
	o := buildOptions(opts)
	log := o.log

	m := o.metrics
	if m == nil {
		m = metrics.New(o.registerer)
	}
	client := bridge.NewClient(cfg.Bridge.URL,
		bridge.WithGetTimeout(cfg.Bridge.GetTimeout),
		bridge.WithPostTimeout(cfg.Bridge.PostTimeout),
		bridge.WithLogger(log),
		bridge.WithMetrics(m),
	)
	group := tasks.New(context.Background(), cfg.MaxInFlight, log)
	background := tasks.New(context.Background(), 0, log)
	st := status.New(o.clock)

	provider := o.provider
	if provider == nil {
		if cfg.Prover.Simulate {
			provider = prover.NewSimulator()
		} else {
			provider = prover.Detect(ctx, prover.NargoConfig{
				Binary:         cfg.Prover.Binary,
				CircuitsRoot:   cfg.Prover.CircuitsRoot,
				VersionTimeout: cfg.Prover.VersionTimeout,
				ProveTimeout:   cfg.Prover.ProveTimeout,
			}, log)
		}
	}

	w, err := wallet.NewManager(ctx, client, st,
		wallet.WithTasks(group),
		wallet.WithPollGroup(background),
		wallet.WithConnectTimeout(cfg.Wallet.ConnectTimeout),
		wallet.WithPollInterval(cfg.Wallet.PollInterval),
		wallet.WithURLOpener(o.openURL),
		wallet.WithLogger(log),
		wallet.WithMetrics(m),
	)
	if err != nil {
		background.Close()
		group.Close()
		return nil, err
	}
	if _, err := w.Connect(ctx, cfg.Player.ID, cfg.Player.DisplayName); err != nil {
		background.Close()
		group.Close()
		return nil, fmt.Errorf("connect wallet: %w", err)
	}

	settings := Settings{
		PlayerID:          cfg.Player.ID,
		NetworkPassphrase: cfg.Soroban.NetworkPassphrase,
		SignTimeout:       cfg.Sign.Timeout,
		SignPollInterval:  cfg.Sign.PollInterval,
		ToastTTL:          cfg.ToastTTL,
	}
	opts = append(opts[:len(opts):len(opts)], WithProvider(provider), WithMetrics(m))
	d := New(w, client, st, group, settings, opts...)
	d.background = background
	return d, nil
}
