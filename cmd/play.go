package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/chainplay/config"
	"github.com/luca-patrignani/chainplay/dispatcher"
	"github.com/luca-patrignani/chainplay/wallet"
)

var (
	playerFlag string
	nameFlag   string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play an interactive session against the bridge",
	Long: `Connects to the bridge, links the player's wallet and offers a menu of
game actions. Every action is proved and, once the wallet is connected,
sent to the wallet for signing. The status line shows progress.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playerFlag, "player", "", "player id, overrides WEB3_PLAYER_ID")
	playCmd.Flags().StringVar(&nameFlag, "name", "", "display name, overrides WEB3_DISPLAY_NAME")
}

// gameState is the part of the session the demo saves with its progress.
type gameState struct {
	Color string `json:"color"`
	Tasks int64  `json:"tasks"`
}

func runPlay(cmd *cobra.Command, args []string) error {
	if playerFlag != "" {
		os.Setenv("WEB3_PLAYER_ID", playerFlag)
	}
	if nameFlag != "" {
		os.Setenv("WEB3_DISPLAY_NAME", nameFlag)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	banner()

	reg := prometheus.NewRegistry()
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer srv.Shutdown(context.Background())
	}

	spinner, _ := pterm.DefaultSpinner.Start("Connecting to the bridge at " + cfg.Bridge.URL + " ...")
	d, err := dispatcher.Connect(ctx, cfg,
		dispatcher.WithLogger(logger),
		dispatcher.WithRegisterer(reg),
		dispatcher.WithURLOpener(urlOpener(cfg)),
		dispatcher.WithPayloadBuilder(newEnvelopeBuilder(cfg.Soroban)),
	)
	if err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()
	defer d.Close()

	if d.Provider().Available() {
		pterm.Success.Println("Proofs are generated by the external prover")
	} else {
		pterm.Warning.Println("Prover unavailable, proofs are simulated")
	}

	var state gameState
	if found, err := d.LoadProgress(ctx, &state); err != nil {
		logger.Warn("could not load saved progress", "err", err)
	} else if found {
		round, meeting := d.Rounds()
		pterm.Info.Printfln("Resumed round %d, meeting %d", round, meeting)
	}

	for ctx.Err() == nil {
		d.Tick(time.Now())
		renderStatus(d.Toast(), d.Persistent())

		choice, _ := pterm.DefaultInteractiveSelect.WithDefaultText("Next action").WithOptions(menu).Show()
		quit, err := perform(ctx, d, &state, choice)
		if err != nil {
			pterm.Error.Println(err)
		}
		if quit {
			break
		}
	}

	spinner, _ = pterm.DefaultSpinner.Start("Waiting for in-flight actions ...")
	if waitOrAbandon(ctx, d) {
		spinner.Success()
	} else {
		spinner.Warning("Interrupted, in-flight actions abandoned")
	}
	renderJournal(d.Journal().Entries())
	if err := d.Journal().Verify(); err != nil {
		pterm.Warning.Printfln("Journal is inconsistent: %v", err)
	}
	return nil
}

// waitOrAbandon waits for started actions unless ctx is cancelled first,
// in which case the dispatcher is closed. It reports whether every action
// finished.
func waitOrAbandon(ctx context.Context, d *dispatcher.Dispatcher) bool {
	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		d.Close()
		return false
	}
}

var menu = []string{
	"Join game",
	"Complete task",
	"Kill",
	"Vote",
	"Start meeting",
	"Next round",
	"Save progress",
	"Show journal",
	"Quit",
}

func perform(ctx context.Context, d *dispatcher.Dispatcher, state *gameState, choice string) (bool, error) {
	switch choice {
	case "Join game":
		color, _ := pterm.DefaultInteractiveSelect.WithDefaultText("Colour").WithOptions(colors).Show()
		name, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Name").Show()
		state.Color = color
		d.OnJoin(color, strings.TrimSpace(name))
	case "Complete task":
		id, err := askInt("Task id")
		if err != nil {
			return false, err
		}
		state.Tasks++
		d.OnTaskComplete(id)
	case "Kill":
		coords, err := askInts("Killer x, killer y, victim x, victim y", 4)
		if err != nil {
			return false, err
		}
		victim, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Victim wallet").Show()
		d.OnKill(coords[0], coords[1], coords[2], coords[3], strings.TrimSpace(victim))
	case "Vote":
		idx, err := askInt("Target index")
		if err != nil {
			return false, err
		}
		target, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Target wallet").Show()
		d.OnVote(idx, strings.TrimSpace(target))
	case "Start meeting":
		d.OnMeetingStart()
	case "Next round":
		pterm.Info.Printfln("Round %d", d.NextRound())
	case "Save progress":
		if err := d.SaveProgress(ctx, state); err != nil {
			return false, err
		}
		pterm.Success.Println("Progress saved")
	case "Show journal":
		renderJournal(d.Journal().Entries())
	case "Quit", "":
		return true, nil
	}
	return false, nil
}

var colors = []string{"red", "blue", "green", "pink", "orange", "yellow", "black", "white"}

func askInt(prompt string) (int64, error) {
	v, err := askInts(prompt, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// askInts reads n comma or space separated integers.
func askInts(prompt string, n int) ([]int64, error) {
	raw, _ := pterm.DefaultInteractiveTextInput.WithDefaultText(prompt).Show()
	return parseInts(raw, n)
}

func parseInts(raw string, n int) ([]int64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(fields))
	}
	out := make([]int64, n)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", f)
		}
		out[i] = v
	}
	return out, nil
}

// urlOpener shows the wallet connect page in the browser, or prints it
// when the browser is disabled.
func urlOpener(cfg config.Config) wallet.URLOpener {
	if !cfg.Wallet.OpenBrowser {
		return func(url string) error {
			pterm.Info.Printfln("Open %s to connect your wallet", url)
			return nil
		}
	}
	return openBrowser
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)
	return srv
}
