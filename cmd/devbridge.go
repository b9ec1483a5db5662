package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/chainplay/bridge/bridgestub"
)

var (
	listenFlag     string
	autoLinkFlag   string
	autoSignFlag   string
	autoRejectFlag string
)

var devbridgeCmd = &cobra.Command{
	Use:   "devbridge",
	Short: "Serve an in-memory wallet bridge",
	Long: `Serves the bridge HTTP API from memory so the game can be exercised
without a browser wallet. Sign requests stay pending until resolved through
POST /tx/request/{id}/complete or /reject, unless --auto-sign or
--auto-reject is set.`,
	Args: cobra.NoArgs,
	RunE: runDevbridge,
}

func init() {
	devbridgeCmd.Flags().StringVarP(&listenFlag, "listen", "l", "127.0.0.1:8789", "listen address, the port defaults to 8789")
	devbridgeCmd.Flags().StringVar(&autoLinkFlag, "auto-link", "", "wallet address linked to every player that connects")
	devbridgeCmd.Flags().StringVar(&autoSignFlag, "auto-sign", "", "sign every request at once as this wallet address")
	devbridgeCmd.Flags().StringVar(&autoRejectFlag, "auto-reject", "", "reject every request at once with this reason")
	devbridgeCmd.MarkFlagsMutuallyExclusive("auto-sign", "auto-reject")
}

func runDevbridge(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	addr, err := listenAddress(listenFlag)
	if err != nil {
		return err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	public, err := advertisedURL(l.Addr())
	if err != nil {
		l.Close()
		return err
	}

	opts := []bridgestub.Option{
		bridgestub.WithPublicURL(public),
		bridgestub.WithLogger(logger),
	}
	if autoLinkFlag != "" {
		opts = append(opts, bridgestub.WithAutoLink(autoLinkFlag))
	}
	if autoSignFlag != "" {
		opts = append(opts, bridgestub.WithAutoSign(autoSignFlag))
	}
	if autoRejectFlag != "" {
		opts = append(opts, bridgestub.WithAutoReject(autoRejectFlag))
	}
	srv := &http.Server{
		Handler:           bridgestub.New(opts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	pterm.Info.Printfln("Bridge listening on %s", public)
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	pterm.Info.Println("Bridge stopped")
	return nil
}
