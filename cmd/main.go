package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/chainplay/config"
)

var (
	configPath string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "chainplay",
	Short: "Record game actions on-chain through a wallet bridge",
	Long: `chainplay drives the Web3 side of a game client: it links the player's
wallet through the local bridge, proves task, kill and vote actions and
has the wallet sign them.

Available subcommands:
  play      - interactive session against a bridge
  devbridge - serve an in-memory bridge for local testing
  prover    - inspect the proving backend`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			pterm.DefaultLogger.Level = pterm.LogLevelDebug
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file layered over the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(playCmd, devbridgeCmd, proverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	handler := pterm.NewSlogHandler(&pterm.DefaultLogger)
	return slog.New(handler)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func banner() {
	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Chain", pterm.FgCyan.ToStyle()),
		putils.LettersFromStringWithStyle("Play", pterm.FgDarkGray.ToStyle()),
	).Render()
}
