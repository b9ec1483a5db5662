// Package config loads the engine settings. Values are layered: built-in
// defaults, then an optional YAML file, then a .env file, then the process
// environment. Every timeout and poll interval is configurable so tests
// and slow machines can tune them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// TestnetPassphrase is the Stellar test network passphrase.
const TestnetPassphrase = "Test SDF Network ; September 2015"

// Config is every setting of the engine and the CLI.
type Config struct {
	Player      PlayerConfig  `yaml:"player"`
	Bridge      BridgeConfig  `yaml:"bridge"`
	Wallet      WalletConfig  `yaml:"wallet"`
	Sign        SignConfig    `yaml:"sign"`
	Prover      ProverConfig  `yaml:"prover"`
	Soroban     SorobanConfig `yaml:"soroban"`
	MetricsAddr string        `yaml:"metrics_addr" env:"METRICS_ADDR"`
	// MaxInFlight bounds concurrently running actions; 0 means unbounded.
	MaxInFlight int           `yaml:"max_in_flight" env:"MAX_IN_FLIGHT"`
	ToastTTL    time.Duration `yaml:"toast_ttl" env:"STATUS_TOAST_TTL"`
}

// PlayerConfig identifies the local player to the bridge.
type PlayerConfig struct {
	ID          string `yaml:"id" env:"WEB3_PLAYER_ID"`
	DisplayName string `yaml:"display_name" env:"WEB3_DISPLAY_NAME"`
}

// BridgeConfig locates the wallet bridge.
type BridgeConfig struct {
	URL         string        `yaml:"url" env:"BRIDGE_URL"`
	GetTimeout  time.Duration `yaml:"get_timeout" env:"BRIDGE_GET_TIMEOUT"`
	PostTimeout time.Duration `yaml:"post_timeout" env:"BRIDGE_POST_TIMEOUT"`
}

// WalletConfig drives the connect handshake.
type WalletConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"WALLET_CONNECT_TIMEOUT"`
	PollInterval   time.Duration `yaml:"poll_interval" env:"WALLET_POLL_INTERVAL"`
	OpenBrowser    bool          `yaml:"open_browser" env:"WALLET_OPEN_BROWSER"`
}

// SignConfig bounds the wait for a wallet signature.
type SignConfig struct {
	Timeout      time.Duration `yaml:"timeout" env:"SIGN_TIMEOUT"`
	PollInterval time.Duration `yaml:"poll_interval" env:"SIGN_POLL_INTERVAL"`
}

// ProverConfig locates the external prover.
type ProverConfig struct {
	Binary         string        `yaml:"binary" env:"PROVER_BINARY"`
	CircuitsRoot   string        `yaml:"circuits_root" env:"PROVER_CIRCUITS_ROOT"`
	VersionTimeout time.Duration `yaml:"version_timeout" env:"PROVER_VERSION_TIMEOUT"`
	ProveTimeout   time.Duration `yaml:"prove_timeout" env:"PROVER_PROVE_TIMEOUT"`
	// Simulate skips detection and always uses the simulated prover.
	Simulate bool `yaml:"simulate" env:"PROVER_SIMULATE"`
}

// SorobanConfig describes the chain the payloads are built for. Only the
// passphrase is needed by the engine itself; the rest is handed to the
// payload builder and submitter.
type SorobanConfig struct {
	RPCURL            string `yaml:"rpc_url" env:"SOROBAN_RPC_URL"`
	NetworkPassphrase string `yaml:"network_passphrase" env:"SOROBAN_NET_PHRASE"`
	ContractID        string `yaml:"contract_id" env:"SOROBAN_CONTRACT_ID"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Player: PlayerConfig{DisplayName: "Player"},
		Bridge: BridgeConfig{
			URL:         "http://127.0.0.1:8789",
			GetTimeout:  5 * time.Second,
			PostTimeout: 10 * time.Second,
		},
		Wallet: WalletConfig{
			ConnectTimeout: 300 * time.Second,
			PollInterval:   2 * time.Second,
			OpenBrowser:    true,
		},
		Sign: SignConfig{
			Timeout:      120 * time.Second,
			PollInterval: 1500 * time.Millisecond,
		},
		Prover: ProverConfig{
			Binary:         "nargo",
			CircuitsRoot:   "noir_circuits",
			VersionTimeout: 5 * time.Second,
			ProveTimeout:   60 * time.Second,
		},
		Soroban: SorobanConfig{
			RPCURL:            "https://soroban-testnet.stellar.org",
			NetworkPassphrase: TestnetPassphrase,
		},
		ToastTTL: 4 * time.Second,
	}
}

// Load layers path (skipped when empty), the given .env files (".env"
// when none is given; missing files are ignored) and the environment over
// Default, then validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := decodeYAML(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, name := range envFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", name, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Player.ID == "" {
		errs = append(errs, errors.New("player id is required (WEB3_PLAYER_ID)"))
	}
	if u, err := url.Parse(c.Bridge.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("bridge url %q is not an http(s) URL", c.Bridge.URL))
	}
	positive := map[string]time.Duration{
		"bridge.get_timeout":     c.Bridge.GetTimeout,
		"bridge.post_timeout":    c.Bridge.PostTimeout,
		"wallet.connect_timeout": c.Wallet.ConnectTimeout,
		"wallet.poll_interval":   c.Wallet.PollInterval,
		"sign.timeout":           c.Sign.Timeout,
		"sign.poll_interval":     c.Sign.PollInterval,
		"prover.version_timeout": c.Prover.VersionTimeout,
		"prover.prove_timeout":   c.Prover.ProveTimeout,
		"toast_ttl":              c.ToastTTL,
	}
	for _, name := range slices.Sorted(maps.Keys(positive)) {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, positive[name]))
		}
	}
	if c.Sign.PollInterval > c.Sign.Timeout && c.Sign.Timeout > 0 {
		errs = append(errs, fmt.Errorf("sign.poll_interval %s exceeds sign.timeout %s", c.Sign.PollInterval, c.Sign.Timeout))
	}
	if c.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("max_in_flight must not be negative, got %d", c.MaxInFlight))
	}
	if c.Soroban.NetworkPassphrase == "" {
		errs = append(errs, errors.New("soroban network passphrase is required"))
	}
	return errors.Join(errs...)
}
