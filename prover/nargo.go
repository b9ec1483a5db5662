package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// NargoConfig locates the external prover and bounds its runtime.
type NargoConfig struct {
	Binary         string
	CircuitsRoot   string
	VersionTimeout time.Duration
	ProveTimeout   time.Duration
}

// DefaultNargoConfig mirrors a stock nargo install next to noir_circuits/.
func DefaultNargoConfig() NargoConfig {
	return NargoConfig{
		Binary:         "nargo",
		CircuitsRoot:   "noir_circuits",
		VersionTimeout: 5 * time.Second,
		ProveTimeout:   60 * time.Second,
	}
}

// Nargo runs the external prover once per proof.
type Nargo struct {
	cfg       NargoConfig
	log       *slog.Logger
	available bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex // one per circuit directory
}

// NewNargo returns a prover that has not been probed yet; use Detect to
// probe and pick an implementation.
func NewNargo(cfg NargoConfig, log *slog.Logger) *Nargo {
	def := DefaultNargoConfig()
	if cfg.Binary == "" {
		cfg.Binary = def.Binary
	}
	if cfg.CircuitsRoot == "" {
		cfg.CircuitsRoot = def.CircuitsRoot
	}
	if cfg.VersionTimeout <= 0 {
		cfg.VersionTimeout = def.VersionTimeout
	}
	if cfg.ProveTimeout <= 0 {
		cfg.ProveTimeout = def.ProveTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Nargo{cfg: cfg, log: log, locks: map[string]*sync.Mutex{}}
}

// circuitLock guards a circuit directory: Prover.toml and proofs/ are
// shared by every run of that circuit.
func (n *Nargo) circuitLock(circuit string) *sync.Mutex {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.locks[circuit]
	if !ok {
		l = &sync.Mutex{}
		n.locks[circuit] = l
	}
	return l
}

// probe runs "<binary> --version". A missing binary, a non-zero exit or a
// timeout all mean unavailable.
func (n *Nargo) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.VersionTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, n.cfg.Binary, "--version")
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if err != nil {
		n.log.Debug("prover version check failed", "binary", n.cfg.Binary, "error", err)
		return false
	}
	n.log.Debug("prover version", "output", strings.TrimSpace(string(out)))
	n.available = true
	return true
}

// Available reports whether the last probe succeeded.
func (n *Nargo) Available() bool { return n.available }

// Prove writes the circuit's Prover.toml, runs the prover and hashes the
// artifact it produced. Runs of the same circuit are serialised.
func (n *Nargo) Prove(ctx context.Context, kind Kind, in Inputs) (Proof, error) {
	circuit := kind.Circuit()
	var public []string
	switch kind {
	case Join, Vote:
	case Task:
		public = []string{Hex64(uint64(in.TaskID) & 0xFFFFFFFF)}
	case Kill:
		public = []string{Hex64(in.RoundID)}
	default:
		return Proof{}, &ProofError{Circuit: circuit, Err: fmt.Errorf("unknown proof kind %q", kind)}
	}

	lock := n.circuitLock(circuit)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(n.cfg.CircuitsRoot, circuit)
	if err := os.WriteFile(filepath.Join(dir, "Prover.toml"), []byte(proverToml(kind, in)), 0o644); err != nil {
		return Proof{}, &ProofError{Circuit: circuit, Err: err}
	}

	started := time.Now()
	proveCtx, cancel := context.WithTimeout(ctx, n.cfg.ProveTimeout)
	defer cancel()
	cmd := exec.CommandContext(proveCtx, n.cfg.Binary, "prove")
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	if errors.Is(proveCtx.Err(), context.DeadlineExceeded) {
		return Proof{}, &ProofError{Circuit: circuit, Err: fmt.Errorf("timed out after %s", n.cfg.ProveTimeout)}
	}
	if err != nil {
		msg := strings.TrimSpace(output.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return Proof{}, &ProofError{Circuit: circuit, Err: err}
	}

	artifact, err := newestArtifact(filepath.Join(dir, "proofs"))
	if err != nil {
		return Proof{}, &ProofError{Circuit: circuit, Err: err}
	}
	data, err := os.ReadFile(artifact)
	if err != nil {
		return Proof{}, &ProofError{Circuit: circuit, Err: err}
	}
	n.log.Debug("proof generated", "circuit", circuit, "artifact", artifact, "elapsed", time.Since(started))
	return Proof{
		Digest:       Digest(data),
		Nullifier:    Hex64(Nullifier(kind, in)),
		PublicInputs: public,
	}, nil
}

// newestArtifact returns the most recently modified *.proof file in dir.
func newestArtifact(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoArtifact
	}
	if err != nil {
		return "", err
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".proof" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", ErrNoArtifact
	}
	return newest, nil
}
