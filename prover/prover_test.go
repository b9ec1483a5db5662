package prover

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestDigestIsSHA256(t *testing.T) {
	assert.Equal(t, sha256Hex("GABC"), Digest([]byte("GABC")))
}

func TestNullifierFormulas(t *testing.T) {
	in := Inputs{PlayerSecret: 1000, RoundID: 1, MeetingRound: 2, TaskID: 3}
	assert.Equal(t, uint64(1000*31+97+7), Nullifier(Join, in))
	assert.Equal(t, uint64(1000*41+3*13+101), Nullifier(Task, in))
	assert.Equal(t, uint64(1000*67+17), Nullifier(Kill, in))
	assert.Equal(t, uint64(1000*53+2*11), Nullifier(Vote, in))
	assert.Equal(t, "000000000000000000000000000000000000000000000000000000000000a0b4", Hex64(Nullifier(Task, in)))
}

func TestNullifierWrapsModulo64Bits(t *testing.T) {
	in := Inputs{PlayerSecret: ^uint64(0), RoundID: 1}
	// (2^64-1)*67 + 17 mod 2^64 == -67 + 17 == 2^64 - 50
	assert.Equal(t, ^uint64(0)-49, Nullifier(Kill, in))

	negative := Inputs{PlayerSecret: 1, TaskID: -1}
	// 41 - 13 + 0
	assert.Equal(t, uint64(28), Nullifier(Task, negative))
}

func TestSimulatorIsDeterministic(t *testing.T) {
	sim := NewSimulator()
	ctx := context.Background()
	in := Inputs{PlayerSecret: 0xdeadbeef, RoundID: 4, MeetingRound: 2, TaskID: 9, DX: -3, DY: 4, TargetIndex: 1}
	for _, kind := range []Kind{Join, Task, Kill, Vote} {
		first, err := sim.Prove(ctx, kind, in)
		require.NoError(t, err)
		second, err := sim.Prove(ctx, kind, in)
		require.NoError(t, err)
		assert.Equal(t, first, second, string(kind))
		assert.True(t, first.Simulated)
		assert.Len(t, first.Digest, 64)
		assert.Len(t, first.Nullifier, 64)
	}
}

func TestSimulatorDigests(t *testing.T) {
	sim := NewSimulator()
	ctx := context.Background()
	in := Inputs{PlayerSecret: 1000, RoundID: 1, MeetingRound: 2, TaskID: 3, DX: -3, DY: 4, TargetIndex: 5}

	task, err := sim.Prove(ctx, Task, in)
	require.NoError(t, err)
	assert.Equal(t, sha256Hex("task:3:1003:1000"), task.Digest)
	assert.Equal(t, []string{Hex64(1)}, task.PublicInputs)

	kill, err := sim.Prove(ctx, Kill, in)
	require.NoError(t, err)
	assert.Equal(t, sha256Hex("kill:-3:4:1000:1"), kill.Digest)

	vote, err := sim.Prove(ctx, Vote, in)
	require.NoError(t, err)
	assert.Equal(t, sha256Hex("vote:5:1000:2"), vote.Digest)
	assert.Empty(t, vote.PublicInputs)

	join, err := sim.Prove(ctx, Join, in)
	require.NoError(t, err)
	assert.Equal(t, sha256Hex("role:1000:1"), join.Digest)
}

func TestSimulatorRejectsUnknownKind(t *testing.T) {
	_, err := NewSimulator().Prove(context.Background(), Kind("dance"), Inputs{})
	var perr *ProofError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "dance", perr.Circuit)
}

func TestProverTomlKill(t *testing.T) {
	toml := proverToml(Kill, Inputs{PlayerSecret: 10, RoundID: 2, DX: 3, DY: -4})
	expected := strings.Join([]string{
		`dx = "3"`,
		`dy = "-4"`,
		`cooldown_ok = "1"`,
		`role_flag = "1"`,
		`player_secret = "10"`,
		`round_id = "2"`,
		`kill_commitment = "423"`,
		`action_nullifier = "704"`,
	}, "\n") + "\n"
	assert.Equal(t, expected, toml)
}

func TestProverTomlCommitmentDoesNotOverflow(t *testing.T) {
	in := Inputs{PlayerSecret: 0xFFFFFFFF, RoundID: 0}
	toml := proverToml(Join, in)
	// (2^32-1)^2 + (2^32-1)*19 + 17
	assert.Contains(t, toml, `role_commitment = "18446744146723995647"`)
}

// writeFakeNargo installs a shell script standing in for the prover.
func writeFakeNargo(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake prover is a shell script")
	}
	path := filepath.Join(t.TempDir(), "nargo")
	script := "#!/bin/sh\nif [ \"$1\" = \"--version\" ]; then echo nargo-fake; exit 0; fi\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func circuitsRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, k := range []Kind{Join, Task, Kill, Vote} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, k.Circuit()), 0o755))
	}
	return root
}

func TestDetectFallsBackWhenBinaryMissing(t *testing.T) {
	p := Detect(context.Background(), NargoConfig{Binary: filepath.Join(t.TempDir(), "missing")}, nil)
	assert.False(t, p.Available())
	_, ok := p.(*Simulator)
	assert.True(t, ok)
}

func TestNargoHashesNewestArtifact(t *testing.T) {
	bin := writeFakeNargo(t, "mkdir -p proofs\necho old > proofs/a.proof\nsleep 0.05\ncat Prover.toml > proofs/b.proof")
	root := circuitsRoot(t)
	p := Detect(context.Background(), NargoConfig{Binary: bin, CircuitsRoot: root}, nil)
	require.True(t, p.Available())

	in := Inputs{PlayerSecret: 7, RoundID: 1, TaskID: 2}
	proof, err := p.Prove(context.Background(), Task, in)
	require.NoError(t, err)
	assert.False(t, proof.Simulated)
	assert.Equal(t, sha256Hex(proverToml(Task, in)), proof.Digest)
	assert.Equal(t, Hex64(Nullifier(Task, in)), proof.Nullifier)
	assert.Equal(t, []string{Hex64(2)}, proof.PublicInputs)
}

func TestConcurrentProofsOfOneCircuitKeepTheirOwnArtifact(t *testing.T) {
	bin := writeFakeNargo(t, "mkdir -p proofs\nsleep 0.2\ncat Prover.toml > proofs/p-$$.proof")
	root := circuitsRoot(t)
	p := Detect(context.Background(), NargoConfig{Binary: bin, CircuitsRoot: root}, nil)
	require.True(t, p.Available())

	inputs := []Inputs{
		{PlayerSecret: 7, RoundID: 1, TaskID: 2},
		{PlayerSecret: 7, RoundID: 1, TaskID: 3},
	}
	proofs := make([]Proof, len(inputs))
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			proofs[i], errs[i] = p.Prove(context.Background(), Task, in)
		}()
	}
	wg.Wait()

	for i, in := range inputs {
		require.NoError(t, errs[i])
		assert.Equal(t, sha256Hex(proverToml(Task, in)), proofs[i].Digest, "task %d", in.TaskID)
	}
}

func TestNargoFailureIsProofError(t *testing.T) {
	bin := writeFakeNargo(t, "echo constraint failed >&2\nexit 1")
	root := circuitsRoot(t)
	p := Detect(context.Background(), NargoConfig{Binary: bin, CircuitsRoot: root}, nil)

	_, err := p.Prove(context.Background(), Vote, Inputs{})
	var perr *ProofError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "vote_proof", perr.Circuit)
	assert.Contains(t, err.Error(), "constraint failed")
}

func TestNargoWithoutArtifact(t *testing.T) {
	bin := writeFakeNargo(t, "exit 0")
	root := circuitsRoot(t)
	p := Detect(context.Background(), NargoConfig{Binary: bin, CircuitsRoot: root}, nil)

	_, err := p.Prove(context.Background(), Kill, Inputs{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoArtifact))
}

func TestNargoTimeout(t *testing.T) {
	bin := writeFakeNargo(t, "exec sleep 5")
	root := circuitsRoot(t)
	p := Detect(context.Background(), NargoConfig{
		Binary:       bin,
		CircuitsRoot: root,
		ProveTimeout: 100 * time.Millisecond,
	}, nil)

	started := time.Now()
	_, err := p.Prove(context.Background(), Join, Inputs{})
	var perr *ProofError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(started), 3*time.Second)
}
