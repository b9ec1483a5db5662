package prover

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"go.dedis.ch/kyber/v4/suites"
)

// The Ed25519 suite hashes with SHA-256, which is what the verifier and
// the bridge expect for digests.
var suite = suites.MustFind("Ed25519")

var mask64 = new(big.Int).SetUint64(^uint64(0))

// Sum returns the suite hash of data.
func Sum(data []byte) []byte {
	h := suite.Hash()
	h.Write(data)
	return h.Sum(nil)
}

// Digest returns the suite hash of data as lowercase hex.
func Digest(data []byte) string {
	return hex.EncodeToString(Sum(data))
}

// Hex64 formats v as 64 zero-padded hex digits.
func Hex64(v uint64) string {
	return fmt.Sprintf("%064x", v)
}

// Nullifier returns the 64-bit nullifier for kind:
//
//	join: s*31 + r*97 + 7
//	task: s*41 + t*13 + r*101
//	kill: s*67 + r*17
//	vote: s*53 + m*11
func Nullifier(kind Kind, in Inputs) uint64 {
	return new(big.Int).And(rawNullifier(kind, in), mask64).Uint64()
}

func rawNullifier(kind Kind, in Inputs) *big.Int {
	s := u(in.PlayerSecret)
	switch kind {
	case Join:
		return sum(mul(s, 31), mul(u(in.RoundID), 97), i(7))
	case Task:
		return sum(mul(s, 41), mul(i(in.TaskID), 13), mul(u(in.RoundID), 101))
	case Kill:
		return sum(mul(s, 67), mul(u(in.RoundID), 17))
	case Vote:
		return sum(mul(s, 53), mul(u(in.MeetingRound), 11))
	}
	return new(big.Int)
}

func roleSecret(in Inputs) uint64 {
	return (in.PlayerSecret ^ in.RoundID) & 0xFFFFFFFF
}

func taskSecret(in Inputs) uint64 {
	return (in.PlayerSecret ^ uint64(in.TaskID)) & 0xFFFFFFFF
}

// proverToml renders the circuit parameter file for kind.
func proverToml(kind Kind, in Inputs) string {
	s := u(in.PlayerSecret)
	nullifier := rawNullifier(kind, in)
	var params [][2]string
	switch kind {
	case Join:
		rs := u(roleSecret(in))
		commitment := sum(new(big.Int).Mul(rs, rs), mul(s, 19), i(17))
		params = [][2]string{
			{"role_secret", rs.String()},
			{"player_secret", s.String()},
			{"round_id", fmt.Sprint(in.RoundID)},
			{"role_commitment", commitment.String()},
		}
	case Task:
		ts := u(taskSecret(in))
		commitment := sum(mul(i(in.TaskID), 131), mul(ts, 17), mul(s, 23))
		params = [][2]string{
			{"task_id", fmt.Sprint(in.TaskID)},
			{"task_secret", ts.String()},
			{"player_secret", s.String()},
			{"round_id", fmt.Sprint(in.RoundID)},
			{"task_commitment", commitment.String()},
		}
	case Kill:
		distance := sum(mul(i(in.DX), in.DX), mul(i(in.DY), in.DY))
		commitment := sum(mul(distance, 11), i(1), i(97), mul(s, 5))
		params = [][2]string{
			{"dx", fmt.Sprint(in.DX)},
			{"dy", fmt.Sprint(in.DY)},
			{"cooldown_ok", "1"},
			{"role_flag", "1"},
			{"player_secret", s.String()},
			{"round_id", fmt.Sprint(in.RoundID)},
			{"kill_commitment", commitment.String()},
		}
	case Vote:
		commitment := sum(mul(i(in.TargetIndex), 257), mul(s, 29), mul(u(in.MeetingRound), 3))
		params = [][2]string{
			{"target_index", fmt.Sprint(in.TargetIndex)},
			{"player_secret", s.String()},
			{"meeting_round", fmt.Sprint(in.MeetingRound)},
			{"vote_commitment", commitment.String()},
		}
	}
	params = append(params, [2]string{"action_nullifier", nullifier.String()})

	var b strings.Builder
	for _, p := range params {
		fmt.Fprintf(&b, "%s = %q\n", p[0], p[1])
	}
	return b.String()
}

func u(v uint64) *big.Int { return new(big.Int).SetUint64(v) }
func i(v int64) *big.Int  { return big.NewInt(v) }

func mul(x *big.Int, k int64) *big.Int {
	return new(big.Int).Mul(x, big.NewInt(k))
}

func sum(xs ...*big.Int) *big.Int {
	total := new(big.Int)
	for _, x := range xs {
		total.Add(total, x)
	}
	return total
}
