package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/chainplay/prover"
	"github.com/luca-patrignani/chainplay/wallet"
)

var nargoFlags = prover.DefaultNargoConfig()

var proverCmd = &cobra.Command{
	Use:   "prover",
	Short: "Inspect the proving backend",
	Long: `Checks whether the external prover is usable and generates sample
proofs with it, or with the simulator when it is not.

Available subcommands:
  check - probe the prover binary and circuits
  prove - generate one proof and print its digest and nullifier`,
}

var proverCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the prover binary and circuits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := prover.Detect(cmd.Context(), nargoFlags, newLogger())
		if p.Available() {
			pterm.Success.Printfln("%s is usable with circuits in %s", nargoFlags.Binary, nargoFlags.CircuitsRoot)
			return nil
		}
		pterm.Warning.Printfln("%s is not usable, proofs will be simulated", nargoFlags.Binary)
		return nil
	},
}

var (
	proveWallet string
	proveInputs prover.Inputs
)

var proverProveCmd = &cobra.Command{
	Use:       "prove {join|task|kill|vote}",
	Short:     "Generate one proof",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(prover.Join), string(prover.Task), string(prover.Kill), string(prover.Vote)},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := prover.Kind(args[0])
		in := proveInputs
		in.PlayerSecret = wallet.DeriveSecret(proveWallet)

		p := prover.Detect(cmd.Context(), nargoFlags, newLogger())
		proof, err := p.Prove(cmd.Context(), kind, in)
		if err != nil {
			return err
		}
		renderProof(kind, proof)
		return nil
	},
}

func init() {
	proverCmd.PersistentFlags().StringVar(&nargoFlags.Binary, "binary", nargoFlags.Binary, "prover binary")
	proverCmd.PersistentFlags().StringVar(&nargoFlags.CircuitsRoot, "circuits", nargoFlags.CircuitsRoot, "directory holding one folder per circuit")
	proverCmd.PersistentFlags().DurationVar(&nargoFlags.ProveTimeout, "timeout", nargoFlags.ProveTimeout, "limit for one proof")

	f := proverProveCmd.Flags()
	f.StringVar(&proveWallet, "wallet", "", "wallet address the player secret is derived from")
	f.Uint64Var(&proveInputs.RoundID, "round", 1, "round id")
	f.Uint64Var(&proveInputs.MeetingRound, "meeting", 1, "meeting round, for votes")
	f.Int64Var(&proveInputs.TaskID, "task", 0, "task id")
	f.Int64Var(&proveInputs.DX, "dx", 0, "killer x minus victim x")
	f.Int64Var(&proveInputs.DY, "dy", 0, "killer y minus victim y")
	f.Int64Var(&proveInputs.TargetIndex, "target", 0, "vote target index")

	proverCmd.AddCommand(proverCheckCmd, proverProveCmd)
}

func renderProof(kind prover.Kind, proof prover.Proof) {
	source := "external prover"
	if proof.Simulated {
		source = "simulated"
	}
	rows := pterm.TableData{
		{"field", "value"},
		{"circuit", kind.Circuit()},
		{"source", source},
		{"digest", proof.Digest},
		{"nullifier", proof.Nullifier},
	}
	for i, in := range proof.PublicInputs {
		rows = append(rows, []string{fmt.Sprintf("public input %d", i), in})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
