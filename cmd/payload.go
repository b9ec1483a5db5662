package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/luca-patrignani/chainplay/config"
	"github.com/luca-patrignani/chainplay/dispatcher"
)

// envelope is what the demo builder hands the wallet. A real client
// replaces it with a Soroban transaction; the bridge treats both as an
// opaque string.
type envelope struct {
	Contract string          `json:"contract"`
	Network  string          `json:"network"`
	Method   string          `json:"method"`
	Args     dispatcher.Args `json:"args"`
}

type envelopeBuilder struct {
	contract string
	network  string
}

func newEnvelopeBuilder(cfg config.SorobanConfig) *envelopeBuilder {
	return &envelopeBuilder{contract: cfg.ContractID, network: cfg.NetworkPassphrase}
}

func (b *envelopeBuilder) Build(_ context.Context, action dispatcher.Action, args dispatcher.Args) (string, error) {
	raw, err := json.Marshal(envelope{
		Contract: b.contract,
		Network:  b.network,
		Method:   string(action),
		Args:     args,
	})
	if err != nil {
		return "", fmt.Errorf("encode %s envelope: %w", action, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
