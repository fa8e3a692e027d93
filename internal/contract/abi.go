// Package contract binds the fixed WavePortal contract to a wallet signer.
package contract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultAddress is the deployed WavePortal contract.
const DefaultAddress = "0x9C65B2C87fa0557a74Aa72Db309B466e0183bE1a"

// Placeholder replaces an empty wave message; the contract never receives "".
const Placeholder = "No Content"

// GasLimit is the fixed gas ceiling attached to every wave.
const GasLimit uint64 = 300000

const (
	methodTotal  = "getTotalWaves"
	methodAll    = "getAllWaves"
	methodWave   = "wave"
	EventNewWave = "NewWave"
)

//go:embed wave-portal.json
var artifact []byte

var parsed = mustParseABI(artifact)

func mustParseABI(b []byte) abi.ABI {
	var a struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(b, &a); err != nil {
		panic(fmt.Sprintf("contract artifact: %v", err))
	}
	out, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		panic(fmt.Sprintf("contract abi: %v", err))
	}
	return out
}

// ABI returns the parsed contract interface.
func ABI() abi.ABI { return parsed }

// NewWave is the decoded NewWave event.
type NewWave struct {
	From      common.Address
	Timestamp *big.Int
	Message   string
	Raw       types.Log
}

// DecodeWaveCall returns the message carried by wave(string) calldata.
func DecodeWaveCall(data []byte) (string, bool) {
	m := parsed.Methods[methodWave]
	if len(data) < 4 || !bytes.Equal(data[:4], m.ID) {
		return "", false
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil || len(args) != 1 {
		return "", false
	}
	msg, ok := args[0].(string)
	return msg, ok
}
