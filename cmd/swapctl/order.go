package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	swap "github.com/kaifufi/swap-sdk-go"
	"github.com/kaifufi/swap-sdk-go/chain"
)

// signatureFile is the JSON form of a signature exchanged with wallets
type signatureFile struct {
	Signer  common.Address `json:"signer,omitempty"`
	V       uint8          `json:"v"`
	R       hexutil.Bytes  `json:"r"`
	S       hexutil.Bytes  `json:"s"`
	Version uint8          `json:"version,omitempty"`
}

func newSignatureFile(sig *chain.Signature) signatureFile {
	return signatureFile{
		Signer:  sig.Signer,
		V:       sig.V,
		R:       sig.R[:],
		S:       sig.S[:],
		Version: uint8(sig.Version),
	}
}

func (f signatureFile) components() (r, s [32]byte, err error) {
	if len(f.R) != 32 || len(f.S) != 32 {
		return r, s, &swap.InvalidParamError{Message: "signature r and s must be 32 bytes"}
	}
	copy(r[:], f.R)
	copy(s[:], f.S)
	return r, s, nil
}

func (f signatureFile) signature() (*chain.Signature, error) {
	r, s, err := f.components()
	if err != nil {
		return nil, err
	}
	return &chain.Signature{
		Signer:  f.Signer,
		V:       f.V,
		R:       r,
		S:       s,
		Version: chain.SignatureVersion(f.Version),
	}, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readOrder(path string) (*chain.Order, error) {
	var order chain.Order
	if err := readJSON(path, &order); err != nil {
		return nil, err
	}
	if order.TakeID == nil || order.KillID == nil || order.Expiry == nil {
		return nil, &swap.InvalidParamError{Message: "order takeId, killId and expiry are required"}
	}
	return &order, nil
}

func readSimpleOrder(path string) (*chain.SimpleOrder, error) {
	var order chain.SimpleOrder
	if err := readJSON(path, &order); err != nil {
		return nil, err
	}
	if order.ID == nil || order.Expiry == nil {
		return nil, &swap.InvalidParamError{Message: "order id and expiry are required"}
	}
	return &order, nil
}

func verifyingContract() (common.Address, error) {
	if !common.IsHexAddress(flagContract) {
		return common.Address{}, &swap.InvalidParamError{Message: fmt.Sprintf("--contract must be a hex address, got: %q", flagContract)}
	}
	return common.HexToAddress(flagContract), nil
}

func parseVersion(v string) (chain.SignatureVersion, error) {
	switch v {
	case "structured", "0x01":
		return chain.VersionStructured, nil
	case "personal", "0x45":
		return chain.VersionPersonalSign, nil
	default:
		return 0, &swap.InvalidParamError{Message: fmt.Sprintf("unknown signature version: %q", v)}
	}
}
