package main

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/swap-sdk-go/chain"
)

const (
	testKeyHex   = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testContract = "0x000000000000000000000000000000000000c0de"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func testOrder(maker common.Address) *chain.Order {
	return &chain.Order{
		TakeID: big.NewInt(11),
		KillID: big.NewInt(11),
		Expiry: big.NewInt(4_000_000_000),
		Maker: chain.Party{
			Wallet: maker,
			Token:  common.HexToAddress("0x00000000000000000000000000000000000000aa"),
			Param:  big.NewInt(100),
		},
		Taker: chain.Party{
			Wallet: common.HexToAddress("0x00000000000000000000000000000000000000b0"),
			Token:  common.HexToAddress("0x00000000000000000000000000000000000000bb"),
			Param:  big.NewInt(50),
		},
		Affiliate: chain.Party{Param: big.NewInt(0)},
	}
}

func TestSignAndVerify(t *testing.T) {
	dir := t.TempDir()
	builder := chain.NewOrderBuilder(common.HexToAddress(testContract), mustKey(t))
	order := testOrder(builder.Signer())
	orderPath := writeFile(t, dir, "order.json", order)

	t.Run("digest matches the verifier", func(t *testing.T) {
		out, err := execute(t, "digest", "--contract", testContract, "--order", orderPath,
			"--version", "structured", "--simple=false")
		require.NoError(t, err)

		verifier := chain.NewVerifier(chain.NewEIP712Domain(common.HexToAddress(testContract)))
		want, err := verifier.SignedDigest(order, chain.VersionStructured)
		require.NoError(t, err)
		assert.Equal(t, want.Hex(), strings.TrimSpace(out))
	})

	for _, version := range []string{"structured", "personal"} {
		version := version
		t.Run(version+" signature verifies", func(t *testing.T) {
			out, err := execute(t, "sign", "--contract", testContract, "--order", orderPath,
				"--version", version, "--key", testKeyHex, "--simple=false")
			require.NoError(t, err)

			var sig signatureFile
			require.NoError(t, json.Unmarshal([]byte(out), &sig))
			assert.Equal(t, builder.Signer(), sig.Signer)
			sigPath := writeFile(t, dir, version+".json", sig)

			out, err = execute(t, "verify", "--contract", testContract, "--order", orderPath,
				"--signature", sigPath, "--simple=false")
			require.NoError(t, err)
			assert.Equal(t, "valid", strings.TrimSpace(out))

			tampered := testOrder(builder.Signer())
			tampered.Taker.Param = big.NewInt(51)
			tamperedPath := writeFile(t, dir, version+"-tampered.json", tampered)
			_, err = execute(t, "verify", "--contract", testContract, "--order", tamperedPath,
				"--signature", sigPath, "--simple=false")
			assert.ErrorIs(t, err, errInvalidSignature)
		})
	}

	t.Run("simple order", func(t *testing.T) {
		simple := &chain.SimpleOrder{
			ID:          big.NewInt(3),
			Expiry:      big.NewInt(4_000_000_000),
			MakerWallet: builder.Signer(),
			MakerParam:  big.NewInt(10),
			MakerToken:  common.HexToAddress("0x00000000000000000000000000000000000000aa"),
			TakerWallet: common.HexToAddress("0x00000000000000000000000000000000000000b0"),
			TakerParam:  big.NewInt(20),
			TakerToken:  common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		}
		simplePath := writeFile(t, dir, "simple.json", simple)

		out, err := execute(t, "sign", "--contract", testContract, "--order", simplePath,
			"--key", testKeyHex, "--simple")
		require.NoError(t, err)
		var sig signatureFile
		require.NoError(t, json.Unmarshal([]byte(out), &sig))
		sigPath := writeFile(t, dir, "simple-sig.json", sig)

		out, err = execute(t, "verify", "--contract", testContract, "--order", simplePath,
			"--signature", sigPath, "--simple")
		require.NoError(t, err)
		assert.Equal(t, "valid", strings.TrimSpace(out))
	})
}

func TestInvalidInput(t *testing.T) {
	dir := t.TempDir()
	orderPath := writeFile(t, dir, "order.json", map[string]interface{}{"expiry": 1})

	_, err := execute(t, "digest", "--contract", testContract, "--order", orderPath, "--simple=false")
	assert.Error(t, err)

	_, err = execute(t, "digest", "--contract", "not-an-address", "--order", orderPath, "--simple=false")
	assert.Error(t, err)

	_, err = parseVersion("0x02")
	assert.Error(t, err)

	_, _, err = signatureFile{R: []byte{1}, S: make([]byte, 32)}.components()
	assert.Error(t, err)
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return key
}
