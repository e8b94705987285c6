// Example usage of the swap settlement SDK on the in-process ledger
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	swap "github.com/kaifufi/swap-sdk-go"
	"github.com/kaifufi/swap-sdk-go/chain"
	"github.com/kaifufi/swap-sdk-go/ledger"
	"github.com/kaifufi/swap-sdk-go/notify"
)

func main() {
	config := swap.DefaultConfig()
	config.Engine.VerifyingContract = "0x000000000000000000000000000000000000a11c"

	var recorder notify.Recorder
	client, err := swap.NewClient(config, swap.WithSinks(&recorder))
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	makerKey, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate maker key: %v", err)
	}
	maker := crypto.PubkeyToAddress(makerKey.PublicKey)
	taker := common.HexToAddress("0x00000000000000000000000000000000000000b0")

	makerToken := common.HexToAddress("0x0000000000000000000000000000000000000a01")
	takerToken := common.HexToAddress("0x0000000000000000000000000000000000000b01")

	// Fund both sides
	book := client.Ledger()
	book.RegisterToken(makerToken, ledger.KindFungible)
	book.RegisterToken(takerToken, ledger.KindFungible)
	if err := book.Mint(makerToken, maker, big.NewInt(1_000)); err != nil {
		log.Fatalf("Failed to mint: %v", err)
	}
	if err := book.Mint(takerToken, taker, big.NewInt(500)); err != nil {
		log.Fatalf("Failed to mint: %v", err)
	}

	// Maker signs an order off-chain
	builder := chain.NewOrderBuilder(config.VerifyingContractAddress(), makerKey)
	signed, err := builder.BuildSignedOrder(&chain.OrderData{
		Expiry: big.NewInt(time.Now().Add(time.Hour).Unix()),
		Maker:  chain.Party{Wallet: maker, Token: makerToken, Param: big.NewInt(100)},
		Taker:  chain.Party{Wallet: taker, Token: takerToken, Param: big.NewInt(50)},
	}, chain.VersionStructured)
	if err != nil {
		log.Fatalf("Failed to sign order: %v", err)
	}
	fmt.Printf("Order %s signed by %s\n", signed.Order.TakeID, signed.Signature.Signer.Hex())

	// Taker settles it
	if err := client.Swap(ctx, swap.Call{Sender: taker}, signed); err != nil {
		log.Fatalf("Swap failed: %v", err)
	}

	status, err := client.GetStatus(maker, signed.Order.TakeID)
	if err != nil {
		log.Fatalf("Failed to read status: %v", err)
	}
	fmt.Printf("Order status: %s\n", status.Status)
	fmt.Printf("Taker now holds %s maker tokens\n", book.TokenBalance(makerToken, taker))

	// Replaying the same order is rejected
	if err := client.Swap(ctx, swap.Call{Sender: taker}, signed); err != nil {
		fmt.Printf("Replay rejected: %v\n", err)
	}

	// Maker cancels a future identifier
	if err := client.Cancel(ctx, swap.Call{Sender: maker}, []*big.Int{big.NewInt(42)}); err != nil {
		log.Fatalf("Cancel failed: %v", err)
	}

	for _, ev := range recorder.Events() {
		fmt.Printf("Event: %s\n", ev.Name())
	}
}
