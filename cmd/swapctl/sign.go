package main

import (
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kaifufi/swap-sdk-go/chain"
)

var flagKey string

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign an order with a maker or delegate key",
	RunE:  runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVar(&flagOrderFile, "order", "",
		"order JSON file")
	signCmd.Flags().StringVar(&flagVersion, "version", "structured",
		"signature version (structured or personal)")
	signCmd.Flags().BoolVar(&flagSimple, "simple", false,
		"sign a flat simple order")
	signCmd.Flags().StringVar(&flagKey, "key", os.Getenv("SWAP_SIGNER_KEY"),
		"hex private key of the signer")

	_ = signCmd.MarkFlagRequired("order")
}

func runSign(cmd *cobra.Command, _ []string) error {
	contract, err := verifyingContract()
	if err != nil {
		return err
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(flagKey, "0x"))
	if err != nil {
		return err
	}
	builder := chain.NewOrderBuilder(contract, key)
	log := logrus.WithField("signer", builder.Signer().Hex())

	if flagSimple {
		order, err := readSimpleOrder(flagOrderFile)
		if err != nil {
			return err
		}
		if order.MakerWallet != builder.Signer() {
			log.Warn("simple orders are only valid when signed by the maker wallet")
		}
		v, r, s, err := builder.SignSimpleOrder(order)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), signatureFile{Signer: builder.Signer(), V: v, R: r[:], S: s[:]})
	}

	order, err := readOrder(flagOrderFile)
	if err != nil {
		return err
	}
	version, err := parseVersion(flagVersion)
	if err != nil {
		return err
	}
	sig, err := builder.SignOrder(order, version)
	if err != nil {
		return err
	}
	log.WithField("take_id", order.TakeID).Debug("order signed")
	return writeJSON(cmd.OutOrStdout(), newSignatureFile(sig))
}
