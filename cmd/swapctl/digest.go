package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaifufi/swap-sdk-go/chain"
)

var (
	flagOrderFile string
	flagVersion   string
	flagSimple    bool
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print the digest a signer signs for an order",
	RunE:  runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)

	digestCmd.Flags().StringVar(&flagOrderFile, "order", "",
		"order JSON file")
	digestCmd.Flags().StringVar(&flagVersion, "version", "structured",
		"signature version (structured or personal)")
	digestCmd.Flags().BoolVar(&flagSimple, "simple", false,
		"treat the file as a flat simple order")

	_ = digestCmd.MarkFlagRequired("order")
}

func runDigest(cmd *cobra.Command, _ []string) error {
	contract, err := verifyingContract()
	if err != nil {
		return err
	}
	verifier := chain.NewVerifier(chain.NewEIP712Domain(contract))

	if flagSimple {
		order, err := readSimpleOrder(flagOrderFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), verifier.SimpleDigest(order).Hex())
		return nil
	}

	order, err := readOrder(flagOrderFile)
	if err != nil {
		return err
	}
	version, err := parseVersion(flagVersion)
	if err != nil {
		return err
	}
	digest, err := verifier.SignedDigest(order, version)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), digest.Hex())
	return nil
}
