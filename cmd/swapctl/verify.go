package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaifufi/swap-sdk-go/chain"
)

var errInvalidSignature = errors.New("signature invalid")

var flagSignatureFile string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a signature against an order",
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&flagOrderFile, "order", "",
		"order JSON file")
	verifyCmd.Flags().StringVar(&flagSignatureFile, "signature", "",
		"signature JSON file")
	verifyCmd.Flags().BoolVar(&flagSimple, "simple", false,
		"verify a flat simple order")

	_ = verifyCmd.MarkFlagRequired("order")
	_ = verifyCmd.MarkFlagRequired("signature")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	contract, err := verifyingContract()
	if err != nil {
		return err
	}
	verifier := chain.NewVerifier(chain.NewEIP712Domain(contract))

	var file signatureFile
	if err := readJSON(flagSignatureFile, &file); err != nil {
		return err
	}

	var valid bool
	if flagSimple {
		order, err := readSimpleOrder(flagOrderFile)
		if err != nil {
			return err
		}
		r, s, err := file.components()
		if err != nil {
			return err
		}
		valid = verifier.IsValidSimple(order, file.V, r, s)
	} else {
		order, err := readOrder(flagOrderFile)
		if err != nil {
			return err
		}
		sig, err := file.signature()
		if err != nil {
			return err
		}
		valid = verifier.IsValid(order, sig)
	}

	if !valid {
		return errInvalidSignature
	}
	fmt.Fprintln(cmd.OutOrStdout(), "valid")
	return nil
}
