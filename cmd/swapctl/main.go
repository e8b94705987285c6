// Command swapctl computes order digests, signs and verifies orders offline
// and inspects the settlement state store.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagContract string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "swapctl",
	Short:         "Tools for signed swap orders",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		level, err := logrus.ParseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagContract, "contract", os.Getenv("SWAP_VERIFYING_CONTRACT"),
		"verifying contract address of the signing domain")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("swapctl failed")
		os.Exit(1)
	}
}
