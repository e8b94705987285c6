package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	swap "github.com/kaifufi/swap-sdk-go"
	"github.com/kaifufi/swap-sdk-go/state"
)

var (
	flagConfig string
	flagMaker  string
	flagIDs    string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read order statuses from a settlement state directory",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&flagConfig, "config", "",
		"settlement config file")
	statusCmd.Flags().StringVar(&flagMaker, "maker", "",
		"maker address")
	statusCmd.Flags().StringVar(&flagIDs, "ids", "",
		"comma separated order identifiers")

	_ = statusCmd.MarkFlagRequired("maker")
	_ = statusCmd.MarkFlagRequired("ids")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := swap.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return &swap.InvalidParamError{Message: "store.path must point at a state directory"}
	}
	if !common.IsHexAddress(flagMaker) {
		return &swap.InvalidParamError{Message: "--maker must be a hex address"}
	}
	ids, err := swap.ParseUint256List(flagIDs)
	if err != nil {
		return err
	}

	store, err := state.OpenBadgerStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	maker := common.HexToAddress(flagMaker)
	results := make([]swap.StatusResult, 0, len(ids))
	for _, id := range ids {
		status, err := store.Status(maker, id)
		if err != nil {
			return err
		}
		results = append(results, swap.StatusResult{
			Maker:  maker.Hex(),
			ID:     id.String(),
			Status: status.String(),
		})
	}
	return writeJSON(cmd.OutOrStdout(), results)
}
