package commands

// Root command for the Cobra CLI.

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nft-transfers-tracker",
	Short: "Telegram bot that tracks NFT transfers and mints for registered Ethereum wallets",
	Long: `NFT Transfers Tracker watches registered Ethereum wallet addresses and sends
one Telegram notification per new on-chain NFT/token transfer or mint, advancing a
persisted per-wallet block cursor so activity is neither lost nor re-alerted.`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
}
