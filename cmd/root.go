package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"nanochain/logx"
)

var rootCmd = &cobra.Command{
	Use:   "nanochain",
	Short: "nanochain PoW node CLI",
	Long:  "Command line interface for running and managing a nanochain proof-of-work node.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
