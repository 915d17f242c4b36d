package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nanochain/logx"
	"nanochain/pow"
)

var (
	mineID          uint64
	minePrevHash    string
	mineData        string
	mineTimestamp   int64
	mineMaxAttempts uint64
)

// mineCmd is an offline one-shot nonce search, handy for producing fixture
// blocks without running a node.
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine a single block offline and print its nonce and hash",
	Run: func(cmd *cobra.Command, args []string) {
		timestamp := mineTimestamp
		if timestamp == 0 {
			timestamp = time.Now().Unix()
		}

		nonce, hash, err := pow.Mine(context.Background(), mineID, timestamp, minePrevHash, mineData,
			pow.MineConfig{MaxAttempts: mineMaxAttempts})
		if err != nil {
			logx.Error("CMD", "Mining failed: ", err)
			os.Exit(1)
		}

		fmt.Printf("id: %d\ntimestamp: %d\nnonce: %d\nhash: %s\n", mineID, timestamp, nonce, hash)
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().Uint64Var(&mineID, "id", 1, "Block index")
	mineCmd.Flags().StringVar(&minePrevHash, "prev", "", "Hex hash of the predecessor block")
	mineCmd.Flags().StringVar(&mineData, "data", "", "Opaque block payload")
	mineCmd.Flags().Int64Var(&mineTimestamp, "timestamp", 0, "Unix timestamp (0 = now)")
	mineCmd.Flags().Uint64Var(&mineMaxAttempts, "max-attempts", 0, "Attempt budget (0 = unbounded)")
}
