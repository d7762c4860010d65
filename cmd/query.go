package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mtlnet/mtl/config"
	"github.com/mtlnet/mtl/jsonrpc"
	"github.com/mtlnet/mtl/jsonx"
	"github.com/mtlnet/mtl/transaction"
)

var queryNodeURL string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read ledger and chain state from a node",
}

var queryBalanceCmd = &cobra.Command{
	Use:   "balance <ticker> <address>",
	Short: "Show the balance an address holds for a ticker",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := jsonrpc.NewClient(queryNodeURL)
		balance, err := client.GetBalance(context.Background(), transaction.Ticker(args[0]), args[1])
		if err != nil {
			log.Fatalf("Failed to get balance: %v", err)
		}
		fmt.Println(balance)
	},
}

var queryInitializedCmd = &cobra.Command{
	Use:   "initialized <ticker>",
	Short: "Show whether a ticker has been minted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := jsonrpc.NewClient(queryNodeURL)
		initialized, err := client.IsInitialized(context.Background(), transaction.Ticker(args[0]))
		if err != nil {
			log.Fatalf("Failed to get ticker state: %v", err)
		}
		fmt.Println(initialized)
	},
}

var queryNonceCmd = &cobra.Command{
	Use:   "nonce <address>",
	Short: "Show the last committed nonce of an address",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := jsonrpc.NewClient(queryNodeURL)
		nonce, err := client.GetNonce(context.Background(), args[0])
		if err != nil {
			log.Fatalf("Failed to get nonce: %v", err)
		}
		fmt.Println(nonce)
	},
}

var queryStateHashCmd = &cobra.Command{
	Use:   "statehash",
	Short: "Show the digest of the committed ledger state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := jsonrpc.NewClient(queryNodeURL)
		stateHash, err := client.GetStateHash(context.Background())
		if err != nil {
			log.Fatalf("Failed to get state hash: %v", err)
		}
		fmt.Println(stateHash)
	},
}

var queryTipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Show the chain tip",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := jsonrpc.NewClient(queryNodeURL)
		tip, err := client.GetTip(context.Background())
		if err != nil {
			log.Fatalf("Failed to get tip: %v", err)
		}
		printJSON(tip)
	},
}

var queryBlockCmd = &cobra.Command{
	Use:   "block <number>",
	Short: "Show a stored block",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		number, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			log.Fatalf("Invalid block number %q: %v", args[0], err)
		}
		client := jsonrpc.NewClient(queryNodeURL)
		b, err := client.GetBlock(context.Background(), uint32(number))
		if err != nil {
			log.Fatalf("Failed to get block: %v", err)
		}
		printJSON(b)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.PersistentFlags().StringVarP(&queryNodeURL, "node-url", "u", config.DefaultNodeURL, "ledger node URL")

	queryCmd.AddCommand(queryBalanceCmd)
	queryCmd.AddCommand(queryInitializedCmd)
	queryCmd.AddCommand(queryNonceCmd)
	queryCmd.AddCommand(queryStateHashCmd)
	queryCmd.AddCommand(queryTipCmd)
	queryCmd.AddCommand(queryBlockCmd)
}

func printJSON(v interface{}) {
	out, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render response: %v", err)
	}
	fmt.Println(string(out))
}
