package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/jsonrpc"
	"github.com/mtlnet/mtl/logx"
	"github.com/mtlnet/mtl/transaction"
)

type TransferConfig struct {
	SenderConfig
	Ticker string
	To     string
	Amount string
}

var transferConfig TransferConfig

// transferCmd represents the transfer command
var transferCmd = &cobra.Command{
	Use:   "transfer [flags]",
	Short: "Transfer tokens to another account",
	Long: `This command signs a transfer transaction and submits it to the node
inside a fresh block. The private key can be provided either directly via
the --private-key flag or via a file using --private-key-file.

Examples:
  # Transfer 1000 GOLD using a private key file
  transfer -k GOLD -t 6B86b273ff34fce19d6b804eff5a3f5747ada4eaa22f1d49c01e52ddb7875b4b -a 1_000 -f /path/to/key.txt

  # Transfer 500 GOLD using the private key directly
  transfer -k GOLD -t 6B86b273ff34fce19d6b804eff5a3f5747ada4eaa22f1d49c01e52ddb7875b4b -a 500 -p "your-private-key-here"`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := transferToken(transferConfig); err != nil {
			logx.Error("TRANSFER CLI", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(transferCmd)

	registerSenderFlags(transferCmd, &transferConfig.SenderConfig)
	transferCmd.PersistentFlags().StringVarP(&transferConfig.Ticker, "ticker", "k", "", "ticker to move")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.To, "to", "t", "", "address of recipient")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.Amount, "amount", "a", "", "amount")
}

func transferToken(cfg TransferConfig) error {
	if cfg.Ticker == "" {
		return fmt.Errorf("transfer requires --ticker")
	}
	if cfg.To == "" {
		return fmt.Errorf("transfer requires --to")
	}
	amount, err := parseAmount(cfg.Amount)
	if err != nil {
		return fmt.Errorf("could not parse amount: %w", err)
	}

	signer, err := loadSenderSigner(cfg.SenderConfig)
	if err != nil {
		return fmt.Errorf("failed to load sender private key: %w", err)
	}
	hasher, err := crypto.NewHasher(cfg.HashScheme)
	if err != nil {
		return err
	}

	client := jsonrpc.NewClient(cfg.NodeURL)
	ctx := context.Background()

	nonce, err := nextNonce(ctx, client, signer.Address())
	if err != nil {
		return err
	}

	tx := transaction.NewTransfer(hasher, signer.Address(), transaction.Ticker(cfg.Ticker), cfg.To, amount, nonce).Sign(signer)
	if cfg.Verbose {
		logx.Debug("TRANSFER CLI", fmt.Sprintf("Transferring %d %s to %s (tx %s)", amount, cfg.Ticker, cfg.To, tx.Hash()))
	}

	result, err := submitBlock(ctx, cfg.SenderConfig, client, hasher, []*transaction.Transaction{tx})
	if err != nil {
		return err
	}

	// Print recipient balance after the transfer
	balance, err := client.GetBalance(ctx, transaction.Ticker(cfg.Ticker), cfg.To)
	if err != nil {
		return fmt.Errorf("failed to get recipient balance: %w", err)
	}
	logx.Info("TRANSFER CLI", fmt.Sprintf("Transferred %d %s to %s in block %d, recipient now holds %d",
		amount, cfg.Ticker, cfg.To, result.Number, balance))
	return nil
}
