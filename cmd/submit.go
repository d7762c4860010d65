package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtlnet/mtl/block"
	"github.com/mtlnet/mtl/config"
	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/jsonrpc"
	"github.com/mtlnet/mtl/logx"
	"github.com/mtlnet/mtl/transaction"
)

// SenderConfig holds the flags shared by the commands that sign and
// submit transactions.
type SenderConfig struct {
	PrivateKey     string
	PrivateKeyFile string
	NodeURL        string
	Scheme         string
	HashScheme     string
	Verbose        bool
}

func registerSenderFlags(cmd *cobra.Command, cfg *SenderConfig) {
	cmd.PersistentFlags().StringVarP(&cfg.PrivateKeyFile, "private-key-file", "f", "", "sender private key file")
	cmd.PersistentFlags().StringVarP(&cfg.PrivateKey, "private-key", "p", "", "sender private key in hex")
	cmd.PersistentFlags().StringVarP(&cfg.NodeURL, "node-url", "u", config.DefaultNodeURL, "ledger node URL")
	cmd.PersistentFlags().StringVar(&cfg.Scheme, "scheme", crypto.SigSchemeEd25519, "signature scheme (ed25519 or secp256k1)")
	cmd.PersistentFlags().StringVar(&cfg.HashScheme, "hash", crypto.HashSchemeSHA256, "hash scheme (sha256 or blake2b)")
	cmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "verbose output")
}

// loadSenderSigner builds the signer from the flags, preferring the
// inline key over the key file.
func loadSenderSigner(cfg SenderConfig) (crypto.Signer, error) {
	if cfg.PrivateKey != "" {
		return crypto.ParseSigner(cfg.Scheme, strings.TrimSpace(cfg.PrivateKey))
	}
	if cfg.PrivateKeyFile == "" {
		return nil, fmt.Errorf("either --private-key or --private-key-file is required")
	}
	return crypto.LoadSigner(cfg.Scheme, cfg.PrivateKeyFile)
}

// submitBlock wraps the signed transactions in the next block after the
// node's tip and proposes it.
func submitBlock(ctx context.Context, cfg SenderConfig, client *jsonrpc.Client,
	hasher crypto.Hasher, txs []*transaction.Transaction) (*jsonrpc.ProposeBlockResult, error) {

	tip, err := client.GetTip(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain tip: %w", err)
	}
	if cfg.Verbose {
		logx.Debug("SUBMIT CLI", fmt.Sprintf("Building block %d on parent %s", tip.Number+1, tip.BlockHash.Hex()))
	}

	b := block.New(hasher, tip.Number+1, tip.BlockHash, txs)
	result, err := client.ProposeBlock(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to propose block: %w", err)
	}
	return result, nil
}

// nextNonce asks the node for the sender's committed nonce and returns
// the follow-up value a new transaction should carry.
func nextNonce(ctx context.Context, client *jsonrpc.Client, sender string) (uint64, error) {
	nonce, err := client.GetNonce(ctx, sender)
	if err != nil {
		return 0, fmt.Errorf("failed to get sender nonce: %w", err)
	}
	return nonce + 1, nil
}
