package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/jsonrpc"
	"github.com/mtlnet/mtl/logx"
	"github.com/mtlnet/mtl/transaction"
)

type MintConfig struct {
	SenderConfig
	Ticker string
	Owner  string
	Supply string
}

var mintConfig MintConfig

// mintCmd represents the mint command
var mintCmd = &cobra.Command{
	Use:   "mint [flags]",
	Short: "Initialize a ticker and assign its full supply to an owner",
	Long: `This command signs a mint transaction for a ticker and submits it to the
node inside a fresh block. A ticker can be minted exactly once; the node
rejects the block when the ticker already exists.

Examples:
  # Mint 50000 GOLD to the owner address, signing with a key file
  mint -t GOLD -o 6B86b273ff34fce19d6b804eff5a3f5747ada4eaa22f1d49c01e52ddb7875b4b -s 50_000 -f /path/to/key.txt`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := mintToken(mintConfig); err != nil {
			logx.Error("MINT CLI", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mintCmd)

	registerSenderFlags(mintCmd, &mintConfig.SenderConfig)
	mintCmd.PersistentFlags().StringVarP(&mintConfig.Ticker, "ticker", "t", "", "ticker to initialize")
	mintCmd.PersistentFlags().StringVarP(&mintConfig.Owner, "owner", "o", "", "address that receives the supply (defaults to the sender)")
	mintCmd.PersistentFlags().StringVarP(&mintConfig.Supply, "supply", "s", "", "total supply for the ticker")
}

func mintToken(cfg MintConfig) error {
	if cfg.Ticker == "" {
		return fmt.Errorf("mint requires --ticker")
	}
	supply, err := parseAmount(cfg.Supply)
	if err != nil {
		return fmt.Errorf("could not parse supply: %w", err)
	}

	signer, err := loadSenderSigner(cfg.SenderConfig)
	if err != nil {
		return fmt.Errorf("failed to load sender private key: %w", err)
	}
	hasher, err := crypto.NewHasher(cfg.HashScheme)
	if err != nil {
		return err
	}

	owner := cfg.Owner
	if owner == "" {
		owner = signer.Address()
	}

	client := jsonrpc.NewClient(cfg.NodeURL)
	ctx := context.Background()

	nonce, err := nextNonce(ctx, client, signer.Address())
	if err != nil {
		return err
	}

	tx := transaction.NewMint(hasher, signer.Address(), transaction.Ticker(cfg.Ticker), owner, supply, nonce).Sign(signer)
	if cfg.Verbose {
		logx.Debug("MINT CLI", fmt.Sprintf("Minting %d %s to %s (tx %s)", supply, cfg.Ticker, owner, tx.Hash()))
	}

	result, err := submitBlock(ctx, cfg.SenderConfig, client, hasher, []*transaction.Transaction{tx})
	if err != nil {
		return err
	}
	logx.Info("MINT CLI", fmt.Sprintf("Minted %d %s to %s in block %d (%s)",
		supply, cfg.Ticker, owner, result.Number, result.BlockHash))
	return nil
}

// parseAmount parses a uint16 amount, allowing underscore separators the
// way humans write them.
func parseAmount(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
