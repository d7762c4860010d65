package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mtlnet/mtl/crypto"
)

var (
	keygenScheme string
	keygenOut    string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a keypair and write the private key to a file",
	Run: func(cmd *cobra.Command, args []string) {
		runKeygen(keygenScheme, keygenOut)
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keygenScheme, "scheme", "s", crypto.SigSchemeEd25519, "Signature scheme (ed25519 or secp256k1)")
	keygenCmd.Flags().StringVarP(&keygenOut, "out", "o", "", "Output path for the hex private key (required)")
}

func runKeygen(scheme string, out string) {
	if out == "" {
		log.Fatalf("keygen requires --out")
	}

	signer, err := crypto.NewSigner(scheme)
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create key directory: %v", err)
		}
	}
	if err := os.WriteFile(out, []byte(signer.PrivateKeyHex()+"\n"), 0600); err != nil {
		log.Fatalf("Failed to write key file: %v", err)
	}

	fmt.Printf("scheme:  %s\n", signer.Scheme())
	fmt.Printf("address: %s\n", signer.Address())
	fmt.Printf("key:     %s\n", out)
}
