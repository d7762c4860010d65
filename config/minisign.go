package config

import (
	"fmt"
	"os"

	"github.com/jedisct1/go-minisign"

	"github.com/mtlnet/mtl/logx"
)

// VerifyGenesisSignature checks the genesis file against its .minisig
// companion using a trusted minisign public key (base64, as printed by
// minisign -G). Deployments sign genesis.yml out of band so a node can
// refuse a tampered chain identity.
func VerifyGenesisSignature(genesisPath, publicKeyB64 string) error {
	pk, err := minisign.NewPublicKey(publicKeyB64)
	if err != nil {
		return fmt.Errorf("failed to parse minisign public key: %w", err)
	}

	data, err := os.ReadFile(genesisPath)
	if err != nil {
		return fmt.Errorf("failed to read genesis file: %w", err)
	}

	sig, err := minisign.NewSignatureFromFile(genesisPath + ".minisig")
	if err != nil {
		return fmt.Errorf("failed to read genesis signature: %w", err)
	}

	valid, err := pk.Verify(data, sig)
	if err != nil {
		return fmt.Errorf("failed to verify genesis signature: %w", err)
	}
	if !valid {
		return fmt.Errorf("genesis file %s does not match its minisign signature", genesisPath)
	}

	logx.Info("CONFIG", fmt.Sprintf("Verified minisign signature of %s", genesisPath))
	return nil
}
