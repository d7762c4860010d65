package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mtlnet/mtl/logx"
)

var rootCmd = &cobra.Command{
	Use:           "mtl",
	Short:         "MTL token ledger node CLI",
	Long:          "Run, query and submit transactions to an MTL token ledger node.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and reports failure to the caller,
// keeping the os.Exit decision in main.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command failed: ", err)
		return err
	}
	return nil
}
