package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pubkeyOut string

var pubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Export a user's public key",
	Long: `Prints the serialized public key for --user, or writes it to --out.
The output is safe to share; it contains no secret material.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := mgr.Initialize(cmd.Context(), userID); err != nil {
			return fmt.Errorf("failed to load key pair: %w", err)
		}

		pub, err := mgr.ExportPublicKey()
		if err != nil {
			return err
		}

		if pubkeyOut != "" {
			if err := os.WriteFile(pubkeyOut, pub, 0o644); err != nil {
				return fmt.Errorf("failed to write public key: %w", err)
			}
			return nil
		}
		fmt.Printf("%s\n", pub)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pubkeyCmd)
	pubkeyCmd.Flags().StringVar(&pubkeyOut, "out", "", "Write the public key to this file instead of stdout")
}
