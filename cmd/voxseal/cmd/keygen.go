package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create (or load) the key pair for a user",
	Long: `Generates an identity key pair for --user and stores it in the local key
store. Running keygen again for the same user keeps the existing pair.
The public key is printed so it can be shared with other family members.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := mgr.Initialize(cmd.Context(), userID); err != nil {
			return fmt.Errorf("failed to initialize key pair: %w", err)
		}

		pub, err := mgr.ExportPublicKey()
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", pub)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
