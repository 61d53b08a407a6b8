package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/voxseal/keypair"
)

var wipePurge bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Destroy a user's key material on this device",
	Long: `Destroys the in-memory key handles for --user. With --purge the stored
record is deleted as well, so the next keygen produces a brand new pair
and messages sealed to the old key become unrecoverable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := mgr.Initialize(cmd.Context(), userID); err != nil {
			return fmt.Errorf("failed to load key pair: %w", err)
		}

		opts := []keypair.WipeOption{}
		if wipePurge {
			opts = append(opts, keypair.WithStorePurge())
		}
		if err := mgr.Wipe(cmd.Context(), opts...); err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}

		if wipePurge {
			fmt.Printf("Key material for %s wiped and purged from the store\n", userID)
		} else {
			fmt.Printf("Key material for %s wiped (stored record kept)\n", userID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wipeCmd)
	wipeCmd.Flags().BoolVar(&wipePurge, "purge", false, "Also delete the stored key record")
}
