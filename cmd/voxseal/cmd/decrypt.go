package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/voxseal/engine"
	"github.com/jmcleod/voxseal/envelope"
)

var (
	decryptIn  string
	decryptOut string
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt an envelope addressed to you",
	Long: `Reads the envelope JSON given by --in, unwraps the message key with
--user's private key, and writes the decrypted message to --out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(decryptIn)
		if err != nil {
			return fmt.Errorf("failed to read envelope: %w", err)
		}
		env, err := envelope.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("invalid envelope: %w", err)
		}

		mgr, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := mgr.Initialize(cmd.Context(), userID); err != nil {
			return fmt.Errorf("failed to load key pair: %w", err)
		}

		eng := engine.New()
		plaintext, err := eng.DecryptForSelf(cmd.Context(), engine.Identity{UserID: userID, Keys: mgr}, env)
		if err != nil {
			return fmt.Errorf("decryption failed: %w", err)
		}

		if err := os.WriteFile(decryptOut, plaintext, 0o600); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Printf("Decrypted message from %s -> %s\n", env.SenderID, decryptOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decryptCmd)
	decryptCmd.Flags().StringVar(&decryptIn, "in", "", "Envelope file to decrypt")
	decryptCmd.Flags().StringVar(&decryptOut, "out", "", "Decrypted output file")
	decryptCmd.MarkFlagRequired("in")
	decryptCmd.MarkFlagRequired("out")
}
