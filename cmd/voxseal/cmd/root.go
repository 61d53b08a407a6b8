package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmcleod/voxseal/keypair"
	bboltkeystore "github.com/jmcleod/voxseal/keystore/bbolt"
)

var (
	dataDir    string
	userID     string
	passphrase string
)

var rootCmd = &cobra.Command{
	Use:   "voxseal",
	Short: "voxseal encrypts voice messages end to end",
	Long: `A hybrid encryption tool for private family voice messages: each message
is sealed with a one-time key, wrapped individually for every recipient.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "Directory holding the local key store")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User ID to act as")
	rootCmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "Passphrase protecting stored key material")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voxseal"
	}
	return filepath.Join(home, ".voxseal")
}

// openManager opens the on-disk key store and builds a key pair manager
// for the --user flag. The caller must invoke the returned closer.
func openManager() (*keypair.Manager, func() error, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("--user is required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := bboltkeystore.NewStoreFromFile(filepath.Join(dataDir, "keys.db"), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open key store: %w", err)
	}

	opts := []keypair.Option{}
	if passphrase != "" {
		opts = append(opts, keypair.WithPassphrase(passphrase))
	}
	return keypair.NewManager(store, opts...), store.Close, nil
}
