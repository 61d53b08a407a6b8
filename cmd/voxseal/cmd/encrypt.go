package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/voxseal/engine"
	"github.com/jmcleod/voxseal/envelope"
	"github.com/jmcleod/voxseal/keypair"
	"github.com/jmcleod/voxseal/wrap"
)

var (
	encryptIn         string
	encryptOut        string
	encryptFormat     string
	encryptDurationMs int64
	encryptCopySelf   bool
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt recipient=pubkey-file [recipient=pubkey-file ...]",
	Short: "Encrypt a message file to one or more recipients",
	Long: `Encrypts the file given by --in into an envelope JSON written to --out.
Each positional argument names one recipient and the file holding their
exported public key, e.g.:

  voxseal encrypt --user alice --in song.ogg --out song.env \
      bob=bob.pub carol=carol.pub`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipients, err := parseRecipientArgs(args)
		if err != nil {
			return err
		}

		plaintext, err := os.ReadFile(encryptIn)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		mgr, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := mgr.Initialize(cmd.Context(), userID); err != nil {
			return fmt.Errorf("failed to load key pair: %w", err)
		}

		opts := []engine.EncryptOption{}
		if encryptFormat != "" || encryptDurationMs > 0 {
			opts = append(opts, engine.WithMetadata(envelope.Metadata{
				DurationMs: encryptDurationMs,
				Format:     encryptFormat,
			}))
		}
		if encryptCopySelf {
			opts = append(opts, engine.WithCopyToSelf())
		}

		eng := engine.New()
		env, err := eng.EncryptForRecipients(cmd.Context(), engine.Identity{UserID: userID, Keys: mgr}, plaintext, recipients, opts...)
		if err != nil {
			return fmt.Errorf("encryption failed: %w", err)
		}

		out, err := envelope.Marshal(env)
		if err != nil {
			return err
		}
		if err := os.WriteFile(encryptOut, out, 0o644); err != nil {
			return fmt.Errorf("failed to write envelope: %w", err)
		}
		fmt.Printf("Encrypted %s for %d recipient(s) -> %s\n", encryptIn, len(env.RecipientIDs), encryptOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encryptCmd)
	encryptCmd.Flags().StringVar(&encryptIn, "in", "", "File to encrypt")
	encryptCmd.Flags().StringVar(&encryptOut, "out", "", "Envelope output file")
	encryptCmd.Flags().StringVar(&encryptFormat, "format", "", "Audio format recorded in envelope metadata")
	encryptCmd.Flags().Int64Var(&encryptDurationMs, "duration-ms", 0, "Duration in milliseconds recorded in envelope metadata")
	encryptCmd.Flags().BoolVar(&encryptCopySelf, "copy-to-self", false, "Also wrap the key for the sender")
	encryptCmd.MarkFlagRequired("in")
	encryptCmd.MarkFlagRequired("out")
}

// parseRecipientArgs turns "id=pubkey-file" pairs into a recipient key
// set, reading and parsing each public key file.
func parseRecipientArgs(args []string) (wrap.RecipientKeySet, error) {
	recipients := make(wrap.RecipientKeySet, len(args))
	for _, arg := range args {
		id, file, ok := strings.Cut(arg, "=")
		if !ok || id == "" || file == "" {
			return nil, fmt.Errorf("invalid recipient %q, expected id=pubkey-file", arg)
		}
		serialized, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key for %s: %w", id, err)
		}
		pub, err := keypair.ImportPublicKey(serialized)
		if err != nil {
			return nil, fmt.Errorf("invalid public key for %s: %w", id, err)
		}
		if _, dup := recipients[id]; dup {
			return nil, fmt.Errorf("recipient %s listed twice", id)
		}
		recipients[id] = pub
	}
	return recipients, nil
}
