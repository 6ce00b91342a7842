package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neicnordic/LocalEGA-tester/internal/crypt4gh"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/stager"
)

func encryptCmd() *cobra.Command {
	var in string
	var out string
	var recipientKey string

	c := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a file into a Crypt4GH container",
		RunE: func(_ *cobra.Command, _ []string) error {
			keyData, err := os.ReadFile(recipientKey)
			if err != nil {
				return fmt.Errorf("read recipient key: %w", err)
			}
			pub, err := crypt4gh.ParsePublicKey(keyData)
			if err != nil {
				return fmt.Errorf("recipient key %s: %w", recipientKey, err)
			}

			src, err := os.Open(in)
			if err != nil {
				return err
			}
			defer src.Close()

			if out == "" {
				base := strings.TrimSuffix(in, filepath.Ext(in))
				out = base + stager.EncryptedExt
			}

			dst, err := os.Create(out)
			if err != nil {
				return err
			}

			// Fresh ephemeral writer key per container.
			writer, err := crypt4gh.GenerateKeyPair()
			if err != nil {
				dst.Close()
				return err
			}

			if err := crypt4gh.Encrypt(dst, src, writer.Secret, pub); err != nil {
				dst.Close()
				_ = os.Remove(out)
				return fmt.Errorf("encrypt %s: %w", in, err)
			}
			if err := dst.Close(); err != nil {
				_ = os.Remove(out)
				return err
			}

			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}

	c.Flags().StringVarP(&in, "in", "i", "", "Plaintext input file (required)")
	c.Flags().StringVarP(&out, "out", "o", "", "Output container path (defaults to input with a .c4ga extension)")
	c.Flags().StringVarP(&recipientKey, "recipient-key", "r", "", "Armored Crypt4GH public key of the recipient (required)")

	_ = c.MarkFlagRequired("in")
	_ = c.MarkFlagRequired("recipient-key")
	return c
}
