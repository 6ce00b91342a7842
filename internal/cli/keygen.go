package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neicnordic/LocalEGA-tester/internal/crypt4gh"
)

func keygenCmd() *cobra.Command {
	var workspace string
	var name string
	var passphrase string
	var force bool

	c := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a Crypt4GH keypair under keys/",
		RunE: func(_ *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}

			keysDir := filepath.Join(ws.root, ws.cfg.Paths.KeysDir)
			if err := os.MkdirAll(keysDir, 0o755); err != nil {
				return fmt.Errorf("create keys dir: %w", err)
			}

			pubPath := filepath.Join(keysDir, name+".pub")
			secPath := filepath.Join(keysDir, name+".sec")

			if !force {
				for _, p := range []string{pubPath, secPath} {
					if fileExists(p) {
						return fmt.Errorf("%s already exists (use --force to overwrite)", p)
					}
				}
			}

			kp, err := crypt4gh.GenerateKeyPair()
			if err != nil {
				return fmt.Errorf("generate keypair: %w", err)
			}

			sec, err := crypt4gh.EncodePrivateKey(kp.Secret, []byte(passphrase))
			if err != nil {
				return fmt.Errorf("encode private key: %w", err)
			}

			if err := os.WriteFile(pubPath, crypt4gh.EncodePublicKey(kp.Public), 0o644); err != nil {
				return err
			}
			if err := os.WriteFile(secPath, sec, 0o600); err != nil {
				return err
			}

			fmt.Printf("wrote %s\n", pubPath)
			fmt.Printf("wrote %s\n", secPath)
			return nil
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVarP(&name, "name", "n", "tester", "Key name (files become <name>.pub and <name>.sec)")
	c.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase sealing the private key (empty stores it in the clear)")
	c.Flags().BoolVar(&force, "force", false, "Overwrite existing key files")

	return c
}
