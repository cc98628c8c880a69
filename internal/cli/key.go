/*
Copyright © 2025 Logicos Software

key.go implements the 'key' command family: generating, checking,
re-protecting, and listing local key-store entries.
*/
package cli

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/spf13/cobra"

	"ssops/internal/envelope"
	"ssops/internal/errs"
	"ssops/internal/keystore"
	"ssops/internal/logging"
	"ssops/internal/protector"
)

const rsaKeyBits = 2048

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage local recipient key-store entries",
}

var keyGenCmd = &cobra.Command{
	Use:   "gen <name>",
	Short: "Generate a new RSA key pair and store it protected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		keyType, _ := cmd.Flags().GetString("type")
		sshPub, _ := cmd.Flags().GetString("ssh")
		if keyType != "rsa" {
			return errs.New(errs.KindConfigInvalid, "unsupported key type: "+keyType).
				WithHint("only 'rsa' is supported")
		}

		store, err := keystore.Open()
		if err != nil {
			return err
		}
		if store.Exists(name) {
			return errs.New(errs.KindKeyExists, "key already exists: "+name).
				WithHint("use 'key protect' to rewrap an existing key")
		}

		priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return errs.Wrap(errs.KindIoFailure, "generate rsa key", err)
		}
		pubPEM, err := envelope.EncodePublicKeyPEM(&priv.PublicKey)
		if err != nil {
			return err
		}
		plaintext := envelope.EncodePrivateKeyBytes(priv)

		rec, err := protectPlaintext(name, plaintext, sshPub)
		if err != nil {
			return err
		}

		if err := store.Save(name, rec, []byte(pubPEM), false); err != nil {
			return err
		}
		logging.New(debugFlag(cmd)).OK(fmt.Sprintf("generated and protected key %q", name))
		return nil
	},
}

var keyCheckCmd = &cobra.Command{
	Use:   "check <name>",
	Short: "Verify a stored key can be unwrapped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		store, err := keystore.Open()
		if err != nil {
			return err
		}
		rec, err := store.LoadPrivate(name)
		if err != nil {
			return err
		}
		if _, err := unwrapRecord(rec); err != nil {
			return err
		}
		logging.New(debugFlag(cmd)).OK("ok")
		return nil
	},
}

var keyProtectCmd = &cobra.Command{
	Use:   "protect <name>",
	Short: "Rewrap a stored key under a new protection scheme",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		sshPub, _ := cmd.Flags().GetString("ssh")

		store, err := keystore.Open()
		if err != nil {
			return err
		}
		oldRec, err := store.LoadPrivate(name)
		if err != nil {
			return err
		}
		plaintext, err := unwrapRecord(oldRec)
		if err != nil {
			return err
		}

		newRec, err := protectPlaintext(name, plaintext, sshPub)
		if err != nil {
			return err
		}

		pubPEM, err := store.LoadPublic(name)
		if err != nil {
			return err
		}
		if err := store.Save(name, newRec, pubPEM, true); err != nil {
			return err
		}
		logging.New(debugFlag(cmd)).OK(fmt.Sprintf("re-protected key %q", name))
		return nil
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local key-store entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := keystore.Open()
		if err != nil {
			return err
		}
		names, err := store.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

// protectPlaintext wraps plaintext under an SSH-agent challenge if sshPub
// is non-empty, otherwise under a double-prompted passphrase.
func protectPlaintext(name string, plaintext []byte, sshPub string) (*protector.Record, error) {
	if sshPub != "" {
		return protector.WrapSSHAgent(name, sshPub, plaintext)
	}
	return protector.WrapPassphrase(name, plaintext, defaultPrompter())
}

func unwrapRecord(rec *protector.Record) ([]byte, error) {
	switch rec.Type {
	case protector.KindPassword:
		return protector.UnwrapPassphrase(rec, promptExisting)
	case protector.KindSSHAgent:
		return protector.UnwrapSSHAgent(rec)
	default:
		return nil, errs.New(errs.KindUnsupportedRecipientKind, "unsupported protection kind: "+rec.Type)
	}
}

func init() {
	keyGenCmd.Flags().StringP("type", "t", "rsa", "key type (only 'rsa' is supported)")
	keyGenCmd.Flags().String("ssh", "", "authorized-keys file protecting the new key via ssh-agent instead of a passphrase")
	keyProtectCmd.Flags().String("ssh", "", "authorized-keys file protecting the key via ssh-agent instead of a passphrase")

	keyCmd.AddCommand(keyGenCmd, keyCheckCmd, keyProtectCmd, keyListCmd)
	rootCmd.AddCommand(keyCmd)
}
