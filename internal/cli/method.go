/*
Copyright © 2025 Logicos Software

method.go implements the 'method' command: `ssops method <method-file>
<action> [args...]`. The method file path leads every invocation, so
cobra's usual verb-first subcommand matching does not apply here; actions
are dispatched by hand against the second positional argument.
*/
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"ssops/internal/envelope"
	"ssops/internal/errs"
	"ssops/internal/keystore"
	"ssops/internal/logging"
	"ssops/internal/method"
)

var methodCmd = &cobra.Command{
	Use:   "method <method-file> <create|show|add-key|add-ssh-key|remove-key> [args...]",
	Short: "Manage a method file's recipient list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, action, rest := args[0], args[1], args[2:]
		log := logging.New(debugFlag(cmd))

		switch action {
		case "create":
			return methodCreate(path, log)
		case "show":
			return methodShow(path)
		case "add-key":
			if len(rest) != 1 {
				return errs.New(errs.KindConfigInvalid, "add-key takes exactly one recipient name")
			}
			embed, _ := cmd.Flags().GetBool("embed")
			return methodAddKey(path, rest[0], embed, log)
		case "add-ssh-key":
			if len(rest) != 1 {
				return errs.New(errs.KindConfigInvalid, "add-ssh-key takes exactly one authorized-keys file")
			}
			return methodAddSSHKey(path, rest[0], log)
		case "remove-key":
			if len(rest) != 1 {
				return errs.New(errs.KindConfigInvalid, "remove-key takes exactly one recipient name")
			}
			force, _ := cmd.Flags().GetBool("force")
			return methodRemoveKey(path, rest[0], force, log)
		default:
			return errs.New(errs.KindConfigInvalid, "unknown method action: "+action)
		}
	},
}

func methodCreate(path string, log *logging.Logger) error {
	if err := method.Create(path, false); err != nil {
		return err
	}
	log.OK(fmt.Sprintf("created %s", path))
	return nil
}

func methodShow(path string) error {
	f, err := method.Load(path)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	f.Show(w)
	return w.Flush()
}

func methodAddKey(path, name string, embed bool, log *logging.Logger) error {
	store, err := keystore.Open()
	if err != nil {
		return err
	}
	pubPEM, err := store.LoadPublic(name)
	if err != nil {
		return err
	}

	recipient := envelope.Recipient{
		Kind:      envelope.KindRSA,
		Name:      name,
		PublicKey: string(pubPEM),
	}
	if embed {
		rec, err := store.LoadPrivate(name)
		if err != nil {
			return err
		}
		recipient.EncryptedPrivateKey = rec
	}

	f, err := method.Load(path)
	if err != nil {
		return err
	}
	if err := f.AddKey(recipient, embed); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return err
	}
	log.OK(fmt.Sprintf("added %s to %s", name, path))
	return nil
}

func methodAddSSHKey(path, pubPath string, log *logging.Logger) error {
	raw, err := os.ReadFile(pubPath)
	if err != nil {
		return errs.Wrap(errs.KindIoFailure, "read "+pubPath, err)
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey(raw)
	if err != nil {
		return errs.Wrap(errs.KindConfigInvalid, "parse authorized-keys line", err)
	}
	cryptoPub, ok := pub.(ssh.CryptoPublicKey)
	if !ok {
		return errs.New(errs.KindUnsupportedRecipientKind, "ssh key is not RSA-backed")
	}

	pubPEM, err := envelope.EncodePublicKeyFromCrypto(cryptoPub)
	if err != nil {
		return err
	}

	name := method.RecipientNameFromAuthorizedKeysPath(pubPath)
	recipient := envelope.Recipient{
		Kind:      envelope.KindRSA,
		Name:      name,
		PublicKey: pubPEM,
	}

	f, err := method.Load(path)
	if err != nil {
		return err
	}
	if err := f.AddKey(recipient, false); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return err
	}
	log.OK(fmt.Sprintf("added %s to %s", name, path))
	return nil
}

func methodRemoveKey(path, name string, force bool, log *logging.Logger) error {
	if !force {
		return errs.New(errs.KindConfigInvalid, "remove-key requires --force").
			WithHint("method files are append-only by convention; pass --force to edit deliberately")
	}

	f, err := method.Load(path)
	if err != nil {
		return err
	}
	if err := f.RemoveKey(envelope.KindRSA, name); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return err
	}
	log.OK(fmt.Sprintf("removed %s from %s", name, path))
	return nil
}

func init() {
	methodCmd.Flags().BoolP("embed", "e", false, "embed the recipient's encrypted private key in the descriptor (add-key)")
	methodCmd.Flags().Bool("force", false, "confirm removal from an append-only method file (remove-key)")

	rootCmd.AddCommand(methodCmd)
}
