/*
Copyright © 2025 Logicos Software

decrypt.go implements the 'decrypt' command: parse an artifact and try
each recipient entry in order until one unwraps successfully.
*/
package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ssops/internal/envelope"
	"ssops/internal/errs"
	"ssops/internal/keystore"
	"ssops/internal/logging"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt an artifact using any one recipient's private key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("filter")
		inPath, _ := cmd.Flags().GetString("in")
		outPath, _ := cmd.Flags().GetString("out")

		raw, err := readInput(inPath)
		if err != nil {
			return err
		}

		var art envelope.Artifact
		if err := yaml.Unmarshal(raw, &art); err != nil {
			return errs.Wrap(errs.KindConfigInvalid, "decode artifact", err)
		}

		store, err := keystore.Open()
		if err != nil {
			return err
		}
		resolver := envelope.Resolver{Store: store, PromptExisting: promptExisting}

		plaintext, skipped, err := envelope.DecryptAny(&art, resolver, name)
		if err != nil {
			return err
		}

		if err := writeOutput(outPath, plaintext); err != nil {
			return err
		}

		log := logging.New(debugFlag(cmd))
		if log.Debug {
			for _, s := range skipped {
				log.Info("skipped recipient before decrypting succeeded: %s", s.Error())
			}
		}
		if outPath != "-" && outPath != "" {
			log.OK("decrypted")
		}
		return nil
	},
}

func init() {
	decryptCmd.Flags().StringP("filter", "f", "", "restrict to the artifact entry with this name")
	decryptCmd.Flags().StringP("in", "i", "-", "input path, or - for stdin")
	decryptCmd.Flags().StringP("out", "o", "-", "output path, or - for stdout")
	rootCmd.AddCommand(decryptCmd)
}
