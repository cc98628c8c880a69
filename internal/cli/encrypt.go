/*
Copyright © 2025 Logicos Software

encrypt.go implements the 'encrypt' command: read plaintext, seal it once
per recipient named in a method file, and write the resulting artifact.
*/
package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ssops/internal/envelope"
	"ssops/internal/errs"
	"ssops/internal/logging"
	"ssops/internal/method"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <method-file>",
	Short: "Encrypt input for every recipient in a method file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		methodPath := args[0]
		name, _ := cmd.Flags().GetString("filter")
		inPath, _ := cmd.Flags().GetString("in")
		outPath, _ := cmd.Flags().GetString("out")

		f, err := method.Load(methodPath)
		if err != nil {
			return err
		}
		recipients := f.Filter(name)
		if len(recipients) == 0 {
			return errs.New(errs.KindConfigInvalid, "no recipients matched")
		}

		plaintext, err := readInput(inPath)
		if err != nil {
			return err
		}

		art, err := envelope.EncryptAll(recipients, plaintext)
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(art)
		if err != nil {
			return errs.Wrap(errs.KindConfigInvalid, "encode artifact", err)
		}
		if err := writeOutput(outPath, out); err != nil {
			return err
		}

		if outPath != "-" && outPath != "" {
			logging.New(debugFlag(cmd)).OK("encrypted for " + methodPath)
		}
		return nil
	},
}

func init() {
	encryptCmd.Flags().StringP("filter", "f", "", "restrict to the recipient with this name")
	encryptCmd.Flags().StringP("in", "i", "-", "input path, or - for stdin")
	encryptCmd.Flags().StringP("out", "o", "-", "output path, or - for stdout")
	rootCmd.AddCommand(encryptCmd)
}
