/*
Copyright © 2025 Logicos Software

Package cli implements all CLI commands for ssops using the Cobra library.

This package provides:
  - encrypt/decrypt: multi-recipient envelope operations
  - key: local key-store management (gen, check, protect, list)
  - method: method-file management (create, show, add-key, add-ssh-key)
  - version: build/version information

Global -d/--debug prints the full structured cause chain for a failure
instead of the terse one-line message every command prints by default.
*/
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"ssops/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "ssops",
	Short:         "Secret sharing for a group of collaborators",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `ssops lets a group of collaborators encrypt data for a named set of
recipients and decrypt it with any one recipient's private key.

Each recipient's private key is protected by a passphrase or by a
challenge signed by their SSH agent. Method files list the recipients an
encrypted artifact targets and are meant to travel via version control
alongside the artifacts they produce.`,
}

// Execute runs the root command and reports a classified failure through
// the debug-aware logger before exiting non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		debug, _ := rootCmd.PersistentFlags().GetBool("debug")
		logging.New(debug).Fail(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "print the full structured cause chain on failure")
}

func debugFlag(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}
