/*
Copyright © 2025 Logicos Software

ssops - method-based secret sharing

This is the main entry point for the ssops command-line tool. ssops lets
a group of collaborators encrypt data for a named recipient set and
decrypt it with any one recipient's private key, protected by a
passphrase or an SSH-agent challenge signature.
*/
package main

import "ssops/internal/cli"

// main delegates all command handling to internal/cli, which uses the
// Cobra library for CLI argument parsing and command execution.
func main() {
	cli.Execute()
}
