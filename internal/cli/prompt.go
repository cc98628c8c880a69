/*
Copyright © 2025 Logicos Software

prompt.go implements hidden terminal prompting for passphrases: secure
input via golang.org/x/term when stdin is a terminal, falling back to a
plain read otherwise.
*/
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"ssops/internal/protector"
)

func promptHidden(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	var s string
	_, err := fmt.Fscanln(os.Stdin, &s)
	if err != nil && err != io.EOF && s == "" {
		// A blank line reads as empty input, as it does on a terminal.
		return "", nil
	}
	return strings.TrimSpace(s), err
}

// promptExisting implements protector.PromptFunc: a single hidden prompt
// naming the key, blank input signaling decline.
func promptExisting(promptText string) (string, error) {
	return promptHidden(promptText)
}

// promptNewPassphrase implements the double-entry side of
// protector.Prompter: it asks twice and lets protector.WrapPassphrase
// decide whether the two entries match.
func promptNewPassphrase(name string) (string, string, error) {
	first, err := promptHidden(fmt.Sprintf("New passphrase for %q: ", name))
	if err != nil {
		return "", "", err
	}
	second, err := promptHidden(fmt.Sprintf("Confirm passphrase for %q: ", name))
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}

func defaultPrompter() protector.Prompter {
	return protector.Prompter{
		PromptNew:      promptNewPassphrase,
		PromptExisting: promptExisting,
	}
}
