/*
Copyright © 2025 Logicos Software

integration_test.go exercises the full command surface end to end: key
generation, method-file assembly, and a round trip through encrypt and
decrypt, all through the same cobra command tree main.go runs.
*/
package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// withStdin redirects os.Stdin to a regular file holding lines, so
// promptHidden's non-terminal fallback (fmt.Fscanln) drives it the same
// way piped input from a script would.
func withStdin(t *testing.T, lines ...string) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	old := os.Stdin
	os.Stdin = f
	t.Cleanup(func() {
		os.Stdin = old
		f.Close()
	})
}

func run(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("ssops %s: %v", strings.Join(args, " "), err)
	}
}

func TestEndToEndPassphraseFlow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	methodPath := filepath.Join(t.TempDir(), "team.yaml")
	inPath := filepath.Join(t.TempDir(), "plaintext.txt")
	artifactPath := filepath.Join(t.TempDir(), "artifact.yaml")
	outPath := filepath.Join(t.TempDir(), "recovered.txt")

	plaintext := "the launch code is 4815162342"
	if err := os.WriteFile(inPath, []byte(plaintext), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	withStdin(t, "s3cret-passphrase", "s3cret-passphrase")
	run(t, "key", "gen", "alex")

	run(t, "method", methodPath, "create")
	run(t, "method", methodPath, "--embed=false", "add-key", "alex")

	run(t, "encrypt", methodPath, "-i", inPath, "-o", artifactPath)

	withStdin(t, "s3cret-passphrase")
	run(t, "decrypt", "-i", artifactPath, "-o", outPath)

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != plaintext {
		t.Fatalf("recovered plaintext = %q, want %q", got, plaintext)
	}
}

func TestEndToEndEmbeddedKeySkipsStore(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	methodPath := filepath.Join(t.TempDir(), "team.yaml")
	inPath := filepath.Join(t.TempDir(), "plaintext.txt")
	artifactPath := filepath.Join(t.TempDir(), "artifact.yaml")
	outPath := filepath.Join(t.TempDir(), "recovered.txt")

	plaintext := "embedded recipients travel with the artifact"
	if err := os.WriteFile(inPath, []byte(plaintext), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	withStdin(t, "another-passphrase", "another-passphrase")
	run(t, "key", "gen", "mathieu")

	run(t, "method", methodPath, "create")
	run(t, "method", methodPath, "--embed", "add-key", "mathieu")

	run(t, "encrypt", methodPath, "-i", inPath, "-o", artifactPath)

	// Point HOME somewhere with no key store at all: decrypt must still
	// succeed because the private key travels embedded in the artifact.
	t.Setenv("HOME", t.TempDir())
	withStdin(t, "another-passphrase")
	run(t, "decrypt", "-i", artifactPath, "-o", outPath)

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != plaintext {
		t.Fatalf("recovered plaintext = %q, want %q", got, plaintext)
	}
}

func TestMethodAddKeyRejectsDuplicate(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	methodPath := filepath.Join(t.TempDir(), "team.yaml")

	withStdin(t, "pw", "pw")
	run(t, "key", "gen", "sam")
	run(t, "method", methodPath, "create")
	run(t, "method", methodPath, "--embed=false", "add-key", "sam")

	rootCmd.SetArgs([]string{"method", methodPath, "--embed=false", "add-key", "sam"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected the second add-key of the same recipient to fail")
	}
}
