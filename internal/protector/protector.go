/*
Copyright © 2025 Logicos Software

Package protector implements the private-key protection layer: wrapping
and unwrapping a private-key plaintext blob under either a
user-supplied passphrase or a challenge signed by an SSH agent. Both
kinds share the same on-disk record shape and both bottom out in the
scrypt/AES-GCM primitive from internal/kdf.
*/
package protector

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	sshagent "ssops/internal/agent"
	"ssops/internal/errs"
	"ssops/internal/kdf"
)

// Protection kind tags, persisted in Record.Type.
const (
	KindPassword = "password"
	KindSSHAgent = "ssh-agent"
)

const challengeLen = 32

// Record is the on-disk shape shared by both protection kinds: a type
// tag, the protected key's name (used in prompts), and kind-specific
// data. Data is kept as a yaml.Node so it can be decoded into the right
// concrete type once Type is known.
type Record struct {
	Type string    `yaml:"type"`
	Name string    `yaml:"name"`
	Data yaml.Node `yaml:"data"`
}

// SSHAgentData is the SSH-agent wrap record described by the design: a
// random challenge, the recipient's authorized-keys line, and a
// passphrase-style record whose "password" is the agent's signature over
// the challenge.
type SSHAgentData struct {
	Challenge           string     `yaml:"challenge"`
	SSHPublicKey        string     `yaml:"ssh_public_key"`
	EncryptedPrivateKey kdf.Record `yaml:"encrypted_private_key"`
}

// PromptFunc requests a passphrase from the user; a blank returned string
// means the user declined the prompt.
type PromptFunc func(promptText string) (string, error)

// Prompter separates the two distinct passphrase moments a caller may
// need to drive: creating a new passphrase (asked twice, must match) and
// entering an existing one (asked once, blank means decline).
type Prompter struct {
	PromptNew      func(name string) (string, string, error)
	PromptExisting PromptFunc
}

// WrapPassphrase creates a Record protecting plaintext with a
// passphrase, asking the prompter to collect and confirm it.
func WrapPassphrase(name string, plaintext []byte, prompter Prompter) (*Record, error) {
	pass1, pass2, err := prompter.PromptNew(name)
	if err != nil {
		return nil, err
	}
	if pass1 != pass2 {
		return nil, errs.New(errs.KindPassphraseMismatch, "passphrase entries did not match")
	}

	rec, err := kdf.Wrap([]byte(pass1), plaintext)
	if err != nil {
		return nil, err
	}
	return &Record{Type: KindPassword, Name: name, Data: encodeNode(rec)}, nil
}

// UnwrapPassphrase decrypts a passphrase-protected Record, prompting once.
// A blank passphrase aborts with UserDeclined.
func UnwrapPassphrase(rec *Record, prompt PromptFunc) ([]byte, error) {
	passphrase, err := prompt(fmt.Sprintf("Passphrase for %q: ", rec.Name))
	if err != nil {
		return nil, err
	}
	if passphrase == "" {
		return nil, errs.New(errs.KindUserDeclined, "no passphrase entered for "+rec.Name)
	}

	var kr kdf.Record
	if err := rec.Data.Decode(&kr); err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "decode wrap record for "+rec.Name, err)
	}
	return kdf.Unwrap([]byte(passphrase), &kr)
}

// WrapSSHAgent protects plaintext by drawing a random challenge, asking
// the agent to sign it over the identity named by the authorized-keys
// line at pubKeyPath, and using the signature as the password input to
// internal/kdf.Wrap.
func WrapSSHAgent(name, pubKeyPath string, plaintext []byte) (*Record, error) {
	line, pub, err := readAuthorizedKey(pubKeyPath)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, errs.New(errs.KindUnsupportedRecipientKind, "ssh key is not RSA-backed")
	}
	if _, isRSA := rsaPub.CryptoPublicKey().(*rsa.PublicKey); !isRSA {
		return nil, errs.New(errs.KindUnsupportedRecipientKind, "only RSA ssh-agent keys are supported (deterministic signatures required)")
	}

	challenge := make([]byte, challengeLen)
	if _, err := io.ReadFull(rand.Reader, challenge); err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "generate challenge", err)
	}

	sig, err := signWithAgent(pub.Marshal(), challenge)
	if err != nil {
		return nil, err
	}

	kr, err := kdf.Wrap(sig, plaintext)
	if err != nil {
		return nil, err
	}

	data := SSHAgentData{
		Challenge:           hex.EncodeToString(challenge),
		SSHPublicKey:        line,
		EncryptedPrivateKey: *kr,
	}
	return &Record{Type: KindSSHAgent, Name: name, Data: encodeNode(data)}, nil
}

// UnwrapSSHAgent reverses WrapSSHAgent: it re-signs the stored challenge
// with the agent and uses that signature to unwrap the encrypted key.
func UnwrapSSHAgent(rec *Record) ([]byte, error) {
	var data SSHAgentData
	if err := rec.Data.Decode(&data); err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "decode ssh-agent record for "+rec.Name, err)
	}

	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(data.SSHPublicKey))
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "parse stored ssh public key", err)
	}

	challenge, err := hex.DecodeString(data.Challenge)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "decode stored challenge", err)
	}

	sig, err := signWithAgent(pub.Marshal(), challenge)
	if err != nil {
		return nil, err
	}

	return kdf.Unwrap(sig, &data.EncryptedPrivateKey)
}

// signWithAgent connects to the agent, verifies it holds keyBlob, and
// requests a signature over data, returning only the raw signature bytes
// (the caller uses these as password/KDF input, not as an SSH signature).
func signWithAgent(keyBlob, data []byte) ([]byte, error) {
	client, err := sshagent.Dial()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	ids, err := client.List()
	if err != nil {
		return nil, err
	}
	if !sshagent.HasKey(ids, keyBlob) {
		return nil, errs.New(errs.KindKeyNotInAgent, "identity is not loaded in the ssh-agent")
	}

	_, sig, err := client.Sign(keyBlob, data)
	if err != nil {
		return nil, err
	}
	if len(sig) == 0 {
		return nil, errs.New(errs.KindBadSignature, "agent returned an empty signature")
	}
	return sig, nil
}

// readAuthorizedKey reads and parses a single authorized-keys line,
// returning both the raw trimmed line (persisted verbatim) and the
// parsed public key.
func readAuthorizedKey(path string) (line string, pub ssh.PublicKey, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errs.Wrap(errs.KindIoFailure, "read ssh public key file "+path, err)
	}
	trimmed := strings.TrimSpace(string(raw))
	pub, _, _, _, err = ssh.ParseAuthorizedKey([]byte(trimmed))
	if err != nil {
		return "", nil, errs.Wrap(errs.KindConfigInvalid, "parse authorized-keys line", err)
	}
	return trimmed, pub, nil
}

func encodeNode(v interface{}) yaml.Node {
	var n yaml.Node
	_ = n.Encode(v)
	return n
}
