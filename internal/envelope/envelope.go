// Copyright © 2025 Logicos Software
package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"ssops/internal/errs"
	"ssops/internal/keystore"
	"ssops/internal/protector"
)

// Envelope is the per-recipient encrypted object: the RSA-OAEP
// ciphertext plus a copy of the recipient descriptor needed to decrypt it.
type Envelope struct {
	Ciphertext    string    `yaml:"ciphertext"`
	Configuration Recipient `yaml:"configuration"`
}

// ArtifactEntry is one element of the encrypted artifact array.
type ArtifactEntry struct {
	Type      string   `yaml:"type"`
	Name      string   `yaml:"name"`
	Encrypted Envelope `yaml:"encrypted"`
}

// Artifact is the full ordered list of per-recipient entries. On disk it
// is a bare YAML sequence of entries, not a map, so it stays distinct
// from the method file's {methods: [...]} shape.
type Artifact struct {
	Entries []ArtifactEntry
}

// MarshalYAML encodes an Artifact as a top-level sequence of its entries.
func (a Artifact) MarshalYAML() (interface{}, error) {
	return a.Entries, nil
}

// UnmarshalYAML decodes a top-level sequence of entries into an Artifact.
func (a *Artifact) UnmarshalYAML(value *yaml.Node) error {
	var entries []ArtifactEntry
	if err := value.Decode(&entries); err != nil {
		return err
	}
	a.Entries = entries
	return nil
}

// Resolver locates and unwraps the private key needed to decrypt an
// envelope, implementing the priority order from the design: an embedded
// key in the descriptor first, otherwise the local key store.
type Resolver struct {
	Store          *keystore.Store
	PromptExisting protector.PromptFunc
}

// Encrypt applies RSA-OAEP (SHA-256, MGF1-SHA-256, empty label) to
// plaintext using the recipient's public key.
func Encrypt(desc Recipient, plaintext []byte) (*Envelope, error) {
	pub, err := DecodePublicKeyPEM(desc.PublicKey)
	if err != nil {
		return nil, err
	}

	maxLen := pub.Size() - 2*sha256.Size - 2
	if len(plaintext) > maxLen {
		return nil, errs.New(errs.KindPayloadTooLarge,
			fmt.Sprintf("payload of %d bytes exceeds the %d-byte OAEP limit for this key", len(plaintext), maxLen))
	}

	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "rsa-oaep encrypt", err)
	}

	return &Envelope{Ciphertext: hex.EncodeToString(ct), Configuration: desc}, nil
}

// Decrypt resolves the recipient's private key (embedded, then key
// store), unwraps it via internal/protector, and RSA-OAEP decrypts the
// envelope's ciphertext.
func Decrypt(env *Envelope, r Resolver) ([]byte, error) {
	desc := env.Configuration

	privRec, err := r.resolvePrivateRecord(desc)
	if err != nil {
		return nil, err
	}

	plainKey, err := unwrapPrivateKey(privRec, r)
	if err != nil {
		return nil, errs.Wrap(errs.KindDecryptFailed, "unwrap private key for "+desc.Name, err)
	}

	priv, err := DecodePrivateKeyBytes(plainKey)
	if err != nil {
		return nil, errs.Wrap(errs.KindDecryptFailed, "parse private key for "+desc.Name, err)
	}

	ct, err := hex.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "decode ciphertext", err)
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ct, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindDecryptFailed, "rsa-oaep decrypt for "+desc.Name, err)
	}
	return plaintext, nil
}

func (r Resolver) resolvePrivateRecord(desc Recipient) (*protector.Record, error) {
	if desc.EncryptedPrivateKey != nil {
		return desc.EncryptedPrivateKey, nil
	}
	if r.Store == nil {
		return nil, errs.New(errs.KindKeyStoreMissing, "no local key store and no embedded private key for "+desc.Name)
	}

	storedPub, err := r.Store.LoadPublic(desc.Name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(storedPub)) != strings.TrimSpace(desc.PublicKey) {
		return nil, errs.New(errs.KindPublicKeyMismatch,
			"local key store public key for "+desc.Name+" does not match the method's recorded public key")
	}

	return r.Store.LoadPrivate(desc.Name)
}

func unwrapPrivateKey(rec *protector.Record, r Resolver) ([]byte, error) {
	switch rec.Type {
	case protector.KindPassword:
		return protector.UnwrapPassphrase(rec, r.PromptExisting)
	case protector.KindSSHAgent:
		return protector.UnwrapSSHAgent(rec)
	default:
		return nil, errs.New(errs.KindUnsupportedRecipientKind, "unsupported protection kind: "+rec.Type)
	}
}

// EncryptAll seals plaintext once per recipient in recipients, preserving
// order, and returns the resulting artifact.
func EncryptAll(recipients []Recipient, plaintext []byte) (*Artifact, error) {
	art := &Artifact{Entries: make([]ArtifactEntry, 0, len(recipients))}
	for _, desc := range recipients {
		env, err := Encrypt(desc, plaintext)
		if err != nil {
			return nil, err
		}
		art.Entries = append(art.Entries, ArtifactEntry{
			Type:      desc.Kind,
			Name:      desc.Name,
			Encrypted: *env,
		})
	}
	return art, nil
}

// DecryptAny walks the artifact's entries in order, optionally restricted
// to a single recipient name, and returns the plaintext from the first
// entry that decrypts successfully. UserDeclined on one entry is treated
// as a failure of that entry and iteration continues to the next one.
//
// skipped carries the typed cause for every entry tried before the
// winning one (or every entry tried, on outright failure), each still
// wrapped as its own *errs.Error, so a caller in debug mode can report,
// say, exactly one UserDeclined cause for a recipient who was skipped
// even though decryption ultimately succeeded via someone else. If every
// attempted entry fails, the same causes are also chained onto a single
// AllRecipientsFailed error via errs.MultiCause, so errs.Is can still
// find e.g. KindKeyMissing inside it instead of a flattened string.
func DecryptAny(art *Artifact, r Resolver, onlyName string) ([]byte, []error, error) {
	var causes errs.MultiCause
	var summaries []string
	attempted := 0

	for i := range art.Entries {
		entry := &art.Entries[i]
		if onlyName != "" && entry.Name != onlyName {
			continue
		}
		attempted++

		plaintext, err := Decrypt(&entry.Encrypted, r)
		if err == nil {
			return plaintext, causes, nil
		}
		causes = append(causes, err)
		summaries = append(summaries, fmt.Sprintf("%s: %s", entry.Name, err.Error()))
	}

	if attempted == 0 {
		return nil, nil, errs.New(errs.KindKeyMissing, "no matching recipient entry found"+nameSuffix(onlyName))
	}
	return nil, causes, errs.Wrap(errs.KindAllRecipientsFailed,
		fmt.Sprintf("all %d recipient(s) failed to decrypt:\n%s", attempted, strings.Join(summaries, "\n")),
		causes)
}

func nameSuffix(name string) string {
	if name == "" {
		return ""
	}
	return " for " + name
}
