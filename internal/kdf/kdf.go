/*
Copyright © 2025 Logicos Software

Package kdf implements the scrypt-derived key wrapping AES-GCM
payloads: the KDF/AEAD primitive shared by both private-key protection
kinds (passphrase and SSH-agent-signature-as-password).
*/
package kdf

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/scrypt"

	"ssops/internal/errs"
)

const (
	// TypeScryptAESGCM is the only supported wrap record type in v1.
	TypeScryptAESGCM = "scrypt-aes-gcm"

	scryptN      = 1 << 14
	scryptR      = 8
	scryptP      = 1
	keyLen       = 32
	saltLen      = 16
	nonceLen     = 12
)

// ScryptParams records the scrypt cost parameters used to derive a wrap
// key, persisted alongside the salt so future changes can bump N/r/p
// without breaking old records.
type ScryptParams struct {
	Salt   string `yaml:"salt"`
	Length int    `yaml:"length"`
	N      int    `yaml:"n"`
	R      int    `yaml:"r"`
	P      int    `yaml:"p"`
}

// Record is the persisted shape of a passphrase-style wrap: a type tag,
// the scrypt parameters, and the hex-encoded nonce||ciphertext||tag.
type Record struct {
	Type       string       `yaml:"type"`
	Scrypt     ScryptParams `yaml:"scrypt"`
	Ciphertext string       `yaml:"ciphertext"`
}

// Wrap derives a key from password via scrypt and seals plaintext with
// AES-GCM, using a fresh random salt and nonce for every call.
func Wrap(password, plaintext []byte) (*Record, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "generate scrypt salt", err)
	}

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "generate nonce", err)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	ct := append(append([]byte(nil), nonce...), sealed...)

	return &Record{
		Type: TypeScryptAESGCM,
		Scrypt: ScryptParams{
			Salt:   hex.EncodeToString(salt),
			Length: keyLen,
			N:      scryptN,
			R:      scryptR,
			P:      scryptP,
		},
		Ciphertext: hex.EncodeToString(ct),
	}, nil
}

// Unwrap re-derives the key from password and the record's own scrypt
// parameters, then opens the AES-GCM ciphertext.
func Unwrap(password []byte, rec *Record) ([]byte, error) {
	if rec.Type != TypeScryptAESGCM {
		return nil, errs.New(errs.KindUnsupportedKdf, "unsupported kdf type: "+rec.Type)
	}

	salt, err := hex.DecodeString(rec.Scrypt.Salt)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "decode scrypt salt", err)
	}
	ct, err := hex.DecodeString(rec.Ciphertext)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "decode ciphertext", err)
	}
	if len(ct) < nonceLen {
		return nil, errs.New(errs.KindConfigInvalid, "ciphertext shorter than nonce")
	}
	nonce, sealed := ct[:nonceLen], ct[nonceLen:]

	key, err := deriveKeyWithParams(password, salt, rec.Scrypt)
	if err != nil {
		return nil, err
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindBadPassphrase, "authentication failed while unwrapping key", err)
	}
	return plaintext, nil
}

func deriveKey(password, salt []byte) ([]byte, error) {
	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "derive scrypt key", err)
	}
	return key, nil
}

func deriveKeyWithParams(password, salt []byte, p ScryptParams) ([]byte, error) {
	key, err := scrypt.Key(password, salt, p.N, p.R, p.P, p.Length)
	if err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "derive scrypt key", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "construct AES cipher", err)
	}
	return cipher.NewGCM(block)
}
