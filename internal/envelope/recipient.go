/*
Copyright © 2025 Logicos Software

Package envelope implements the per-recipient public-key encryption
envelope and the multi-recipient array that combines per-recipient
envelopes into one encrypted artifact.
*/
package envelope

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"golang.org/x/crypto/ssh"

	"ssops/internal/errs"
	"ssops/internal/protector"
)

// KindRSA is the only recipient kind defined in v1.
const KindRSA = "rsa"

// Recipient is the descriptor that lives inside a method file and inside
// every per-recipient envelope's Configuration field.
type Recipient struct {
	Kind                string            `yaml:"kind"`
	Name                string            `yaml:"name"`
	PublicKey           string            `yaml:"public_key"`
	EncryptedPrivateKey *protector.Record `yaml:"encrypted_private_key,omitempty"`
}

// Same reports whether two recipients share the (kind, name) identity
// used to enforce method-file uniqueness.
func (r Recipient) Same(other Recipient) bool {
	return r.Kind == other.Kind && r.Name == other.Name
}

// EncodePublicKeyPEM serializes an RSA public key as PEM-encoded
// SubjectPublicKeyInfo, the format used for both stored public keys and
// the public_key field of a recipient descriptor.
func EncodePublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", errs.Wrap(errs.KindConfigInvalid, "marshal public key", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// DecodePublicKeyPEM parses a PEM-encoded SubjectPublicKeyInfo into an
// RSA public key.
func DecodePublicKeyPEM(data string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, errs.New(errs.KindConfigInvalid, "public key is not valid PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "parse public key", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errs.New(errs.KindUnsupportedRecipientKind, "public key is not RSA")
	}
	return rsaPub, nil
}

// EncodePrivateKeyBytes returns the plaintext bytes protected by
// internal/protector: the PKCS#1 DER encoding of an RSA private key.
// This plaintext never touches disk unwrapped.
func EncodePrivateKeyBytes(priv *rsa.PrivateKey) []byte {
	return x509.MarshalPKCS1PrivateKey(priv)
}

// EncodePublicKeyFromCrypto extracts the RSA public key backing an
// ssh.CryptoPublicKey (as parsed from an authorized-keys line) and
// serializes it the same way as any other recipient's public key.
func EncodePublicKeyFromCrypto(pub ssh.CryptoPublicKey) (string, error) {
	rsaPub, ok := pub.CryptoPublicKey().(*rsa.PublicKey)
	if !ok {
		return "", errs.New(errs.KindUnsupportedRecipientKind, "only RSA ssh keys are supported (deterministic signatures required)")
	}
	return EncodePublicKeyPEM(rsaPub)
}

// DecodePrivateKeyBytes parses the plaintext produced by
// EncodePrivateKeyBytes back into an RSA private key.
func DecodePrivateKeyBytes(data []byte) (*rsa.PrivateKey, error) {
	priv, err := x509.ParsePKCS1PrivateKey(data)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "parse private key", err)
	}
	return priv, nil
}
