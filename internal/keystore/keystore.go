/*
Copyright © 2025 Logicos Software

Package keystore persists private-key records and public keys under
the fixed directory <home>/.ssops: a <name> file (the protected
private-key record) and a <name>.pub file (the public key) per
recipient, written atomically and durably.
*/
package keystore

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ssops/internal/atomicfile"
	"ssops/internal/errs"
	"ssops/internal/protector"
)

// DirName is the fixed key-store directory name under the user's home.
const DirName = ".ssops"

// Store is a handle to the on-disk key store rooted at Dir.
type Store struct {
	Dir string
}

// Open resolves the key store directory relative to the user's home.
func Open() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "resolve home directory", err)
	}
	return &Store{Dir: filepath.Join(home, DirName)}, nil
}

func (s *Store) privatePath(name string) string { return filepath.Join(s.Dir, name) }
func (s *Store) publicPath(name string) string  { return filepath.Join(s.Dir, name+".pub") }

// Exists reports whether both the private and public files for name are present.
func (s *Store) Exists(name string) bool {
	_, errPriv := os.Stat(s.privatePath(name))
	_, errPub := os.Stat(s.publicPath(name))
	return errPriv == nil && errPub == nil
}

// Save writes both halves of a key record. It refuses to overwrite an
// existing entry unless force is true (used by key protect rewrapping).
func (s *Store) Save(name string, rec *protector.Record, publicKeyPEM []byte, force bool) error {
	if s.Exists(name) && !force {
		return errs.New(errs.KindKeyExists, "key already exists: "+name).
			WithHint("use 'key protect' to rewrap an existing key")
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return errs.Wrap(errs.KindConfigInvalid, "encode private key record", err)
	}
	if err := atomicfile.WriteFile(s.privatePath(name), data, true); err != nil {
		return err
	}
	return atomicfile.WriteFile(s.publicPath(name), publicKeyPEM, true)
}

// LoadPrivate reads and decodes the protected private-key record for name.
func (s *Store) LoadPrivate(name string) (*protector.Record, error) {
	data, err := os.ReadFile(s.privatePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.KindKeyMissing, "no key named "+name+" in the local key store")
		}
		return nil, errs.Wrap(errs.KindIoFailure, "read private key "+name, err)
	}
	var rec protector.Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "decode private key record "+name, err)
	}
	return &rec, nil
}

// LoadPublic reads the PEM-encoded public key for name.
func (s *Store) LoadPublic(name string) ([]byte, error) {
	data, err := os.ReadFile(s.publicPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.KindKeyMissing, "no public key named "+name+" in the local key store")
		}
		return nil, errs.Wrap(errs.KindIoFailure, "read public key "+name, err)
	}
	return data, nil
}

// List returns the names that have both a private and a public file,
// sorted for stable output.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.KindKeyStoreMissing, "key store not found at "+s.Dir)
		}
		return nil, errs.Wrap(errs.KindIoFailure, "list key store "+s.Dir, err)
	}

	have := map[string]bool{}
	names := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, ".pub") {
			have[strings.TrimSuffix(n, ".pub")] = true
		} else {
			names[n] = true
		}
	}

	var out []string
	for n := range names {
		if have[n] {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}
