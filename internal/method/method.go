/*
Copyright © 2025 Logicos Software

Package method implements the method file: the ordered, shared list of
recipient descriptors that an encrypt operation targets. Method files
are append-only from the user's perspective and are expected to travel
via version control alongside the encrypted artifacts they produce.
*/
package method

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"ssops/internal/atomicfile"
	"ssops/internal/envelope"
	"ssops/internal/errs"
)

// File is the on-disk shape: an ordered list of recipient descriptors.
type File struct {
	Methods []envelope.Recipient `yaml:"methods"`
}

// Create writes an empty method file at path. It refuses to overwrite an
// existing file unless force is set.
func Create(path string, force bool) error {
	data, err := yaml.Marshal(&File{Methods: []envelope.Recipient{}})
	if err != nil {
		return errs.Wrap(errs.KindConfigInvalid, "encode empty method file", err)
	}
	return atomicfile.WriteFile(path, data, force)
}

// Load reads and decodes the method file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.KindConfigInvalid, "method file not found: "+path).
				WithHint("run 'method " + path + " create' first")
		}
		return nil, errs.Wrap(errs.KindIoFailure, "read method file "+path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errs.Wrap(errs.KindConfigInvalid, "decode method file "+path, err)
	}
	return &f, nil
}

// Save rewrites path with f's current contents, atomically.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return errs.Wrap(errs.KindConfigInvalid, "encode method file", err)
	}
	return atomicfile.WriteFile(path, data, true)
}

// AddKey appends a recipient descriptor, refusing (kind, name)
// duplicates. If embed is true, the descriptor's EncryptedPrivateKey is
// kept as the caller set it, so the resulting artifact is decryptable
// without a key store; if embed is false, it is cleared before appending.
func (f *File) AddKey(recipient envelope.Recipient, embed bool) error {
	for _, existing := range f.Methods {
		if existing.Same(recipient) {
			return errs.New(errs.KindDuplicateRecipient,
				fmt.Sprintf("recipient %s/%s already present in method file", recipient.Kind, recipient.Name))
		}
	}
	if !embed {
		recipient.EncryptedPrivateKey = nil
	}
	f.Methods = append(f.Methods, recipient)
	return nil
}

// RemoveKey deletes the (kind, name) entry from the method file.
//
// (AMBIENT) This operation is not part of the append-only surface implied
// by the method file's normal lifecycle; it exists for local recipient-set
// corrections the file's owner makes deliberately, and callers are
// expected to gate it behind an explicit confirmation flag.
func (f *File) RemoveKey(kind, name string) error {
	for i, existing := range f.Methods {
		if existing.Kind == kind && existing.Name == name {
			f.Methods = append(f.Methods[:i], f.Methods[i+1:]...)
			return nil
		}
	}
	return errs.New(errs.KindKeyMissing, fmt.Sprintf("no recipient %s/%s in method file", kind, name))
}

// Show renders the three-column (name, kind, embedded?) summary table.
func (f *File) Show(w *tabwriter.Writer) {
	fmt.Fprintln(w, "NAME\tKIND\tEMBEDDED")
	for _, r := range f.Methods {
		embedded := "no"
		if r.EncryptedPrivateKey != nil {
			embedded = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Kind, embedded)
	}
}

// Filter returns the subset of Methods matching name, or the full list if
// name is empty.
func (f *File) Filter(name string) []envelope.Recipient {
	if name == "" {
		return f.Methods
	}
	var out []envelope.Recipient
	for _, r := range f.Methods {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// RecipientNameFromAuthorizedKeysPath derives the recipient name from an
// authorized-keys file path by stripping a trailing ".pub" suffix, if
// present, and taking the remaining basename.
func RecipientNameFromAuthorizedKeysPath(path string) string {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}
	return strings.TrimSuffix(base, ".pub")
}
