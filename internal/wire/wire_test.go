package wire

import (
	"bytes"
	"testing"
)

// TestWriterReaderRoundTrip verifies every field type round-trips through
// a Writer/Reader pair.
func TestWriterReaderRoundTrip(t *testing.T) {
	t.Run("byte, uint32, string", func(t *testing.T) {
		w := NewWriter()
		w.Byte(11).Uint32(42).String([]byte("hello")).Raw([]byte{1, 2, 3})

		r := NewReader(w.Bytes())
		b, err := r.Byte()
		if err != nil || b != 11 {
			t.Fatalf("Byte() = %d, %v, want 11, nil", b, err)
		}
		n, err := r.Uint32()
		if err != nil || n != 42 {
			t.Fatalf("Uint32() = %d, %v, want 42, nil", n, err)
		}
		s, err := r.String()
		if err != nil || string(s) != "hello" {
			t.Fatalf("String() = %q, %v, want hello, nil", s, err)
		}
		rest, err := r.Raw(3)
		if err != nil || !bytes.Equal(rest, []byte{1, 2, 3}) {
			t.Fatalf("Raw(3) = %v, %v, want [1 2 3], nil", rest, err)
		}
		if !r.Done() {
			t.Error("expected reader to be exhausted")
		}
	})

	t.Run("empty string field", func(t *testing.T) {
		w := NewWriter()
		w.String(nil)
		r := NewReader(w.Bytes())
		s, err := r.String()
		if err != nil || len(s) != 0 {
			t.Fatalf("String() = %v, %v, want empty, nil", s, err)
		}
	})
}

// TestReaderUnderrun verifies every read fails rather than panicking when
// the buffer is short.
func TestReaderUnderrun(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		read func(r *Reader) error
	}{
		{"byte on empty", nil, func(r *Reader) error { _, err := r.Byte(); return err }},
		{"uint32 on short", []byte{0, 1}, func(r *Reader) error { _, err := r.Uint32(); return err }},
		{"string with truncated length", []byte{0, 0, 0}, func(r *Reader) error { _, err := r.String(); return err }},
		{"string with truncated payload", []byte{0, 0, 0, 5, 'h', 'i'}, func(r *Reader) error { _, err := r.String(); return err }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewReader(c.buf)
			if err := c.read(r); err == nil {
				t.Error("expected an error on under-run, got nil")
			}
		})
	}
}
