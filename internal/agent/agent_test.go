package agent

import (
	"bytes"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"testing"

	"ssops/internal/errs"
	"ssops/internal/wire"
)

// fakeAgent runs a minimal SSH-agent protocol server over a Unix socket
// for exercising Client against realistic framing without a real agent.
type fakeAgent struct {
	listener net.Listener
	identity Identity
	sigAlg   string
	sig      []byte
	refuse   bool
}

func startFakeAgent(t *testing.T, ident Identity, sigAlg string, sig []byte, refuse bool) string {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "agent.sock")
	l, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fa := &fakeAgent{listener: l, identity: ident, sigAlg: sigAlg, sig: sig, refuse: refuse}
	go fa.serve(t)
	t.Cleanup(func() { l.Close() })
	return sockPath
}

func (fa *fakeAgent) serve(t *testing.T) {
	conn, err := fa.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var lenBuf [4]byte
		if _, err := readFull(conn, lenBuf[:]); err != nil {
			return
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, n)
		if _, err := readFull(conn, body); err != nil {
			return
		}

		r := wire.NewReader(body)
		typ, _ := r.Byte()

		var resp *wire.Writer
		switch typ {
		case msgRequestIdentities:
			resp = wire.NewWriter().Byte(msgIdentitiesAnswer).Uint32(1).
				String(fa.identity.Blob).String([]byte(fa.identity.Comment))
		case msgSignRequest:
			if fa.refuse {
				resp = wire.NewWriter().Byte(msgFailure)
				break
			}
			sigBlob := wire.NewWriter().String([]byte(fa.sigAlg)).String(fa.sig).Bytes()
			resp = wire.NewWriter().Byte(msgSignResponse).String(sigBlob)
		default:
			resp = wire.NewWriter().Byte(msgFailure)
		}

		out := resp.Bytes()
		var outLen [4]byte
		binary.BigEndian.PutUint32(outLen[:], uint32(len(out)))
		if _, err := conn.Write(outLen[:]); err != nil {
			return
		}
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func TestClientListAndSign(t *testing.T) {
	ident := Identity{Blob: []byte("fake-key-blob"), Comment: "test@example"}
	sig := []byte("deterministic-signature")

	t.Run("list identities", func(t *testing.T) {
		sockPath := startFakeAgent(t, ident, "rsa-sha2-256", sig, false)
		t.Setenv("SSH_AUTH_SOCK", sockPath)

		c, err := Dial()
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		defer c.Close()

		ids, err := c.List()
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(ids) != 1 || !bytes.Equal(ids[0].Blob, ident.Blob) || ids[0].Comment != ident.Comment {
			t.Fatalf("List() = %+v, want one identity matching %+v", ids, ident)
		}
	})

	t.Run("sign succeeds and is deterministic across calls", func(t *testing.T) {
		sockPath := startFakeAgent(t, ident, "rsa-sha2-256", sig, false)
		t.Setenv("SSH_AUTH_SOCK", sockPath)

		c, err := Dial()
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		defer c.Close()

		alg, got, err := c.Sign(ident.Blob, []byte("challenge"))
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if alg != "rsa-sha2-256" || !bytes.Equal(got, sig) {
			t.Fatalf("Sign() = %q, %v, want rsa-sha2-256, %v", alg, got, sig)
		}

		_, again, err := c.Sign(ident.Blob, []byte("challenge"))
		if err != nil || !bytes.Equal(again, got) {
			t.Fatalf("second Sign() = %v, %v, want %v, nil", again, err, got)
		}
	})

	t.Run("agent refusal maps to AgentRefused", func(t *testing.T) {
		sockPath := startFakeAgent(t, ident, "", nil, true)
		t.Setenv("SSH_AUTH_SOCK", sockPath)

		c, err := Dial()
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		defer c.Close()

		_, _, err = c.Sign(ident.Blob, []byte("challenge"))
		if !errs.Is(err, errs.KindAgentRefused) {
			t.Fatalf("Sign() err = %v, want KindAgentRefused", err)
		}
	})
}

func TestSocketPathUnset(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	os.Unsetenv("SSH_AUTH_SOCK")
	if _, err := SocketPath(); !errs.Is(err, errs.KindAgentUnavailable) {
		t.Fatalf("SocketPath() err = %v, want KindAgentUnavailable", err)
	}
}

func TestHasKey(t *testing.T) {
	ids := []Identity{{Blob: []byte("aaa")}, {Blob: []byte("bbb")}}
	if !HasKey(ids, []byte("bbb")) {
		t.Error("HasKey should find an exact match")
	}
	if HasKey(ids, []byte("ccc")) {
		t.Error("HasKey should not match an absent blob")
	}
}
