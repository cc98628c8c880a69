/*
Copyright © 2025 Logicos Software

Package agent implements a minimal client for the SSH agent wire
protocol: connecting to the agent's Unix-domain socket, listing the
identities it holds, and requesting signatures over caller-supplied
data. Only the two message exchanges ssops needs are implemented.
*/
package agent

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"ssops/internal/errs"
	"ssops/internal/wire"
)

// Message type octets from the SSH agent protocol.
const (
	msgRequestIdentities  = 11
	msgIdentitiesAnswer   = 12
	msgSignRequest        = 13
	msgSignResponse       = 14
	msgFailure            = 5
	flagRSASHA2_256 uint32 = 2
)

// dialTimeout bounds the connection attempt; the exchange itself is
// allowed to block indefinitely per the design's suspension-point model.
const dialTimeout = 5 * time.Second

// Identity is one (public key blob, comment) pair reported by the agent.
type Identity struct {
	Blob    []byte
	Comment string
}

// Client is a connection to a running SSH agent.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// SocketPath returns the agent socket path from the environment, or an
// AgentUnavailable error if the variable is unset.
func SocketPath() (string, error) {
	p := os.Getenv("SSH_AUTH_SOCK")
	if p == "" {
		return "", errs.New(errs.KindAgentUnavailable, "SSH_AUTH_SOCK is not set").
			WithHint("start an ssh-agent and export SSH_AUTH_SOCK, or forward one over SSH")
	}
	return p, nil
}

// Dial connects to the agent socket named by SSH_AUTH_SOCK.
func Dial() (*Client, error) {
	path, err := SocketPath()
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, errs.Wrap(errs.KindAgentUnavailable, "connect to ssh-agent at "+path, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// send frames payload as uint32(len(payload)) || payload and writes it.
func (c *Client) send(payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := c.conn.Write(lenBuf[:]); err != nil {
		return errs.Wrap(errs.KindIoFailure, "write to ssh-agent", err)
	}
	if _, err := c.conn.Write(payload); err != nil {
		return errs.Wrap(errs.KindIoFailure, "write to ssh-agent", err)
	}
	return nil
}

// recv reads a length-prefixed response: a 4-byte length, then exactly
// that many bytes, reassembling partial reads.
func (c *Client) recv() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.r, lenBuf[:]); err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "read ssh-agent response length", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "read ssh-agent response body", err)
	}
	return body, nil
}

// List requests the agent's held identities (message 11 -> 12).
func (c *Client) List() ([]Identity, error) {
	req := wire.NewWriter().Byte(msgRequestIdentities).Bytes()
	if err := c.send(req); err != nil {
		return nil, err
	}
	resp, err := c.recv()
	if err != nil {
		return nil, err
	}
	r := wire.NewReader(resp)
	typ, err := r.Byte()
	if err != nil {
		return nil, errs.Wrap(errs.KindAgentRefused, "malformed list-identities response", err)
	}
	if typ == msgFailure {
		return nil, errs.New(errs.KindAgentRefused, "agent refused list-identities request")
	}
	if typ != msgIdentitiesAnswer {
		return nil, errs.New(errs.KindAgentRefused, fmt.Sprintf("unexpected response type %d to list-identities", typ))
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, errs.Wrap(errs.KindAgentRefused, "malformed identity count", err)
	}
	ids := make([]Identity, 0, count)
	for i := uint32(0); i < count; i++ {
		blob, err := r.String()
		if err != nil {
			return nil, errs.Wrap(errs.KindAgentRefused, "malformed identity blob", err)
		}
		comment, err := r.String()
		if err != nil {
			return nil, errs.Wrap(errs.KindAgentRefused, "malformed identity comment", err)
		}
		ids = append(ids, Identity{Blob: append([]byte(nil), blob...), Comment: string(comment)})
	}
	return ids, nil
}

// Sign asks the agent to sign data with the identity named by keyBlob,
// requesting the deterministic rsa-sha2-256 scheme. It returns the
// algorithm name and raw signature bytes reported by the agent.
func (c *Client) Sign(keyBlob, data []byte) (algorithm string, signature []byte, err error) {
	body := wire.NewWriter().
		Byte(msgSignRequest).
		String(keyBlob).
		String(data).
		Uint32(flagRSASHA2_256).
		Bytes()
	if err := c.send(body); err != nil {
		return "", nil, err
	}
	resp, err := c.recv()
	if err != nil {
		return "", nil, err
	}
	r := wire.NewReader(resp)
	typ, err := r.Byte()
	if err != nil {
		return "", nil, errs.Wrap(errs.KindAgentRefused, "malformed sign response", err)
	}
	if typ == msgFailure {
		return "", nil, errs.New(errs.KindAgentRefused, "agent refused sign request").
			WithHint("the key may not be loaded, or the agent requires user confirmation")
	}
	if typ != msgSignResponse {
		return "", nil, errs.New(errs.KindAgentRefused, fmt.Sprintf("unexpected response type %d to sign request", typ))
	}
	sigBlob, err := r.String()
	if err != nil {
		return "", nil, errs.Wrap(errs.KindAgentRefused, "malformed signature blob", err)
	}
	sr := wire.NewReader(sigBlob)
	algBytes, err := sr.String()
	if err != nil {
		return "", nil, errs.Wrap(errs.KindAgentRefused, "malformed signature algorithm", err)
	}
	sigBytes, err := sr.String()
	if err != nil {
		return "", nil, errs.Wrap(errs.KindAgentRefused, "malformed signature bytes", err)
	}
	return string(algBytes), append([]byte(nil), sigBytes...), nil
}

// HasKey reports whether the agent currently holds an identity matching
// keyBlob, without requesting a signature.
func HasKey(ids []Identity, keyBlob []byte) bool {
	for _, id := range ids {
		if len(id.Blob) == len(keyBlob) {
			match := true
			for i := range id.Blob {
				if id.Blob[i] != keyBlob[i] {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}
