package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

var errSignatureChecked = errors.New("signature check finished")

// SignatureVerifier checks an OpenPGP detached signature over the bytes seen.
// Bytes are streamed to the signature check as they arrive, so nothing is
// buffered beyond the pipe.
type SignatureVerifier struct {
	keyring   openpgp.KeyRing
	signature []byte // binary signature packet

	pw   *io.PipeWriter
	done chan error
}

// NewSignatureVerifier parses an armored or binary detached signature.
// A malformed signature is a KindVerifier error.
func NewSignatureVerifier(keyring openpgp.KeyRing, signature []byte) (*SignatureVerifier, error) {
	if keyring == nil {
		return nil, &Error{Kind: KindVerifier, Desc: "signature verifier: no keyring"}
	}

	raw, err := dearmorSignature(signature)
	if err != nil {
		return nil, &Error{Kind: KindVerifier, Desc: "parse signature", Err: err}
	}

	p, err := packet.Read(bytes.NewReader(raw))
	if err != nil {
		return nil, &Error{Kind: KindVerifier, Desc: "parse signature", Err: err}
	}
	if _, ok := p.(*packet.Signature); !ok {
		return nil, &Error{Kind: KindVerifier, Desc: fmt.Sprintf("parse signature: unexpected packet %T", p)}
	}

	return &SignatureVerifier{keyring: keyring, signature: raw}, nil
}

func dearmorSignature(sig []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(sig)
	if !bytes.HasPrefix(trimmed, []byte("-----BEGIN")) {
		return sig, nil
	}

	block, err := armor.Decode(bytes.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("decode armor: %w", err)
	}
	if block.Type != openpgp.SignatureType {
		return nil, fmt.Errorf("unexpected armor type %q", block.Type)
	}
	return io.ReadAll(block.Body)
}

func (s *SignatureVerifier) start() {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := openpgp.CheckDetachedSignature(s.keyring, pr, bytes.NewReader(s.signature), nil)
		// Unblock any writer if the check returned before reading everything.
		pr.CloseWithError(errSignatureChecked)
		done <- err
	}()
	s.pw, s.done = pw, done
}

func (s *SignatureVerifier) Update(p []byte) {
	if s.pw == nil {
		s.start()
	}
	// A write error means the check already finished; Verify reports it.
	_, _ = s.pw.Write(p)
}

// Verify finishes the signature check and resets the verifier.
func (s *SignatureVerifier) Verify() error {
	if s.pw == nil {
		s.start()
	}
	s.pw.Close()
	err := <-s.done
	s.pw, s.done = nil, nil

	if err != nil {
		return &Error{Kind: KindVerify, Desc: "signature mismatch", Err: err}
	}
	return nil
}

// maxKeyringBytes bounds a keyring fetched over the network.
const maxKeyringBytes = 1 << 20

// LoadKeyring reads an armored or binary OpenPGP keyring from a file.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ParseKeyring(data)
}

// FetchKeyring downloads an armored or binary OpenPGP keyring.
func FetchKeyring(ctx context.Context, d *Downloader, url string) (openpgp.EntityList, error) {
	data, err := d.Fetch(ctx, url, maxKeyringBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch keyring: %w", err)
	}
	return ParseKeyring(data)
}

// ParseKeyring decodes an armored keyring, falling back to the binary form.
func ParseKeyring(data []byte) (openpgp.EntityList, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err == nil {
		return keyring, nil
	}
	keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}
	return keyring, nil
}
