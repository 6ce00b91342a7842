package crypt4gh

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// SegmentSize is the plaintext size of one sealed data segment.
const SegmentSize = 65536

const sealedSegmentSize = chacha20poly1305.NonceSize + SegmentSize + chacha20poly1305.Overhead

var ErrTruncatedBody = errors.New("truncated crypt4gh data segment")

// Encrypt seals src into a Crypt4GH container on dst, readable by every
// reader public key. A fresh session key is drawn per call. Empty input
// yields a header with zero data segments.
func Encrypt(dst io.Writer, src io.Reader, writerSecret [32]byte, readerPubs ...[32]byte) error {
	var sessionKey [32]byte
	if _, err := rand.Read(sessionKey[:]); err != nil {
		return err
	}

	header, err := marshalHeader(sessionKey, writerSecret, readerPubs)
	if err != nil {
		return err
	}
	if _, err := dst.Write(header); err != nil {
		return err
	}

	aead, err := chacha20poly1305.New(sessionKey[:])
	if err != nil {
		return err
	}

	segment := make([]byte, SegmentSize)
	nonce := make([]byte, chacha20poly1305.NonceSize)
	for {
		n, readErr := io.ReadFull(src, segment)
		if n > 0 {
			if _, err := rand.Read(nonce); err != nil {
				return err
			}
			sealed := aead.Seal(nil, nonce, segment[:n], nil)
			if _, err := dst.Write(nonce); err != nil {
				return err
			}
			if _, err := dst.Write(sealed); err != nil {
				return err
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// Decrypt opens a Crypt4GH container from src and writes the plaintext to
// dst. The reader secret must unlock at least one header packet.
func Decrypt(dst io.Writer, src io.Reader, readerSecret [32]byte) error {
	sessionKeys, err := parseHeader(src, readerSecret)
	if err != nil {
		return err
	}

	aeads := make([]cipher.AEAD, 0, len(sessionKeys))
	for _, sk := range sessionKeys {
		aead, err := chacha20poly1305.New(sk[:])
		if err != nil {
			return err
		}
		aeads = append(aeads, aead)
	}

	buf := make([]byte, sealedSegmentSize)
	for {
		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			if n < chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
				return ErrTruncatedBody
			}
			nonce := buf[:chacha20poly1305.NonceSize]
			sealed := buf[chacha20poly1305.NonceSize:n]

			var plain []byte
			var openErr error
			for _, aead := range aeads {
				plain, openErr = aead.Open(nil, nonce, sealed, nil)
				if openErr == nil {
					break
				}
			}
			if openErr != nil {
				return fmt.Errorf("open data segment: %w", openErr)
			}
			if _, err := dst.Write(plain); err != nil {
				return err
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
