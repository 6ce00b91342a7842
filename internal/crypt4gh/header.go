package crypt4gh

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

const (
	magic   = "crypt4gh"
	version = 1

	// Header packet encryption methods.
	methodX25519ChaCha20 = 0

	// Header packet types.
	packetDataEncryption = 0
	packetEditList       = 1

	// Data encryption methods inside a data_encryption_parameters packet.
	dataMethodChaCha20 = 0
)

var (
	ErrBadMagic            = errors.New("not a crypt4gh stream")
	ErrBadVersion          = errors.New("unsupported crypt4gh version")
	ErrNoMatchingKey       = errors.New("no header packet decryptable with the given key")
	ErrTruncatedHeader     = errors.New("truncated crypt4gh header")
	ErrEditListUnsupported = errors.New("crypt4gh edit lists are not supported")
)

// crypto_kx session key derivation (libsodium): BLAKE2b-512 over the raw
// ECDH point followed by the client and server public keys. The client's tx
// half is the server's rx half, so writer and reader both use sum[32:].
func sessionSharedKey(point, clientPub, serverPub []byte) ([]byte, []byte, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return nil, nil, err
	}
	h.Write(point)
	h.Write(clientPub)
	h.Write(serverPub)
	sum := h.Sum(nil)
	return sum[:32], sum[32:], nil // rx, tx
}

// writerSharedKey derives the key the writer uses to seal a header packet
// for one reader.
func writerSharedKey(writerSecret [32]byte, readerPub [32]byte) ([]byte, error) {
	writerPub, err := PublicKey(writerSecret)
	if err != nil {
		return nil, err
	}
	point, err := curve25519.X25519(writerSecret[:], readerPub[:])
	if err != nil {
		return nil, err
	}
	_, tx, err := sessionSharedKey(point, writerPub[:], readerPub[:])
	return tx, err
}

// readerSharedKey derives the key the reader uses to open a header packet.
func readerSharedKey(readerSecret [32]byte, writerPub [32]byte) ([]byte, error) {
	readerPub, err := PublicKey(readerSecret)
	if err != nil {
		return nil, err
	}
	point, err := curve25519.X25519(readerSecret[:], writerPub[:])
	if err != nil {
		return nil, err
	}
	_, tx, err := sessionSharedKey(point, writerPub[:], readerPub[:])
	return tx, err
}

// marshalHeader builds the full header: magic, version, packet count, and
// one sealed data_encryption_parameters packet per reader.
func marshalHeader(sessionKey [32]byte, writerSecret [32]byte, readerPubs [][32]byte) ([]byte, error) {
	if len(readerPubs) == 0 {
		return nil, errors.New("at least one reader public key is required")
	}

	writerPub, err := PublicKey(writerSecret)
	if err != nil {
		return nil, err
	}

	// packet plaintext: type, data method, session key
	plain := make([]byte, 0, 4+4+32)
	plain = binary.LittleEndian.AppendUint32(plain, packetDataEncryption)
	plain = binary.LittleEndian.AppendUint32(plain, dataMethodChaCha20)
	plain = append(plain, sessionKey[:]...)

	var out bytes.Buffer
	out.WriteString(magic)
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], version)
	out.Write(word[:])
	binary.LittleEndian.PutUint32(word[:], uint32(len(readerPubs)))
	out.Write(word[:])

	for _, readerPub := range readerPubs {
		key, err := writerSharedKey(writerSecret, readerPub)
		if err != nil {
			return nil, err
		}
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, err
		}
		nonce := make([]byte, chacha20poly1305.NonceSize)
		if _, err := rand.Read(nonce); err != nil {
			return nil, err
		}
		sealed := aead.Seal(nil, nonce, plain, nil)

		// packet length includes its own 4 bytes
		packetLen := 4 + 4 + 32 + len(nonce) + len(sealed)
		binary.LittleEndian.PutUint32(word[:], uint32(packetLen))
		out.Write(word[:])
		binary.LittleEndian.PutUint32(word[:], methodX25519ChaCha20)
		out.Write(word[:])
		out.Write(writerPub[:])
		out.Write(nonce)
		out.Write(sealed)
	}

	return out.Bytes(), nil
}

// parseHeader reads the header from r and returns every session key the
// given reader secret can unlock.
func parseHeader(r io.Reader, readerSecret [32]byte) ([][32]byte, error) {
	head := make([]byte, len(magic)+4+4)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}
	if string(head[:len(magic)]) != magic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint32(head[len(magic):]); v != version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	packetCount := binary.LittleEndian.Uint32(head[len(magic)+4:])

	var sessionKeys [][32]byte
	for i := uint32(0); i < packetCount; i++ {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: packet %d: %v", ErrTruncatedHeader, i, err)
		}
		packetLen := binary.LittleEndian.Uint32(lenBuf[:])
		if packetLen < 4+4+32+chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
			return nil, fmt.Errorf("%w: packet %d too short", ErrTruncatedHeader, i)
		}
		body := make([]byte, packetLen-4)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("%w: packet %d: %v", ErrTruncatedHeader, i, err)
		}

		method := binary.LittleEndian.Uint32(body)
		if method != methodX25519ChaCha20 {
			continue // packet sealed with a method we do not speak
		}

		var writerPub [32]byte
		copy(writerPub[:], body[4:36])
		nonce := body[36 : 36+chacha20poly1305.NonceSize]
		sealed := body[36+chacha20poly1305.NonceSize:]

		key, err := readerSharedKey(readerSecret, writerPub)
		if err != nil {
			return nil, err
		}
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, err
		}
		plain, err := aead.Open(nil, nonce, sealed, nil)
		if err != nil {
			continue // not for this reader
		}

		if len(plain) < 4 {
			return nil, fmt.Errorf("%w: packet %d payload too short", ErrTruncatedHeader, i)
		}
		switch binary.LittleEndian.Uint32(plain) {
		case packetDataEncryption:
			if len(plain) != 4+4+32 {
				return nil, fmt.Errorf("%w: packet %d bad parameter length", ErrTruncatedHeader, i)
			}
			if binary.LittleEndian.Uint32(plain[4:]) != dataMethodChaCha20 {
				continue
			}
			var sk [32]byte
			copy(sk[:], plain[8:])
			sessionKeys = append(sessionKeys, sk)
		case packetEditList:
			return nil, ErrEditListUnsupported
		default:
			// Unknown readable packet types are ignored for forward compatibility.
		}
	}

	if len(sessionKeys) == 0 {
		return nil, ErrNoMatchingKey
	}
	return sessionKeys, nil
}
