package crypt4gh

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/scrypt"
)

const (
	keyMagic = "c4gh-v1"

	publicKeyBegin  = "-----BEGIN CRYPT4GH PUBLIC KEY-----"
	publicKeyEnd    = "-----END CRYPT4GH PUBLIC KEY-----"
	privateKeyBegin = "-----BEGIN CRYPT4GH PRIVATE KEY-----"
	privateKeyEnd   = "-----END CRYPT4GH PRIVATE KEY-----"

	kdfNone   = "none"
	kdfScrypt = "scrypt"

	cipherNone     = "none"
	cipherChaCha20 = "chacha20_poly1305"

	scryptSaltSize = 16
)

var (
	ErrBadKeyFormat   = errors.New("malformed key file")
	ErrUnsupportedKDF = errors.New("unsupported key derivation function")
	ErrKeyDecrypt     = errors.New("cannot decrypt private key (wrong passphrase?)")
)

// KeyPair is an X25519 keypair in Crypt4GH roles.
type KeyPair struct {
	Public [32]byte
	Secret [32]byte
}

// GenerateKeyPair creates a fresh X25519 keypair.
func GenerateKeyPair() (KeyPair, error) {
	var kp KeyPair
	if _, err := rand.Read(kp.Secret[:]); err != nil {
		return KeyPair{}, err
	}
	pub, err := curve25519.X25519(kp.Secret[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, err
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// PublicKey derives the public key for a secret key.
func PublicKey(secret [32]byte) ([32]byte, error) {
	var out [32]byte
	pub, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return out, err
	}
	copy(out[:], pub)
	return out, nil
}

// EncodePublicKey renders an armored Crypt4GH public key block.
func EncodePublicKey(pub [32]byte) []byte {
	var b bytes.Buffer
	b.WriteString(publicKeyBegin + "\n")
	b.WriteString(base64.StdEncoding.EncodeToString(pub[:]) + "\n")
	b.WriteString(publicKeyEnd + "\n")
	return b.Bytes()
}

// ParsePublicKey reads an armored Crypt4GH public key block.
func ParsePublicKey(data []byte) ([32]byte, error) {
	var pub [32]byte
	raw, err := unarmor(data, publicKeyBegin, publicKeyEnd)
	if err != nil {
		return pub, err
	}
	if len(raw) != 32 {
		return pub, fmt.Errorf("%w: public key must be 32 bytes, got %d", ErrBadKeyFormat, len(raw))
	}
	copy(pub[:], raw)
	return pub, nil
}

// EncodePrivateKey renders an armored c4gh-v1 private key container.
// With a non-empty passphrase the key is sealed with scrypt +
// ChaCha20-Poly1305; otherwise it is stored in the clear (kdf "none").
func EncodePrivateKey(secret [32]byte, passphrase []byte) ([]byte, error) {
	var payload bytes.Buffer
	payload.WriteString(keyMagic)

	if len(passphrase) == 0 {
		writeShortString(&payload, []byte(kdfNone))
		writeShortString(&payload, []byte(cipherNone))
		writeShortString(&payload, secret[:])
		return armor(payload.Bytes(), privateKeyBegin, privateKeyEnd), nil
	}

	salt := make([]byte, scryptSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := deriveScrypt(passphrase, salt)
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
	sealed := aead.Seal(nil, nonce, secret[:], nil)

	writeShortString(&payload, []byte(kdfScrypt))
	// Rounds are stored for format compatibility; scrypt ignores them.
	kdfOpts := make([]byte, 4, 4+len(salt))
	kdfOpts = append(kdfOpts, salt...)
	writeShortString(&payload, kdfOpts)
	writeShortString(&payload, []byte(cipherChaCha20))
	writeShortString(&payload, append(nonce, sealed...))

	return armor(payload.Bytes(), privateKeyBegin, privateKeyEnd), nil
}

// ParsePrivateKey reads an armored c4gh-v1 private key container.
// The passphrase is only consulted for encrypted keys.
func ParsePrivateKey(data, passphrase []byte) ([32]byte, error) {
	var secret [32]byte

	raw, err := unarmor(data, privateKeyBegin, privateKeyEnd)
	if err != nil {
		return secret, err
	}
	if !bytes.HasPrefix(raw, []byte(keyMagic)) {
		return secret, fmt.Errorf("%w: missing %s magic", ErrBadKeyFormat, keyMagic)
	}
	rest := raw[len(keyMagic):]

	kdfName, rest, err := readShortString(rest)
	if err != nil {
		return secret, err
	}

	var salt []byte
	switch string(kdfName) {
	case kdfNone:
	case kdfScrypt:
		var opts []byte
		opts, rest, err = readShortString(rest)
		if err != nil {
			return secret, err
		}
		if len(opts) < 4 {
			return secret, fmt.Errorf("%w: short kdf options", ErrBadKeyFormat)
		}
		salt = opts[4:]
	default:
		return secret, fmt.Errorf("%w: %q", ErrUnsupportedKDF, string(kdfName))
	}

	cipherName, rest, err := readShortString(rest)
	if err != nil {
		return secret, err
	}
	blob, _, err := readShortString(rest)
	if err != nil {
		return secret, err
	}

	switch string(cipherName) {
	case cipherNone:
		if string(kdfName) != kdfNone {
			return secret, fmt.Errorf("%w: kdf %q with cipher none", ErrBadKeyFormat, string(kdfName))
		}
		if len(blob) != 32 {
			return secret, fmt.Errorf("%w: private key must be 32 bytes, got %d", ErrBadKeyFormat, len(blob))
		}
		copy(secret[:], blob)
		return secret, nil

	case cipherChaCha20:
		if len(passphrase) == 0 {
			return secret, fmt.Errorf("%w: passphrase required", ErrKeyDecrypt)
		}
		if len(blob) < chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
			return secret, fmt.Errorf("%w: short encrypted key", ErrBadKeyFormat)
		}
		key, err := deriveScrypt(passphrase, salt)
		if err != nil {
			return secret, err
		}
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return secret, err
		}
		nonce := blob[:chacha20poly1305.NonceSize]
		plain, err := aead.Open(nil, nonce, blob[chacha20poly1305.NonceSize:], nil)
		if err != nil {
			return secret, ErrKeyDecrypt
		}
		if len(plain) != 32 {
			return secret, fmt.Errorf("%w: private key must be 32 bytes, got %d", ErrBadKeyFormat, len(plain))
		}
		copy(secret[:], plain)
		return secret, nil

	default:
		return secret, fmt.Errorf("%w: unsupported cipher %q", ErrBadKeyFormat, string(cipherName))
	}
}

func deriveScrypt(passphrase, salt []byte) ([]byte, error) {
	// Parameters fixed by the c4gh-v1 format.
	return scrypt.Key(passphrase, salt, 1<<14, 8, 1, chacha20poly1305.KeySize)
}

// Short strings in the c4gh-v1 container carry a 2-byte big-endian length.
func writeShortString(b *bytes.Buffer, s []byte) {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(s)))
	b.Write(l[:])
	b.Write(s)
}

func readShortString(data []byte) (val []byte, rest []byte, err error) {
	if len(data) < 2 {
		return nil, nil, fmt.Errorf("%w: truncated length", ErrBadKeyFormat)
	}
	n := int(binary.BigEndian.Uint16(data))
	if len(data) < 2+n {
		return nil, nil, fmt.Errorf("%w: truncated string", ErrBadKeyFormat)
	}
	return data[2 : 2+n], data[2+n:], nil
}

func armor(payload []byte, begin, end string) []byte {
	var b bytes.Buffer
	b.WriteString(begin + "\n")
	b.WriteString(base64.StdEncoding.EncodeToString(payload) + "\n")
	b.WriteString(end + "\n")
	return b.Bytes()
}

func unarmor(data []byte, begin, end string) ([]byte, error) {
	text := string(bytes.TrimSpace(data))
	if !bytes.HasPrefix([]byte(text), []byte(begin)) {
		return nil, fmt.Errorf("%w: missing %q", ErrBadKeyFormat, begin)
	}
	text = text[len(begin):]
	idx := bytes.Index([]byte(text), []byte(end))
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing %q", ErrBadKeyFormat, end)
	}
	b64 := string(bytes.Join(bytes.Fields([]byte(text[:idx])), nil))
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKeyFormat, err)
	}
	return raw, nil
}
