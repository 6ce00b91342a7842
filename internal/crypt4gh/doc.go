// Package crypt4gh implements the Crypt4GH v1 container format used by the
// archive ingestion pipeline: an encrypted header carrying a session key,
// followed by independently sealed 64KiB data segments.
//
// Header packets are sealed with X25519 + ChaCha20-Poly1305; shared keys
// follow libsodium's crypto_kx derivation (BLAKE2b-512 over the ECDH point
// and both public keys). Key files use the c4gh-v1 container with the
// scrypt or none KDF.
package crypt4gh
