package stager

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/neicnordic/LocalEGA-tester/internal/crypt4gh"
	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

func TestRun_PayloadPublishesChecksum(t *testing.T) {
	dir := t.TempDir()
	r := New(WithWorkDir(dir))

	check := domain.CheckSpec{
		Name:   "stage payload",
		Kind:   domain.CheckPayload,
		Params: domain.Params{"size_bytes": "4096", "name": "sample.bin"},
	}

	res, err := r.Run(context.Background(), check, domain.Vars{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Error != nil {
		t.Fatalf("unexpected run error: %+v", res.Error)
	}

	path := res.Detail["path"]
	if filepath.Base(path) != "sample.bin" {
		t.Fatalf("path = %s", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if len(b) != 4096 {
		t.Fatalf("payload size = %d, want 4096", len(b))
	}

	sum := sha256.Sum256(b)
	if res.Detail["sha256"] != hex.EncodeToString(sum[:]) {
		t.Fatalf("sha256 detail does not match file")
	}
}

func TestRun_PayloadRejectsBadSize(t *testing.T) {
	r := New(WithWorkDir(t.TempDir()))

	check := domain.CheckSpec{
		Name:   "stage payload",
		Kind:   domain.CheckPayload,
		Params: domain.Params{"size_bytes": "-5"},
	}

	res, err := r.Run(context.Background(), check, domain.Vars{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Error == nil {
		t.Fatalf("expected run error")
	}
	if res.Error.Kind != domain.RunErrorConfig {
		t.Fatalf("error kind = %s, want config", res.Error.Kind)
	}
}

func TestRun_EncryptRoundTrips(t *testing.T) {
	dir := t.TempDir()

	reader, err := crypt4gh.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyPath := filepath.Join(dir, "service.pub")
	if err := os.WriteFile(keyPath, crypt4gh.EncodePublicKey(reader.Public), 0o644); err != nil {
		t.Fatalf("write key: %v", err)
	}

	plain := []byte("GATTACA GATTACA GATTACA")
	source := filepath.Join(dir, "genome.txt")
	if err := os.WriteFile(source, plain, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	r := New(WithWorkDir(dir))

	check := domain.CheckSpec{
		Name: "encrypt payload",
		Kind: domain.CheckEncrypt,
		Params: domain.Params{
			"source":        source,
			"recipient_key": keyPath,
		},
	}

	res, err := r.Run(context.Background(), check, domain.Vars{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Error != nil {
		t.Fatalf("unexpected run error: %+v", res.Error)
	}

	target := res.Detail["path"]
	if filepath.Ext(target) != ".c4ga" {
		t.Fatalf("target = %s, want .c4ga extension", target)
	}

	sealed, err := os.Open(target)
	if err != nil {
		t.Fatalf("open container: %v", err)
	}
	defer sealed.Close()

	var out bytes.Buffer
	if err := crypt4gh.Decrypt(&out, sealed, reader.Secret); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(out.Bytes(), plain) {
		t.Fatalf("decrypted payload does not match source")
	}
}

func TestRun_EncryptMissingKey(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "genome.txt")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	r := New(WithWorkDir(dir))

	check := domain.CheckSpec{
		Name: "encrypt payload",
		Kind: domain.CheckEncrypt,
		Params: domain.Params{
			"source":        source,
			"recipient_key": filepath.Join(dir, "missing.pub"),
		},
	}

	res, err := r.Run(context.Background(), check, domain.Vars{})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Error == nil {
		t.Fatalf("expected run error")
	}
}

func TestEncryptedName(t *testing.T) {
	if got := encryptedName("/tmp/payload.bin"); got != "/tmp/payload.c4ga" {
		t.Fatalf("encryptedName = %s", got)
	}
	if got := encryptedName("/tmp/payload"); got != "/tmp/payload.c4ga" {
		t.Fatalf("encryptedName = %s", got)
	}
}
