package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

func TestValidateSuite_OK(t *testing.T) {
	suite := domain.Suite{
		Name: "ingest",
		Checks: []domain.CheckSpec{
			{
				Name:   "upload",
				Kind:   domain.CheckSFTPUpload,
				Params: domain.Params{"file_path": "{{payload}}", "host": "{{inbox_host}}"},
			},
		},
	}
	env := domain.Environment{
		Name: "dev",
		Vars: domain.Vars{"payload": "/tmp/x.bin", "inbox_host": "localhost"},
	}

	uc := NewValidateSuite(fakeSuiteLoader{suite: suite}, fakeEnvLoader{env: env})
	if err := uc.Execute(context.Background(), "p", "dev"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSuite_MissingVar(t *testing.T) {
	suite := domain.Suite{
		Name: "ingest",
		Checks: []domain.CheckSpec{
			{Name: "upload", Kind: domain.CheckSFTPUpload, Params: domain.Params{"host": "{{inbox_host}}"}},
		},
	}

	uc := NewValidateSuite(fakeSuiteLoader{suite: suite}, fakeEnvLoader{env: domain.Environment{Name: "dev"}})
	err := uc.Execute(context.Background(), "p", "dev")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.KindMissingVar) {
		t.Fatalf("expected KindMissingVar, got %v", err)
	}
	if !strings.Contains(err.Error(), `check "upload"`) {
		t.Fatalf("expected check name in error, got %v", err)
	}
}

func TestValidateSuite_ExtractKeysSatisfyLaterChecks(t *testing.T) {
	suite := domain.Suite{
		Name: "ingest",
		Checks: []domain.CheckSpec{
			{
				Name:    "upload",
				Kind:    domain.CheckSFTPUpload,
				Params:  domain.Params{"file_path": "/tmp/x.bin"},
				Extract: domain.ExtractSpec{"remote": "remote_name"},
			},
			{
				Name:   "verify",
				Kind:   domain.CheckDBStatus,
				Params: domain.Params{"filename": "{{remote}}"},
			},
		},
	}

	uc := NewValidateSuite(fakeSuiteLoader{suite: suite}, fakeEnvLoader{env: domain.Environment{Name: "dev"}})
	if err := uc.Execute(context.Background(), "p", "dev"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSuite_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite := domain.Suite{Name: "s", Checks: []domain.CheckSpec{{Name: "c", Kind: domain.CheckSSH}}}
	uc := NewValidateSuite(fakeSuiteLoader{suite: suite}, fakeEnvLoader{env: domain.Environment{Name: "dev"}})
	if err := uc.Execute(ctx, "p", "dev"); err == nil {
		t.Fatalf("expected context error")
	}
}
