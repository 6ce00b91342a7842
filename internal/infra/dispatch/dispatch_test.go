package dispatch

import (
	"context"
	"testing"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
)

type stubRunner struct {
	kinds []domain.CheckKind
	ran   []string
}

func (s *stubRunner) Kinds() []domain.CheckKind { return s.kinds }

func (s *stubRunner) Run(_ context.Context, check domain.CheckSpec, _ domain.Vars) (domain.CheckResult, error) {
	s.ran = append(s.ran, check.Name)
	return domain.CheckResult{Name: check.Name, Kind: check.Kind}, nil
}

func TestDispatcher_RoutesByKind(t *testing.T) {
	ssh := &stubRunner{kinds: []domain.CheckKind{domain.CheckSSH, domain.CheckSFTPUpload}}
	api := &stubRunner{kinds: []domain.CheckKind{domain.CheckAPI}}

	d, err := New(ssh, api)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, err := d.Run(context.Background(), domain.CheckSpec{Name: "up", Kind: domain.CheckSFTPUpload}, nil); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if _, err := d.Run(context.Background(), domain.CheckSpec{Name: "check", Kind: domain.CheckAPI}, nil); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(ssh.ran) != 1 || ssh.ran[0] != "up" {
		t.Fatalf("ssh runner ran %v", ssh.ran)
	}
	if len(api.ran) != 1 || api.ran[0] != "check" {
		t.Fatalf("api runner ran %v", api.ran)
	}
}

func TestDispatcher_UnknownKind(t *testing.T) {
	d, err := New()
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	_, err = d.Run(context.Background(), domain.CheckSpec{Name: "x", Kind: domain.CheckMQStatus}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Fatalf("expected invalid_config, got %v", err)
	}
}

func TestDispatcher_DuplicateKind(t *testing.T) {
	a := &stubRunner{kinds: []domain.CheckKind{domain.CheckSSH}}
	b := &stubRunner{kinds: []domain.CheckKind{domain.CheckSSH}}

	if _, err := New(a, b); err == nil {
		t.Fatalf("expected duplicate-kind error")
	}
}
