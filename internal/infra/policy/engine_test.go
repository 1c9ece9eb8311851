package policy

import (
	"context"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), "")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestAllowsOpenLicenseAndKnownType(t *testing.T) {
	engine := newTestEngine(t)
	decision, err := engine.Evaluate(context.Background(), Input{
		ContentID:   "conte_001",
		ContentType: "conte",
		License:     "CC-BY-4.0",
		Contributor: "0xabc",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("expected allow, got deny: %+v", decision.Deny)
	}
}

func TestDeniesUnknownLicense(t *testing.T) {
	engine := newTestEngine(t)
	decision, err := engine.Evaluate(context.Background(), Input{
		ContentID:   "conte_001",
		ContentType: "conte",
		License:     "PROPRIETARY",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allow {
		t.Fatal("expected deny for proprietary license")
	}
	if len(decision.Deny) != 1 || decision.Deny[0].Code != "license_not_allowed" {
		t.Fatalf("unexpected violations %+v", decision.Deny)
	}
}

func TestDeniesUnknownContentType(t *testing.T) {
	engine := newTestEngine(t)
	decision, err := engine.Evaluate(context.Background(), Input{
		ContentID:   "x",
		ContentType: "malware",
		License:     "CC0-1.0",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allow {
		t.Fatal("expected deny for unknown content type")
	}
}

func TestEmptyFieldsAreAllowed(t *testing.T) {
	engine := newTestEngine(t)
	decision, err := engine.Evaluate(context.Background(), Input{ContentID: "conte_001"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Allow {
		t.Fatalf("expected allow when optional fields are empty, got %+v", decision.Deny)
	}
}
