package observability

import (
	"context"
	"os"
	"testing"

	"github.com/foodsave-ai/foodsave/internal/log"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown: %v", err)
	}
}

func TestSetupEnabled(t *testing.T) {
	// The exporter is created eagerly but only connects on export, so
	// an unreachable endpoint must not fail startup.
	shutdown, err := Setup(context.Background(), Config{
		Enabled:     true,
		Endpoint:    "localhost:1", // nothing listens here
		ServiceName: "foodsave-test",
		Environment: "test",
	}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown must never be nil")
	}
	if got := os.Getenv("OTEL_SERVICE_NAME"); got != "foodsave-test" {
		t.Errorf("OTEL_SERVICE_NAME = %q", got)
	}

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
