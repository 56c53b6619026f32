package telemetry

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "federation-service"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
}

func TestInitWithEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{
		ServiceName: "federation-service",
		Endpoint:    "localhost:4318",
		Insecure:    true,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	// nothing was recorded, so shutdown has nothing to flush
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
}
