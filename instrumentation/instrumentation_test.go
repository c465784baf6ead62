package instrumentation

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if inst.config.ServiceName != "social-auth" {
		t.Errorf("ServiceName = %q", inst.config.ServiceName)
	}
	if inst.config.ServiceVersion != DefaultServiceVersion {
		t.Errorf("ServiceVersion = %q", inst.config.ServiceVersion)
	}
	if inst.Metrics() == nil {
		t.Fatal("expected metrics")
	}
	if inst.Meter("flow") == nil || inst.Tracer("flow") == nil {
		t.Error("expected meter and tracer")
	}
}

func TestMetrics_RecordersDoNotPanic(t *testing.T) {
	inst, err := New(Config{ServiceName: "test", Enabled: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	m := inst.Metrics()

	m.RecordLoginStarted(ctx, "KAKAO")
	m.RecordCallbackProcessed(ctx, "KAKAO", true)
	m.RecordCodeExchange(ctx, false)
	m.RecordRateLimitExceeded(ctx, "authorize")
	m.RecordRedirectURIBlocked(ctx)
	m.RecordStateReplay(ctx, "APPLE")
	m.RecordStoreOperation(ctx, "save", "success", 0.3)
	m.RecordEncryptionOperation(ctx, "encrypt", true, 0.1)
}

func TestRegisterStoreSizeCallbacks(t *testing.T) {
	inst, err := New(Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var requests, exchanges atomic.Int64
	err = inst.RegisterStoreSizeCallbacks(
		func() int64 { return requests.Load() },
		func() int64 { return exchanges.Load() },
	)
	if err != nil {
		t.Fatalf("RegisterStoreSizeCallbacks: %v", err)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := inst.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown #%d: %v", i+1, err)
		}
	}
}
