package extraction

import (
	"context"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func startTestRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}
	return "redis://" + endpoint
}

func TestRunLockSingleFlight(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	url := startTestRedis(t)
	ctx := context.Background()

	first, err := NewRunLock(url, "mnemo:test:run", time.Minute, zap.NewNop())
	if err != nil {
		t.Fatalf("connect first: %v", err)
	}
	defer first.Close()
	second, err := NewRunLock(url, "mnemo:test:run", time.Minute, zap.NewNop())
	if err != nil {
		t.Fatalf("connect second: %v", err)
	}
	defer second.Close()

	ok, err := first.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok {
		t.Fatal("first acquire refused on a fresh key")
	}

	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("contended acquire: %v", err)
	}
	if ok {
		t.Fatal("second runner acquired a held lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !ok {
		t.Fatal("lock not acquirable after release")
	}
}
