package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testConfig struct {
	redisURL string
	queue    string
}

func (c testConfig) GetRedisURL() string                   { return c.redisURL }
func (c testConfig) GetRedisTLSInsecure() bool             { return false }
func (c testConfig) GetAsynqQueueName() string             { return c.queue }
func (c testConfig) GetAsynqConcurrency() int              { return 1 }
func (c testConfig) GetExpireSweepInterval() time.Duration { return 5 * time.Minute }
func (c testConfig) GetReconcileInterval() time.Duration   { return time.Hour }

func TestClientEnqueuesTasks(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig{redisURL: "redis://" + mr.Addr(), queue: "jobs"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnqueueExpireSweep(ctx); err != nil {
		t.Fatalf("EnqueueExpireSweep() error = %v", err)
	}
	if err := client.EnqueueLedgerReconcile(ctx); err != nil {
		t.Fatalf("EnqueueLedgerReconcile() error = %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("jobs")
	if err != nil {
		t.Fatalf("ListPendingTasks() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending tasks = %d, want 2", len(pending))
	}

	types := map[string]bool{}
	for _, task := range pending {
		types[task.Type] = true
	}
	if !types[TaskExpireSweep] || !types[TaskLedgerReconcile] {
		t.Errorf("pending task types = %v, want both job types", types)
	}
}

func TestClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testConfig{}); err == nil {
		t.Fatal("NewClient() with empty redis url expected error")
	}
}

func TestExpireSweepPayloadRoundTrip(t *testing.T) {
	enqueued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	task, err := NewExpireSweepTask(ExpireSweepPayload{EnqueuedAt: enqueued})
	if err != nil {
		t.Fatalf("NewExpireSweepTask() error = %v", err)
	}
	if task.Type() != TaskExpireSweep {
		t.Errorf("task type = %q, want %q", task.Type(), TaskExpireSweep)
	}

	payload, err := ParseExpireSweepPayload(task)
	if err != nil {
		t.Fatalf("ParseExpireSweepPayload() error = %v", err)
	}
	if !payload.EnqueuedAt.Equal(enqueued) {
		t.Errorf("EnqueuedAt = %v, want %v", payload.EnqueuedAt, enqueued)
	}
}

func TestEverySpec(t *testing.T) {
	if got := everySpec(5*time.Minute, time.Hour); got != "@every 5m0s" {
		t.Errorf("everySpec(5m) = %q", got)
	}
	if got := everySpec(0, time.Hour); got != "@every 1h0m0s" {
		t.Errorf("everySpec(0) = %q, want fallback", got)
	}
}
