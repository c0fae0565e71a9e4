package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string                    { return c.redisURL }
func (c testSchedulerConfig) GetAsynqQueueName() string              { return "deals" }
func (c testSchedulerConfig) GetAsynqConcurrency() int               { return 1 }
func (c testSchedulerConfig) GetOrchestratorInterval() time.Duration { return 15 * time.Minute }

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := testSchedulerConfig{redisURL: "redis://" + mr.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { inspector.Close() })

	return client, inspector
}

func TestEnqueueRebuildIsUniquePerOwner(t *testing.T) {
	client, inspector := newTestClient(t)
	ownerID := uuid.New()

	if err := client.EnqueueRebuild(context.Background(), ownerID); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := client.EnqueueRebuild(context.Background(), ownerID); err != nil {
		t.Fatalf("duplicate enqueue should be swallowed, got %v", err)
	}

	pending, err := inspector.ListPendingTasks("deals")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(pending))
	}
	if pending[0].Type != TaskThreadRebuild {
		t.Errorf("task type = %q, want %q", pending[0].Type, TaskThreadRebuild)
	}

	var payload ThreadRebuildPayload
	if err := json.Unmarshal(pending[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OwnerID != ownerID.String() {
		t.Errorf("owner = %q, want %q", payload.OwnerID, ownerID)
	}
}

func TestEnqueueRebuildDifferentOwnersBothQueued(t *testing.T) {
	client, inspector := newTestClient(t)

	if err := client.EnqueueRebuild(context.Background(), uuid.New()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := client.EnqueueRebuild(context.Background(), uuid.New()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pending, err := inspector.ListPendingTasks("deals")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending tasks = %d, want 2", len(pending))
	}
}

func TestEnqueueActions(t *testing.T) {
	client, inspector := newTestClient(t)
	threadID := uuid.New()

	if err := client.EnqueueReply(context.Background(), threadID); err != nil {
		t.Fatalf("EnqueueReply: %v", err)
	}
	if err := client.EnqueueFollowUp(context.Background(), threadID); err != nil {
		t.Fatalf("EnqueueFollowUp: %v", err)
	}

	pending, err := inspector.ListPendingTasks("deals")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}

	types := make(map[string]int)
	for _, task := range pending {
		types[task.Type]++

		var payload DealActionPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.ThreadID != threadID.String() {
			t.Errorf("thread = %q, want %q", payload.ThreadID, threadID)
		}
	}
	if types[TaskSendReply] != 1 || types[TaskFollowUp] != 1 {
		t.Errorf("task types = %v, want one reply and one follow-up", types)
	}
}
