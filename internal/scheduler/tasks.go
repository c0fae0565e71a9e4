package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskOrchestratorRun = "deals.orchestrator.run"

const TaskThreadRebuild = "deals.threads.rebuild"

const TaskSendReply = "deals.reply.send"

const TaskFollowUp = "deals.followup.send"

type ThreadRebuildPayload struct {
	OwnerID string `json:"ownerId"`
}

// DealActionPayload carries an orchestrator decision to the reply and
// follow-up handlers.
type DealActionPayload struct {
	ThreadID string `json:"threadId"`
}

func NewThreadRebuildTask(payload ThreadRebuildPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskThreadRebuild, data), nil
}

func ParseThreadRebuildPayload(task *asynq.Task) (ThreadRebuildPayload, error) {
	var payload ThreadRebuildPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ThreadRebuildPayload{}, err
	}
	return payload, nil
}

func NewSendReplyTask(payload DealActionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSendReply, data), nil
}

func NewFollowUpTask(payload DealActionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUp, data), nil
}

func ParseDealActionPayload(task *asynq.Task) (DealActionPayload, error) {
	var payload DealActionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DealActionPayload{}, err
	}
	return payload, nil
}

func NewOrchestratorRunTask() *asynq.Task {
	return asynq.NewTask(TaskOrchestratorRun, nil)
}
