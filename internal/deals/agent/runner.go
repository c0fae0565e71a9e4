// Package agent implements the AI-backed collaborators of the deals
// module: offer extraction, insight generation, reply drafting and the
// deterministic brand/talent/conflict detectors. Every AI collaborator
// has a deterministic fallback so the module works without an API key.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"agencydesk_backend/platform/ai/moonshot"
)

// oneShot wraps an ADK agent for single prompt/response exchanges with
// a throwaway session per call.
type oneShot struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string
}

func newOneShot(apiKey, name, description, instruction string) (*oneShot, error) {
	kimi := moonshot.NewModel(moonshot.Config{APIKey: apiKey})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        name,
		Model:       kimi,
		Description: description,
		Instruction: instruction,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s agent: %w", name, err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        name,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s runner: %w", name, err)
	}

	return &oneShot{runner: r, sessionService: sessionService, appName: name}, nil
}

// Generate runs one prompt through the agent and returns the combined
// text output.
func (o *oneShot) Generate(ctx context.Context, prompt string) (string, error) {
	userID := "agent-" + uuid.New().String()
	sessionID := uuid.New().String()

	if _, err := o.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   o.appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	defer func() {
		_ = o.sessionService.Delete(context.Background(), &session.DeleteRequest{
			AppName:   o.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	message := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}

	var output strings.Builder
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}
	for event, err := range o.runner.Run(ctx, userID, sessionID, message, runConfig) {
		if err != nil {
			return "", fmt.Errorf("agent run failed: %w", err)
		}
		if event.Content != nil {
			for _, part := range event.Content.Parts {
				output.WriteString(part.Text)
			}
		}
	}

	return output.String(), nil
}

// extractJSON pulls the first JSON object out of a model response that
// may wrap it in prose or a code fence.
func extractJSON(output string) (string, bool) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return output[start : end+1], true
}
