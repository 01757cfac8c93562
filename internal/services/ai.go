package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/project-management-api/internal/models"
)

// GeneratedTask is a task draft proposed by the AI service.
type GeneratedTask struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority"`
	DueDate     *time.Time      `json:"due_date"`
}

type AIService struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
		now:    time.Now,
	}
}

const draftPrompt = `You extract actionable tasks for the project %q from the text below.

Current time: %s

Text:
%s

Reply with a JSON array only, no prose:
[
  {
    "title": "short task title",
    "description": "what needs to be done",
    "priority": "LOW | MEDIUM | HIGH",
    "due_date": "ISO8601 deadline such as 2026-10-28T23:59:59Z, or null when none is stated"
  }
]

Reply with [] when the text contains no tasks. Turn relative deadlines such as "tomorrow" or "next week" into absolute dates.`

// GenerateTasksFromText asks the chat model for task drafts.
func (s *AIService) GenerateTasksFromText(ctx context.Context, projectName, text string) ([]GeneratedTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(draftPrompt, projectName, s.now().UTC().Format(time.RFC3339), text)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseDrafts(resp.Choices[0].Message.Content)
}

// parseDrafts decodes the model output, tolerating a fenced code block.
func parseDrafts(content string) ([]GeneratedTask, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var drafts []GeneratedTask
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	return drafts, nil
}
