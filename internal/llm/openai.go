package llm

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"pharmacy-portal/pkg"
)

// Message is a minimal chat message used by the dialogue controller.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Assistant generates the next free-text reply for a conversation. No format
// guarantees: the text may contain questions, disclaimers, and multiple
// sentences; the response shaper cleans it up.
type Assistant interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// DiagnosisGenerator turns a finished conversation into a structured
// diagnosis with free-text prescription directives.
type DiagnosisGenerator interface {
	Diagnose(ctx context.Context, messages []Message) (*pkg.Diagnosis, error)
}

// diagnosisInstruction asks for a strict JSON payload so the resolution
// engine gets one directive per prescription line.
const diagnosisInstruction = "You are a pharmacy diagnosis system. Based on the conversation, reply with a single JSON object and nothing else: " +
	`{"diagnosis_text": "short plain-language assessment", "prescriptions": ["one free-text over-the-counter drug instruction per entry"], "follow_up": "one short follow-up sentence"}`

// OpenAIClient calls the OpenAI API for chat replies and diagnosis
// generation. API credentials and model names come from the environment.
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	diagnosisModel string
}

// NewOpenAIClient constructs an OpenAI-backed client. It reads the API key
// and model names from the environment and falls back to sensible defaults.
func NewOpenAIClient() *OpenAIClient {
	apiKey := os.Getenv("OPENAI_API_KEY")
	c := openai.NewClient(apiKey)

	chatModel := os.Getenv("OPENAI_MODEL_CHAT")
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	diagnosisModel := os.Getenv("OPENAI_MODEL_DIAGNOSIS")
	if diagnosisModel == "" {
		diagnosisModel = chatModel
	}

	return &OpenAIClient{
		client:         c,
		chatModel:      chatModel,
		diagnosisModel: diagnosisModel,
	}
}

// Chat sends the message history to the chat completion API and returns the
// assistant's raw response.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    toOpenAI(messages),
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Diagnose requests the structured diagnosis payload. A malformed response
// degrades to an empty prescriptions list with the raw text as the diagnosis
// rather than failing the whole turn; only transport errors surface.
func (c *OpenAIClient) Diagnose(ctx context.Context, messages []Message) (*pkg.Diagnosis, error) {
	if c.client == nil {
		return nil, errors.New("openai client not initialized")
	}
	oaMsgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: diagnosisInstruction},
	}
	oaMsgs = append(oaMsgs, toOpenAI(messages)...)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.diagnosisModel,
		Messages:    oaMsgs,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty diagnosis response")
	}
	return ParseDiagnosis(resp.Choices[0].Message.Content), nil
}

// ParseDiagnosis decodes the generator's reply, tolerating code fences. When
// the payload is not the expected JSON, the raw text becomes the diagnosis
// with no prescriptions, which keeps checkout closed downstream.
func ParseDiagnosis(raw string) *pkg.Diagnosis {
	text := strings.TrimSpace(raw)
	if i := strings.Index(text, "{"); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i {
			var d pkg.Diagnosis
			if err := json.Unmarshal([]byte(text[i:j+1]), &d); err == nil && d.DiagnosisText != "" {
				return &d
			}
		}
	}
	return &pkg.Diagnosis{DiagnosisText: text}
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
