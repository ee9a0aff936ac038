package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/akuru-app/akuru/internal/config"
	"github.com/akuru-app/akuru/internal/model/chat"
)

// Responder produces assistant replies. The eino-backed Service is the
// production implementation; EchoResponder keeps the rest of the system
// runnable when no model is configured.
type Responder interface {
	StreamingEnabled() bool
	Generate(ctx context.Context, history []chat.Message, userMessage string) (string, error)
	Stream(ctx context.Context, history []chat.Message, userMessage string) (*schema.StreamReader[*schema.Message], error)
}

// Service runs the Akuru assistant through an eino chat chain.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the prompt/model chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, cfg: cfg, chain: runnable}, nil
}

// StreamingEnabled reports whether replies should be delivered over SSE.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Generate produces a complete reply in one call.
func (s *Service) Generate(ctx context.Context, history []chat.Message, userMessage string) (string, error) {
	response, err := s.chain.Invoke(ctx, chainInput(history, userMessage))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Debug().Int("length", len(response.Content)).Msg("generated assistant response")
	return response.Content, nil
}

// Stream produces a chunked reply through the configured chain.
func (s *Service) Stream(ctx context.Context, history []chat.Message, userMessage string) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	stream, err := s.chain.Stream(ctx, chainInput(history, userMessage))
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	return stream, nil
}

func chainInput(history []chat.Message, userMessage string) map[string]any {
	return map[string]any{
		"system":  SystemPrompt(),
		"history": historyMessages(history),
		"query":   userMessage,
	}
}

func historyMessages(messages []chat.Message) []*schema.Message {
	history := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(m.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(m.Content, nil))
		}
	}
	return history
}

// EchoResponder is a development stand-in that answers every message with
// a fixed bilingual reply. Never used when model credentials exist.
type EchoResponder struct {
	Streaming bool
}

// StreamingEnabled implements Responder.
func (e *EchoResponder) StreamingEnabled() bool { return e.Streaming }

func echoReply(userMessage string) string {
	trimmed := strings.TrimSpace(userMessage)
	return fmt.Sprintf("You said: %q. I am running without a language model right now.\n\nއަކުރު މިވަގުތު މޮޑެލްއަކާ ނުލައި މަސައްކަތް ކުރަނީއެވެ.", trimmed)
}

// Generate implements Responder.
func (e *EchoResponder) Generate(_ context.Context, _ []chat.Message, userMessage string) (string, error) {
	return echoReply(userMessage), nil
}

// Stream implements Responder by replaying the canned reply in small pieces.
func (e *EchoResponder) Stream(_ context.Context, _ []chat.Message, userMessage string) (*schema.StreamReader[*schema.Message], error) {
	full := echoReply(userMessage)
	const pieceSize = 8

	chunks := make([]*schema.Message, 0, len(full)/pieceSize+1)
	runes := []rune(full)
	for start := 0; start < len(runes); start += pieceSize {
		end := start + pieceSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, schema.AssistantMessage(string(runes[start:end]), nil))
	}

	return schema.StreamReaderFromArray(chunks), nil
}
