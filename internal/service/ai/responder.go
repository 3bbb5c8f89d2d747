// Package ai produces bot replies through the configured completion model.
package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/dgdiegogallo/mensajeria/internal/config"
)

// Responder turns one instruction string into one answer. The contract is a
// single request/response exchange; all conversation context travels inside
// the instruction itself.
type Responder interface {
	Reply(ctx context.Context, instruction string) (string, error)
}

const systemPrompt = "You are an automated responder inside a company chat workspace. " +
	"Answer the instruction you receive as the bot it describes, in the language of the user's message, " +
	"and return only the reply text."

// Service is the production Responder backed by an eino chain.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the completion chain from the model configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile completion chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// Reply issues exactly one completion call for the instruction.
func (s *Service) Reply(ctx context.Context, instruction string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": systemPrompt,
		"query":  instruction,
	})
	if err != nil {
		return "", fmt.Errorf("run completion chain: %w", err)
	}

	log.Printf("[ai] generated reply, length=%d", len(response.Content))
	return response.Content, nil
}
