package orchestrator

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v2"
	"github.com/rs/zerolog/log"

	contractx "github.com/Toni872/script9-sub002/agent/contract"
	promptx "github.com/Toni872/script9-sub002/agent/prompt"
)

const (
	// DefaultMaxRounds bounds the tool-calling loop. Five model turns is
	// enough for search -> quote -> lead chains; anything longer is the
	// model spinning.
	DefaultMaxRounds = 5

	// FallbackReply is the single user-visible sentence returned when the
	// round budget runs out without a final answer.
	FallbackReply = "Lo siento, no he podido procesar tu consulta en este momento. Por favor, inténtalo de nuevo más tarde."
)

// ToolDispatcher executes one tool call and always returns a JSON envelope.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name, rawArgs string) string
}

type Config struct {
	// MaxRounds overrides the loop budget. Zero or negative means
	// DefaultMaxRounds.
	MaxRounds int

	// SystemPrompt overrides the embedded commercial persona. Empty means
	// the default.
	SystemPrompt string
}

// Service drives the bounded tool-calling conversation: it owns the message
// transcript for the duration of one Chat call, exchanges turns with the
// model, and feeds tool results back until the model answers in plain text
// or the budget runs out. All side effects happen inside dispatched tools.
type Service struct {
	model     contractx.ChatModel
	tools     ToolDispatcher
	toolDefs  []openaisdk.ChatCompletionToolUnionParam
	prompt    string
	maxRounds int
}

func New(model contractx.ChatModel, tools ToolDispatcher, toolDefs []openaisdk.ChatCompletionToolUnionParam, cfg Config) (*Service, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if tools == nil {
		return nil, fmt.Errorf("%w: tool dispatcher is required", contractx.ErrValidation)
	}

	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	systemPrompt := strings.TrimSpace(cfg.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = promptx.Commercial()
	}

	return &Service{
		model:     model,
		tools:     tools,
		toolDefs:  toolDefs,
		prompt:    systemPrompt,
		maxRounds: maxRounds,
	}, nil
}

// Chat runs one conversation exchange. history holds the prior user and
// assistant turns; the system instruction is prepended internally. It blocks
// until a terminal state: the model's final text, the fallback sentence when
// the budget is exhausted, or an error if the model service itself fails.
func (s *Service) Chat(ctx context.Context, history []contractx.Message) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openaisdk.SystemMessage(s.prompt))
	for _, turn := range history {
		switch turn.Role {
		case contractx.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openaisdk.UserMessage(turn.Content))
		}
	}

	for round := 0; round < s.maxRounds; round++ {
		assistant, err := s.model.Complete(ctx, messages, s.toolDefs)
		if err != nil {
			return "", fmt.Errorf("round %d: %w", round+1, err)
		}

		messages = append(messages, assistantParam(assistant))

		if len(assistant.ToolCalls) == 0 {
			log.Debug().Int("rounds", round+1).Msg("chat finished")
			return assistant.Content, nil
		}

		// Tool calls run sequentially in the order received: each result
		// must join the transcript before the next model turn, and the
		// transcript is single-owner for the lifetime of this call.
		for _, call := range assistant.ToolCalls {
			payload := s.tools.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
			messages = append(messages, openaisdk.ToolMessage(payload, call.ID))
			log.Debug().
				Str("tool", call.Function.Name).
				Str("call_id", call.ID).
				Int("round", round+1).
				Msg("tool result appended")
		}
	}

	log.Warn().Int("max_rounds", s.maxRounds).Msg("round budget exhausted without final answer")
	return FallbackReply, nil
}

// assistantParam converts the model's assistant response into a request
// param so it can rejoin the transcript on the next turn.
func assistantParam(msg *openaisdk.ChatCompletionMessage) openaisdk.ChatCompletionMessageParamUnion {
	assistant := openaisdk.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content.OfString = openaisdk.String(msg.Content)
	}
	if len(msg.ToolCalls) > 0 {
		assistant.ToolCalls = make([]openaisdk.ChatCompletionMessageToolCallUnionParam, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
					ID: call.ID,
					Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      call.Function.Name,
						Arguments: call.Function.Arguments,
					},
				},
			})
		}
	}
	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}
