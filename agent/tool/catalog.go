package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog/log"

	contractx "github.com/Toni872/script9-sub002/agent/contract"
	knowledgex "github.com/Toni872/script9-sub002/agent/knowledge"
	leadx "github.com/Toni872/script9-sub002/agent/lead"
	quotex "github.com/Toni872/script9-sub002/agent/quote"
)

const (
	ToolSearchKnowledge = "search_knowledge"
	ToolCalculateQuote  = "calculate_quote"
	ToolSaveLead        = "save_lead"
)

// KnowledgeSearcher is the retrieval surface the dispatcher needs.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, opts ...knowledgex.SearchOption) ([]knowledgex.Result, error)
}

// QuoteCalculator prices a service request.
type QuoteCalculator interface {
	Calculate(serviceType quotex.ServiceType, complexity quotex.Complexity, clientName string) (quotex.Quote, error)
}

// LeadRecorder persists a captured contact record.
type LeadRecorder interface {
	Insert(ctx context.Context, name, email, phone, notes string) (*leadx.Lead, error)
}

// Handler executes one tool invocation. A returned error is reported to the
// model as an error envelope; it never aborts the conversation.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Dispatcher routes model tool calls to their handlers and guarantees that
// every invocation yields a well-formed JSON envelope, whatever goes wrong
// underneath.
type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher(searcher KnowledgeSearcher, calculator QuoteCalculator, leads LeadRecorder) (*Dispatcher, error) {
	if searcher == nil {
		return nil, fmt.Errorf("%w: knowledge searcher is required", contractx.ErrValidation)
	}
	if calculator == nil {
		return nil, fmt.Errorf("%w: quote calculator is required", contractx.ErrValidation)
	}
	if leads == nil {
		return nil, fmt.Errorf("%w: lead recorder is required", contractx.ErrValidation)
	}

	return &Dispatcher{
		handlers: map[string]Handler{
			ToolSearchKnowledge: searchKnowledgeHandler(searcher),
			ToolCalculateQuote:  calculateQuoteHandler(calculator),
			ToolSaveLead:        saveLeadHandler(leads),
		},
	}, nil
}

// Dispatch parses rawArgs, routes name to its handler, and returns the
// result as JSON text. It never returns an error and never panics: unknown
// tools, malformed arguments, handler errors, and handler panics all come
// back as {"error": ...} envelopes.
func (d *Dispatcher) Dispatch(ctx context.Context, name, rawArgs string) string {
	name = strings.TrimSpace(name)

	handler, ok := d.handlers[name]
	if !ok {
		return errorEnvelope(fmt.Sprintf("Unknown tool: %s", name))
	}

	args := map[string]any{}
	if trimmed := strings.TrimSpace(rawArgs); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return errorEnvelope(fmt.Sprintf("invalid arguments for tool=%s: %v", name, err))
		}
	}

	result, err := safeExecute(ctx, handler, args)
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("tool execution failed")
		return errorEnvelope(err.Error())
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("tool result not serializable")
		return errorEnvelope(fmt.Sprintf("result of tool=%s is not serializable", name))
	}

	log.Debug().Str("tool", name).Msg("tool dispatched")
	return string(payload)
}

func safeExecute(ctx context.Context, handler Handler, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool handler panicked: %v", r)
		}
	}()
	return handler(ctx, args)
}

func errorEnvelope(message string) string {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"internal error"}`
	}
	return string(payload)
}

// Definitions returns the wire tool schema exposed to the model.
func Definitions() []openaisdk.ChatCompletionToolUnionParam {
	return []openaisdk.ChatCompletionToolUnionParam{
		openaisdk.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        ToolSearchKnowledge,
			Description: openaisdk.String("Search the service knowledge base and return the most relevant documents."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Natural language query about services, pricing, or processes.",
					},
				},
				"required": []string{"query"},
			},
		}),
		openaisdk.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        ToolCalculateQuote,
			Description: openaisdk.String("Calculate a price estimate for a service request."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"serviceType": map[string]any{
						"type": "string",
						"enum": []string{"Chatbot", "Automation", "Script", "Consulting"},
					},
					"complexity": map[string]any{
						"type": "string",
						"enum": []string{"Low", "Medium", "High"},
					},
					"clientName": map[string]any{
						"type":        "string",
						"description": "Optional client name for the quote summary.",
					},
				},
				"required": []string{"serviceType", "complexity"},
			},
		}),
		openaisdk.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        ToolSaveLead,
			Description: openaisdk.String("Save contact details of an interested prospect."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"name":  map[string]any{"type": "string"},
					"email": map[string]any{"type": "string"},
					"phone": map[string]any{"type": "string"},
					"notes": map[string]any{"type": "string"},
				},
				"required": []string{"email"},
			},
		}),
	}
}
