package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/Toni872/script9-sub002/agent/contract"
	quotex "github.com/Toni872/script9-sub002/agent/quote"
)

type searchMatch struct {
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type searchPayload struct {
	Results []searchMatch `json:"results"`
	Count   int           `json:"count"`
}

type leadPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func searchKnowledgeHandler(searcher KnowledgeSearcher) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		query, err := requiredString(args, "query")
		if err != nil {
			return nil, err
		}

		results, err := searcher.Search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search knowledge: %w", err)
		}

		matches := make([]searchMatch, 0, len(results))
		for _, r := range results {
			matches = append(matches, searchMatch{
				Content:    r.Document.Content,
				Similarity: r.Similarity,
				Metadata:   r.Document.Metadata,
			})
		}

		return searchPayload{Results: matches, Count: len(matches)}, nil
	}
}

func calculateQuoteHandler(calculator QuoteCalculator) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		serviceType, err := requiredString(args, "serviceType")
		if err != nil {
			return nil, err
		}
		complexity, err := requiredString(args, "complexity")
		if err != nil {
			return nil, err
		}
		clientName := optionalString(args, "clientName")

		estimate, err := calculator.Calculate(
			quotex.ServiceType(serviceType),
			quotex.Complexity(complexity),
			clientName,
		)
		if err != nil {
			return nil, fmt.Errorf("calculate quote: %w", err)
		}

		return estimate, nil
	}
}

func saveLeadHandler(leads LeadRecorder) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		email, err := requiredString(args, "email")
		if err != nil {
			return nil, err
		}

		record, err := leads.Insert(
			ctx,
			optionalString(args, "name"),
			email,
			optionalString(args, "phone"),
			optionalString(args, "notes"),
		)
		if err != nil {
			return nil, fmt.Errorf("save lead: %w", err)
		}

		return leadPayload{
			Success: true,
			Message: fmt.Sprintf("Lead for %s saved", record.Email),
		}, nil
	}
}

func requiredString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", contractx.ErrToolArgument, key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", contractx.ErrToolArgument, key)
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %s is required", contractx.ErrToolArgument, key)
	}
	return trimmed, nil
}

func optionalString(args map[string]any, key string) string {
	if value, ok := args[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
