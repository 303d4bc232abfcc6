package quote

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/Toni872/script9-sub002/agent/contract"
)

type ServiceType string

const (
	ServiceChatbot    ServiceType = "Chatbot"
	ServiceAutomation ServiceType = "Automation"
	ServiceScript     ServiceType = "Script"
	ServiceConsulting ServiceType = "Consulting"
)

type Complexity string

const (
	ComplexityLow    Complexity = "Low"
	ComplexityMedium Complexity = "Medium"
	ComplexityHigh   Complexity = "High"
)

const (
	basePriceChatbot = 1500.0
	basePriceOther   = 800.0

	validityWindow = 7 * 24 * time.Hour
)

var complexityMultipliers = map[Complexity]float64{
	ComplexityLow:    1.0,
	ComplexityMedium: 1.5,
	ComplexityHigh:   2.5,
}

// Quote is a transient estimate. It is never persisted; the orchestrator
// returns it inline to the conversation.
type Quote struct {
	Summary    string  `json:"summary"`
	Details    string  `json:"details"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	ValidUntil string  `json:"valid_until"`
	Status     string  `json:"status"`
}

// Calculator produces deterministic price estimates. Identical inputs always
// yield an identical amount; only ValidUntil depends on the clock.
type Calculator struct {
	now func() time.Time
}

type Option func(*Calculator)

// WithClock overrides the calculator's clock.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Calculate prices a service request from the static table: base price per
// service type times the complexity multiplier.
func (c *Calculator) Calculate(serviceType ServiceType, complexity Complexity, clientName string) (Quote, error) {
	base, err := basePriceFor(serviceType)
	if err != nil {
		return Quote{}, err
	}

	multiplier, ok := complexityMultipliers[complexity]
	if !ok {
		return Quote{}, fmt.Errorf("%w: unsupported complexity=%q", contractx.ErrToolArgument, complexity)
	}

	amount := base * multiplier

	summary := fmt.Sprintf("%s (%s complexity)", serviceType, strings.ToLower(string(complexity)))
	details := fmt.Sprintf("Base %.2f EUR x %.1f complexity multiplier", base, multiplier)
	if name := strings.TrimSpace(clientName); name != "" {
		summary = fmt.Sprintf("%s for %s", summary, name)
	}

	return Quote{
		Summary:    summary,
		Details:    details,
		Amount:     amount,
		Currency:   "EUR",
		ValidUntil: c.now().UTC().Add(validityWindow).Format(time.RFC3339),
		Status:     "ESTIMATE",
	}, nil
}

func basePriceFor(serviceType ServiceType) (float64, error) {
	switch serviceType {
	case ServiceChatbot:
		return basePriceChatbot, nil
	case ServiceAutomation, ServiceScript, ServiceConsulting:
		return basePriceOther, nil
	default:
		return 0, fmt.Errorf("%w: unsupported service type=%q", contractx.ErrToolArgument, serviceType)
	}
}
