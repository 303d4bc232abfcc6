package contract

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single prior turn of the conversation as supplied by the
// caller. The system instruction is never part of the history; the
// orchestrator prepends it internally.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
