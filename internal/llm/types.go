package llm

import "context"

// Roles accepted in a conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of chat history. Immutable once appended.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Fragment is one streamed piece of assistant output.
type Fragment struct {
	Content string
	Done    bool
}

// Client is the contract for the streaming chat backend.
type Client interface {
	// Chat streams the assistant response for the given history, invoking fn
	// for every fragment until the backend signals completion or fn returns
	// an error.
	Chat(ctx context.Context, model string, messages []Message, fn func(Fragment) error) error
	// Ping reports backend liveness; called before opening a chat stream.
	Ping(ctx context.Context) error
	// Models lists the models the backend can serve.
	Models(ctx context.Context) ([]string, error)
}
