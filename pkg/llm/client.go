// Package llm defines the LLMClient port: a synchronous chat request
// against an external language model, with an optional streaming
// variant, plus tolerant parsing of the structured JSON outputs the
// investigation engine asks the model to produce.
package llm

import "context"

// Message is one turn in a chat conversation.
type Message struct {
	Role       string // "system" | "user" | "assistant" | "tool"
	Content    string
	ToolCalls  []ToolCallProposal // assistant messages only
	ToolCallID string             // tool-result messages only
	ToolName   string             // tool-result messages only
}

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolSpec describes one tool the model may choose to call.
type ToolSpec struct {
	Name             string
	Description      string
	ParametersSchema string // JSON Schema, serialized
}

// ToolCallProposal is a tool invocation the model asked for. Per the
// port's contract, this is a proposal only — executing it is the
// caller's responsibility, never the LLMClient's.
type ToolCallProposal struct {
	ID        string
	Name      string
	Arguments string // JSON-encoded argument object
}

// ChatResponse is the synchronous result of a Chat call.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCallProposal
	Thinking  string // optional internal reasoning trace, may be empty
}

// StreamChunkKind tags the variant of a StreamChunk.
type StreamChunkKind string

const (
	ChunkText     StreamChunkKind = "text"
	ChunkToolCall StreamChunkKind = "tool_call"
	ChunkThinking StreamChunkKind = "thinking"
	ChunkDone     StreamChunkKind = "done"
)

// StreamChunk is one element of a ChatStream sequence.
type StreamChunk struct {
	Kind     StreamChunkKind
	Text     string
	Thinking string
	ToolCall *ToolCallProposal
	Err      error // set only on the terminal chunk of a failed stream
}

// Client is the LLMClient port. Implementations wrap a concrete
// transport (HTTP, gRPC, in-process SDK).
type Client interface {
	// Chat performs one synchronous request/response exchange.
	Chat(ctx context.Context, systemPrompt, userPrompt string, tools []ToolSpec) (*ChatResponse, error)

	// ChatStream is optional; implementations that cannot stream should
	// return ErrStreamingUnsupported.
	ChatStream(ctx context.Context, systemPrompt, userPrompt string, tools []ToolSpec) (<-chan StreamChunk, error)
}

// ErrStreamingUnsupported is returned by ChatStream implementations that
// only support the synchronous Chat call.
var ErrStreamingUnsupported = streamingUnsupportedError{}

type streamingUnsupportedError struct{}

func (streamingUnsupportedError) Error() string { return "llm: streaming not supported by this client" }

// DrainStream consumes a ChatStream channel into a single ChatResponse,
// for callers that want streaming semantics internally but a synchronous
// result at the call site.
func DrainStream(ch <-chan StreamChunk) (*ChatResponse, error) {
	resp := &ChatResponse{}
	var text, thinking []byte
	for chunk := range ch {
		switch chunk.Kind {
		case ChunkText:
			text = append(text, chunk.Text...)
		case ChunkThinking:
			thinking = append(thinking, chunk.Thinking...)
		case ChunkToolCall:
			if chunk.ToolCall != nil {
				resp.ToolCalls = append(resp.ToolCalls, *chunk.ToolCall)
			}
		case ChunkDone:
			if chunk.Err != nil {
				return nil, chunk.Err
			}
		}
	}
	resp.Content = string(text)
	resp.Thinking = string(thinking)
	return resp, nil
}
