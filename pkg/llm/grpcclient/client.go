// Package grpcclient implements llm.Client against an external LLM
// sidecar over gRPC, mirroring the teacher's Python-sidecar pattern
// (pkg/agent/llm_grpc.go) but built without a protoc/buf code-generation
// step: requests and responses travel as google.protobuf.Struct
// envelopes (see proto/llm.proto), which already implement proto.Message
// and so work with grpc.ClientConn.Invoke/NewStream directly.
package grpcclient

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sreinvestigator/investigator/pkg/llm"
)

const (
	methodChat       = "/sreinvestigator.llm.LLMService/Chat"
	methodChatStream = "/sreinvestigator.llm.LLMService/ChatStream"
)

// Client implements llm.Client by calling an LLM sidecar via gRPC.
type Client struct {
	conn *grpc.ClientConn
}

// New dials addr with insecure (plaintext) transport credentials. The
// sidecar is expected to run alongside the investigation engine
// (localhost or same pod); if it is ever reached across an untrusted
// network this must be upgraded to TLS.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpcclient: dialing %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Chat implements llm.Client.
func (c *Client) Chat(ctx context.Context, systemPrompt, userPrompt string, tools []llm.ToolSpec) (*llm.ChatResponse, error) {
	req, err := requestStruct(systemPrompt, userPrompt, tools)
	if err != nil {
		return nil, err
	}
	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, methodChat, req, resp); err != nil {
		return nil, fmt.Errorf("grpcclient: Chat RPC: %w", err)
	}
	return responseFromStruct(resp), nil
}

// ChatStream implements llm.Client.
func (c *Client) ChatStream(ctx context.Context, systemPrompt, userPrompt string, tools []llm.ToolSpec) (<-chan llm.StreamChunk, error) {
	req, err := requestStruct(systemPrompt, userPrompt, tools)
	if err != nil {
		return nil, err
	}

	desc := &grpc.StreamDesc{ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, methodChatStream)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: opening ChatStream: %w", err)
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, fmt.Errorf("grpcclient: sending ChatStream request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("grpcclient: closing ChatStream send side: %w", err)
	}

	ch := make(chan llm.StreamChunk, 32)
	go func() {
		defer close(ch)
		for {
			msg := &structpb.Struct{}
			err := stream.RecvMsg(msg)
			if err == io.EOF {
				ch <- llm.StreamChunk{Kind: llm.ChunkDone}
				return
			}
			if err != nil {
				ch <- llm.StreamChunk{Kind: llm.ChunkDone, Err: err}
				return
			}
			for _, c := range chunksFromStruct(msg) {
				select {
				case ch <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func requestStruct(systemPrompt, userPrompt string, tools []llm.ToolSpec) (*structpb.Struct, error) {
	toolList := make([]any, 0, len(tools))
	for _, t := range tools {
		toolList = append(toolList, map[string]any{
			"name":              t.Name,
			"description":       t.Description,
			"parameters_schema": t.ParametersSchema,
		})
	}
	s, err := structpb.NewStruct(map[string]any{
		"system_prompt": systemPrompt,
		"user_prompt":   userPrompt,
		"tools":         toolList,
	})
	if err != nil {
		return nil, fmt.Errorf("grpcclient: building request struct: %w", err)
	}
	return s, nil
}

func responseFromStruct(s *structpb.Struct) *llm.ChatResponse {
	fields := s.GetFields()
	resp := &llm.ChatResponse{
		Content:  fields["content"].GetStringValue(),
		Thinking: fields["thinking"].GetStringValue(),
	}
	for _, v := range fields["tool_calls"].GetListValue().GetValues() {
		tc := v.GetStructValue().GetFields()
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCallProposal{
			ID:        tc["id"].GetStringValue(),
			Name:      tc["name"].GetStringValue(),
			Arguments: tc["arguments"].GetStringValue(),
		})
	}
	return resp
}

func chunksFromStruct(s *structpb.Struct) []llm.StreamChunk {
	fields := s.GetFields()
	kind := fields["kind"].GetStringValue()
	switch kind {
	case "text":
		return []llm.StreamChunk{{Kind: llm.ChunkText, Text: fields["text"].GetStringValue()}}
	case "thinking":
		return []llm.StreamChunk{{Kind: llm.ChunkThinking, Thinking: fields["thinking"].GetStringValue()}}
	case "tool_call":
		tc := fields["tool_call"].GetStructValue().GetFields()
		return []llm.StreamChunk{{Kind: llm.ChunkToolCall, ToolCall: &llm.ToolCallProposal{
			ID:        tc["id"].GetStringValue(),
			Name:      tc["name"].GetStringValue(),
			Arguments: tc["arguments"].GetStringValue(),
		}}}
	default:
		return nil
	}
}
