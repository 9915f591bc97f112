// Package agent wraps the external LLM collaborator. An Agent accepts the
// user's text plus a memory handle and produces reply fragments over a
// channel; everything about the model's reasoning is the endpoint's business.
package agent

import (
	"context"
	"strings"

	"household-helper/internal/memory"
)

// Fragment is one element of a reply stream. A non-nil Err is terminal; the
// channel is closed after the final element either way.
type Fragment struct {
	Delta string
	Err   error
}

type Agent struct {
	name         string
	systemPrompt string
	client       *Client
	cfg          ChatConfig
}

func New(name, systemPrompt string, client *Client, cfg ChatConfig) *Agent {
	return &Agent{
		name:         name,
		systemPrompt: systemPrompt,
		client:       client,
		cfg:          cfg,
	}
}

func (a *Agent) Name() string { return a.name }

// Stream produces the reply to text given the session's memory handle. The
// returned channel yields fragments in order and is closed on completion; a
// fragment with Err set is the last element of a failed stream.
func (a *Agent) Stream(ctx context.Context, text string, handle *memory.Handle) <-chan Fragment {
	out := make(chan Fragment)
	go func() {
		defer close(out)

		messages := a.buildMessages(ctx, text, handle)
		_, err := a.client.StreamComplete(ctx, a.cfg, messages, func(chunk string) error {
			select {
			case out <- Fragment{Delta: chunk}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			select {
			case out <- Fragment{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

// buildMessages assembles the prompt: persona, then anything the long-term
// memory recalls for this text, then the session transcript, then the turn
// itself. Recall failures degrade to a transcript-only prompt rather than
// failing the turn.
func (a *Agent) buildMessages(ctx context.Context, text string, handle *memory.Handle) []ChatMessage {
	transcript := handle.Transcript()
	// Callers append the in-flight turn to the handle as soon as it is
	// persisted, so it may already sit at the tail of the transcript. It is
	// re-added below as the closing user message; keep it out of the replay.
	trimmed := strings.TrimSpace(text)
	if n := len(transcript); n > 0 {
		last := transcript[n-1]
		if (last.Role == "" || last.Role == "user") && last.Content == trimmed {
			transcript = transcript[:n-1]
		}
	}
	messages := make([]ChatMessage, 0, len(transcript)+3)
	messages = append(messages, ChatMessage{Role: "system", Content: a.systemPrompt})

	if recalled, err := handle.Recall(ctx, text); err == nil && len(recalled) > 0 {
		var sb strings.Builder
		sb.WriteString("Relevant context from past conversations with this user:\n")
		for _, item := range recalled {
			sb.WriteString("---\n")
			sb.WriteString(item)
			sb.WriteString("\n")
		}
		messages = append(messages, ChatMessage{Role: "system", Content: sb.String()})
	}

	for _, msg := range transcript {
		role := msg.Role
		if role == "" {
			role = "user"
		}
		messages = append(messages, ChatMessage{Role: role, Content: msg.Content})
	}

	messages = append(messages, ChatMessage{Role: "user", Content: trimmed})
	return messages
}
