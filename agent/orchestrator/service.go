// Package orchestrator is the stateless request core: it takes a validated
// conversation window plus a new user message, runs the reasoning loop with
// zero or more toolbox calls, and emits typed events as it goes. Nothing is
// persisted here; the updated turn log is handed back to the caller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

// defaultMaxToolRounds bounds the reasoning loop; a model that keeps
// requesting tools past this is treated as a failed request.
const defaultMaxToolRounds = 8

type Orchestrator struct {
	client       *openaisdk.Client
	model        string
	toolbox      contractx.Toolbox
	tools        []openaisdk.ChatCompletionToolParam
	instructions string

	maxTokens   int64
	temperature float64

	maxToolRounds int
	now           func() time.Time
}

// Option adjusts orchestrator construction.
type Option func(*Orchestrator)

// WithMaxCompletionTokens caps the tokens generated per completion.
func WithMaxCompletionTokens(n int64) Option {
	return func(o *Orchestrator) { o.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Orchestrator) { o.temperature = t }
}

func New(
	client *openaisdk.Client,
	model string,
	toolbox contractx.Toolbox,
	tools []openaisdk.ChatCompletionToolParam,
	instructions string,
	opts ...Option,
) (*Orchestrator, error) {
	if client == nil {
		return nil, errors.New("model client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("model name is required")
	}
	if toolbox == nil {
		return nil, errors.New("toolbox is required")
	}

	o := &Orchestrator{
		client:        client,
		model:         strings.TrimSpace(model),
		toolbox:       toolbox,
		tools:         tools,
		instructions:  strings.TrimSpace(instructions),
		maxToolRounds: defaultMaxToolRounds,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run handles one request. It returns the final assistant text and the
// updated turn log for the caller to persist. Tool failures are folded into
// tool-result turns for the model to explain; only transport-level failures
// return an error, which the server reports as a terminal error event.
func (o *Orchestrator) Run(ctx context.Context, req contractx.ChatRequest, sink contractx.EventSink) (string, []contractx.Turn, error) {
	if strings.TrimSpace(req.UserEmail) == "" {
		return "", nil, errors.New("owner identity is required")
	}
	if sink == nil {
		return "", nil, errors.New("event sink is required")
	}

	msgs := buildMessages(o.instructions, req)
	turns := append([]contractx.Turn(nil), req.History...)
	turns = append(turns, newUserTurn(req, o.now()))

	for round := 0; round < o.maxToolRounds; round++ {
		msg, err := o.step(ctx, msgs, sink)
		if err != nil {
			return "", nil, err
		}

		if len(msg.ToolCalls) == 0 {
			turns = append(turns, contractx.Turn{
				Role:  contractx.RoleAssistant,
				At:    o.now(),
				Parts: []contractx.Part{{Type: contractx.PartText, Text: msg.Content}},
			})
			return msg.Content, turns, nil
		}

		msgs = append(msgs, msg.ToParam())
		turns = append(turns, assistantCallTurn(msg, o.now()))

		resultTurn := contractx.Turn{Role: contractx.RoleToolResult, At: o.now()}
		for _, tc := range msg.ToolCalls {
			// tool_call goes out at dispatch time; the specialist has no
			// partial-progress events of its own.
			_ = sink.Emit(contractx.Event{
				Type: contractx.EventToolCall,
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			})

			call := contractx.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: tc.Function.Arguments}
			result, err := o.toolbox.Dispatch(ctx, req.UserEmail, call, req.Attachment)
			if err != nil {
				return "", nil, fmt.Errorf("tool %s: %w", tc.Function.Name, err)
			}

			content := result.Content
			isError := result.Error != ""
			if isError {
				content = result.Error
				log.Warn().Str("tool", tc.Function.Name).Str("error", result.Error).Msg("tool call failed")
				msgs = append(msgs, openaisdk.ToolMessage("ERROR: "+content, tc.ID))
			} else {
				msgs = append(msgs, openaisdk.ToolMessage(content, tc.ID))
			}

			resultTurn.Parts = append(resultTurn.Parts, contractx.Part{
				Type:     contractx.PartToolResult,
				ToolName: tc.Function.Name,
				CallID:   tc.ID,
				Result:   content,
				IsError:  isError,
			})

			if result.URL != "" {
				_ = sink.Emit(contractx.Event{Type: contractx.EventPDFGenerated, URL: result.URL})
			}
			if result.Preps != nil {
				_ = sink.Emit(contractx.Event{Type: contractx.EventPrepList, Preps: result.Preps})
			}
		}
		turns = append(turns, resultTurn)
	}

	return "", nil, fmt.Errorf("reasoning loop exceeded %d tool rounds", o.maxToolRounds)
}

// step streams one completion, emitting token events per content delta, and
// returns the accumulated message.
func (o *Orchestrator) step(ctx context.Context, msgs []openaisdk.ChatCompletionMessageParamUnion, sink contractx.EventSink) (openaisdk.ChatCompletionMessage, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(o.model),
		Messages: msgs,
		Tools:    o.tools,
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(o.maxTokens)
	}
	if o.temperature > 0 {
		params.Temperature = openaisdk.Float(o.temperature)
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var acc openaisdk.ChatCompletionAccumulator
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				_ = sink.Emit(contractx.Event{Type: contractx.EventToken, Text: delta})
			}
		}
	}
	if err := stream.Err(); err != nil {
		return openaisdk.ChatCompletionMessage{}, fmt.Errorf("model stream: %w", err)
	}
	if len(acc.Choices) == 0 {
		return openaisdk.ChatCompletionMessage{}, errors.New("model returned no choices")
	}
	return acc.Choices[0].Message, nil
}

func assistantCallTurn(msg openaisdk.ChatCompletionMessage, at time.Time) contractx.Turn {
	turn := contractx.Turn{Role: contractx.RoleAssistant, At: at}
	if msg.Content != "" {
		turn.Parts = append(turn.Parts, contractx.Part{Type: contractx.PartText, Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		turn.Parts = append(turn.Parts, contractx.Part{
			Type:     contractx.PartToolCall,
			ToolName: tc.Function.Name,
			CallID:   tc.ID,
			Args:     tc.Function.Arguments,
		})
	}
	return turn
}
