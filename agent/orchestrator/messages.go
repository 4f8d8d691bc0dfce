package orchestrator

import (
	"encoding/base64"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

// uploadInstruction is appended to the user text whenever the request
// carries a resume attachment, steering the model toward the storage tool.
const uploadInstruction = "\n\nThe user has attached a PDF resume. Call the `upload_resume` tool."

func buildMessages(instructions string, req contractx.ChatRequest) []openaisdk.ChatCompletionMessageParamUnion {
	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	msgs = append(msgs, openaisdk.SystemMessage(instructions))
	for _, turn := range req.History {
		msgs = append(msgs, turnMessages(turn)...)
	}
	msgs = append(msgs, newUserMessage(req))
	return msgs
}

// turnMessages converts one history turn into its chat message form. A
// tool-result turn expands to one tool message per result part.
func turnMessages(turn contractx.Turn) []openaisdk.ChatCompletionMessageParamUnion {
	switch turn.Role {
	case contractx.RoleUser:
		var sb strings.Builder
		for _, part := range turn.Parts {
			switch part.Type {
			case contractx.PartText:
				sb.WriteString(part.Text)
			case contractx.PartFile:
				// Persisted history keeps only the reference; the bytes
				// were consumed on the request that carried them.
				sb.WriteString("\n[attached file: " + part.FileName + "]")
			}
		}
		return []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage(sb.String())}

	case contractx.RoleAssistant:
		var p openaisdk.ChatCompletionAssistantMessageParam
		var sb strings.Builder
		for _, part := range turn.Parts {
			switch part.Type {
			case contractx.PartText:
				sb.WriteString(part.Text)
			case contractx.PartToolCall:
				p.ToolCalls = append(p.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
					ID: part.CallID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      part.ToolName,
						Arguments: part.Args,
					},
				})
			}
		}
		if text := sb.String(); text != "" {
			p.Content.OfString = openaisdk.String(text)
		}
		return []openaisdk.ChatCompletionMessageParamUnion{{OfAssistant: &p}}

	case contractx.RoleToolResult:
		var msgs []openaisdk.ChatCompletionMessageParamUnion
		for _, part := range turn.Parts {
			if part.Type != contractx.PartToolResult {
				continue
			}
			content := part.Result
			if part.IsError {
				content = "ERROR: " + content
			}
			msgs = append(msgs, openaisdk.ToolMessage(content, part.CallID))
		}
		return msgs
	}
	return nil
}

// newUserMessage builds the live request's user message. An attachment is
// carried as a file content part on this turn, not as a separate tool call.
func newUserMessage(req contractx.ChatRequest) openaisdk.ChatCompletionMessageParamUnion {
	if len(req.Attachment) == 0 {
		return openaisdk.UserMessage(req.Message)
	}

	parts := []openaisdk.ChatCompletionContentPartUnionParam{
		openaisdk.TextContentPart(req.Message + uploadInstruction),
		openaisdk.FileContentPart(openaisdk.ChatCompletionContentPartFileFileParam{
			Filename: openaisdk.String("resume.pdf"),
			FileData: openaisdk.String("data:application/pdf;base64," + base64.StdEncoding.EncodeToString(req.Attachment)),
		}),
	}
	return openaisdk.UserMessage(parts)
}

func newUserTurn(req contractx.ChatRequest, at time.Time) contractx.Turn {
	turn := contractx.Turn{
		Role:  contractx.RoleUser,
		At:    at,
		Parts: []contractx.Part{{Type: contractx.PartText, Text: req.Message}},
	}
	if len(req.Attachment) > 0 {
		turn.Parts = append(turn.Parts, contractx.Part{
			Type:      contractx.PartFile,
			FileName:  "resume.pdf",
			MediaType: "application/pdf",
		})
	}
	return turn
}
