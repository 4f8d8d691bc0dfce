// Package history converts an externally supplied conversation log into the
// orchestrator's turn representation and bounds it to a protocol-valid window.
package history

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

// MaxTurns is the hard cap on the conversation window. The cap is relaxed
// only to keep the window starting on a user turn with every tool call
// paired with its result.
const MaxTurns = 20

// Parse deserializes a raw JSON log into the internal turn sequence,
// preserving order. Any structural problem is ErrMalformedHistory; there is
// no partial recovery.
func Parse(raw []byte) ([]contractx.Turn, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var turns []contractx.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrMalformedHistory, err)
	}

	for i, turn := range turns {
		switch turn.Role {
		case contractx.RoleUser, contractx.RoleAssistant, contractx.RoleToolResult:
		default:
			return nil, fmt.Errorf("%w: turn %d has unknown role %q", contractx.ErrMalformedHistory, i, turn.Role)
		}
		for j, part := range turn.Parts {
			switch part.Type {
			case contractx.PartText, contractx.PartFile:
			case contractx.PartToolCall, contractx.PartToolResult:
				if strings.TrimSpace(part.CallID) == "" {
					return nil, fmt.Errorf("%w: turn %d part %d is missing a call id", contractx.ErrMalformedHistory, i, j)
				}
			default:
				return nil, fmt.Errorf("%w: turn %d part %d has unknown type %q", contractx.ErrMalformedHistory, i, j, part.Type)
			}
		}
	}

	return turns, nil
}

// Window returns a suffix of turns holding at most max turns. The start is
// extended backward past the cap whenever the naive cut would begin on a
// non-user turn or strand a tool result from its call. If no valid start
// exists the entire log is returned.
func Window(turns []contractx.Turn, max int) []contractx.Turn {
	if len(turns) == 0 || max <= 0 {
		return turns
	}

	start := 0
	if len(turns) > max {
		start = len(turns) - max
	}

	for start > 0 && !validStart(turns, start) {
		start--
	}
	if start == 0 {
		return turns
	}
	return turns[start:]
}

// validStart reports whether turns[start:] begins on a user turn and
// contains no tool result whose call lies before the boundary.
func validStart(turns []contractx.Turn, start int) bool {
	if turns[start].Role != contractx.RoleUser {
		return false
	}

	calls := make(map[string]struct{})
	for _, turn := range turns[start:] {
		for _, part := range turn.Parts {
			switch part.Type {
			case contractx.PartToolCall:
				calls[part.CallID] = struct{}{}
			case contractx.PartToolResult:
				if _, ok := calls[part.CallID]; !ok {
					return false
				}
			}
		}
	}
	return true
}
