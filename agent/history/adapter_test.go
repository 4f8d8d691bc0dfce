package history

import (
	"errors"
	"fmt"
	"testing"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

func userTurn(text string) contractx.Turn {
	return contractx.Turn{
		Role:  contractx.RoleUser,
		Parts: []contractx.Part{{Type: contractx.PartText, Text: text}},
	}
}

func assistantTurn(text string) contractx.Turn {
	return contractx.Turn{
		Role:  contractx.RoleAssistant,
		Parts: []contractx.Part{{Type: contractx.PartText, Text: text}},
	}
}

func callTurn(callID, tool string) contractx.Turn {
	return contractx.Turn{
		Role: contractx.RoleAssistant,
		Parts: []contractx.Part{
			{Type: contractx.PartToolCall, CallID: callID, ToolName: tool, Args: "{}"},
		},
	}
}

func resultTurn(callID, tool string) contractx.Turn {
	return contractx.Turn{
		Role: contractx.RoleToolResult,
		Parts: []contractx.Part{
			{Type: contractx.PartToolResult, CallID: callID, ToolName: tool, Result: "ok"},
		},
	}
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "null", "  "} {
		turns, err := Parse([]byte(raw))
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", raw, err)
		}
		if len(turns) != 0 {
			t.Fatalf("Parse(%q) = %d turns, want 0", raw, len(turns))
		}
	}
}

func TestParseMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("{not json"))
	if !errors.Is(err, contractx.ErrMalformedHistory) {
		t.Fatalf("Parse() error = %v, want ErrMalformedHistory", err)
	}
}

func TestParseUnknownRole(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`[{"role":"system","parts":[{"type":"text","text":"hi"}]}]`))
	if !errors.Is(err, contractx.ErrMalformedHistory) {
		t.Fatalf("Parse() error = %v, want ErrMalformedHistory", err)
	}
}

func TestParseToolPartWithoutCallID(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`[{"role":"assistant","parts":[{"type":"tool_call","tool_name":"get_resume"}]}]`))
	if !errors.Is(err, contractx.ErrMalformedHistory) {
		t.Fatalf("Parse() error = %v, want ErrMalformedHistory", err)
	}
}

func TestParsePreservesOrder(t *testing.T) {
	t.Parallel()

	raw := []byte(`[
		{"role":"user","parts":[{"type":"text","text":"first"}]},
		{"role":"assistant","parts":[{"type":"text","text":"second"}]},
		{"role":"user","parts":[{"type":"text","text":"third"}]}
	]`)
	turns, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("Parse() = %d turns, want 3", len(turns))
	}
	if turns[0].Parts[0].Text != "first" || turns[2].Parts[0].Text != "third" {
		t.Fatalf("Parse() reordered turns: %+v", turns)
	}
}

func TestWindowShortLogUnchanged(t *testing.T) {
	t.Parallel()

	turns := []contractx.Turn{userTurn("a"), assistantTurn("b")}
	got := Window(turns, MaxTurns)
	if len(got) != 2 {
		t.Fatalf("Window() = %d turns, want 2", len(got))
	}
}

func TestWindowStartsOnUserTurn(t *testing.T) {
	t.Parallel()

	// 30 alternating turns; a naive last-20 cut lands on an assistant turn.
	var turns []contractx.Turn
	for i := 0; i < 15; i++ {
		turns = append(turns, userTurn(fmt.Sprintf("u%d", i)), assistantTurn(fmt.Sprintf("a%d", i)))
	}
	got := Window(turns, MaxTurns)
	if got[0].Role != contractx.RoleUser {
		t.Fatalf("window starts on %s, want user", got[0].Role)
	}
	if len(got) > MaxTurns+1 {
		t.Fatalf("window length %d exceeds the cap by more than the single-turn extension", len(got))
	}
}

func TestWindowNeverSplitsToolPair(t *testing.T) {
	t.Parallel()

	// Build a log where the naive cut lands right on a tool-result turn.
	var turns []contractx.Turn
	turns = append(turns, userTurn("start"))
	turns = append(turns, callTurn("call-1", "get_resume"))
	turns = append(turns, resultTurn("call-1", "get_resume"))
	turns = append(turns, assistantTurn("done with tools"))
	for i := 0; i < 30; i++ {
		turns = append(turns, userTurn(fmt.Sprintf("u%d", i)), assistantTurn(fmt.Sprintf("a%d", i)))
	}
	// Put a tool exchange straddling the eventual boundary.
	cut := len(turns) - MaxTurns
	turns[cut] = resultTurn("call-2", "list_preps")
	turns[cut-1] = callTurn("call-2", "list_preps")

	got := Window(turns, MaxTurns)
	if got[0].Role != contractx.RoleUser {
		t.Fatalf("window starts on %s, want user", got[0].Role)
	}
	assertPaired(t, got)
}

func TestWindowPairingInvariant(t *testing.T) {
	t.Parallel()

	var turns []contractx.Turn
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("call-%d", i)
		turns = append(turns,
			userTurn(fmt.Sprintf("u%d", i)),
			callTurn(id, "get_resume"),
			resultTurn(id, "get_resume"),
			assistantTurn(fmt.Sprintf("a%d", i)),
		)
	}
	got := Window(turns, MaxTurns)
	if got[0].Role != contractx.RoleUser {
		t.Fatalf("window starts on %s, want user", got[0].Role)
	}
	assertPaired(t, got)
}

// 25 turns with a tool pair at positions 3-4 (1-based); the naive last-20
// cut lands between the pair and turn 5.
func TestWindowBoundaryScenario(t *testing.T) {
	t.Parallel()

	turns := []contractx.Turn{
		userTurn("t1"),
		assistantTurn("t2"),
		callTurn("call-a", "generate_prep"),  // t3
		resultTurn("call-a", "generate_prep"), // t4
	}
	turns = append(turns, userTurn("t5"))
	for i := 6; i <= 25; i += 2 {
		turns = append(turns, assistantTurn(fmt.Sprintf("t%d", i)), userTurn(fmt.Sprintf("t%d", i+1)))
	}
	turns = turns[:25]

	got := Window(turns, MaxTurns)
	if got[0].Role != contractx.RoleUser {
		t.Fatalf("window starts on %s, want user", got[0].Role)
	}
	// Turn 5 is a user turn and no pair is split, so the window must not
	// reach back into the tool exchange.
	if got[0].Parts[0].Text == "t3" || got[0].Parts[0].Text == "t4" {
		t.Fatalf("window reached into the tool pair unnecessarily, starts at %q", got[0].Parts[0].Text)
	}
	assertPaired(t, got)
}

func TestWindowWholeLogWhenNoValidCut(t *testing.T) {
	t.Parallel()

	// A log that never starts a clean boundary inside the cap falls back to
	// the entire log.
	var turns []contractx.Turn
	turns = append(turns, userTurn("only user"))
	for i := 0; i < 30; i++ {
		turns = append(turns, assistantTurn(fmt.Sprintf("a%d", i)))
	}
	got := Window(turns, MaxTurns)
	if len(got) != len(turns) {
		t.Fatalf("Window() = %d turns, want the whole log (%d)", len(got), len(turns))
	}
}

func assertPaired(t *testing.T, turns []contractx.Turn) {
	t.Helper()

	calls := make(map[string]bool)
	for _, turn := range turns {
		for _, part := range turn.Parts {
			switch part.Type {
			case contractx.PartToolCall:
				calls[part.CallID] = false
			case contractx.PartToolResult:
				if _, ok := calls[part.CallID]; !ok {
					t.Fatalf("orphaned tool result %s in window", part.CallID)
				}
				calls[part.CallID] = true
			}
		}
	}
	for id, resolved := range calls {
		if !resolved {
			t.Fatalf("tool call %s has no result in window", id)
		}
	}
}
