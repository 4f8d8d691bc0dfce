package server

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	gotReq contractx.ChatRequest
	emit   []contractx.Event
	text   string
	err    error
	calls  int
}

func (f *fakeRunner) Run(ctx context.Context, req contractx.ChatRequest, sink contractx.EventSink) (string, []contractx.Turn, error) {
	f.calls++
	f.gotReq = req
	for _, ev := range f.emit {
		_ = sink.Emit(ev)
	}
	return f.text, req.History, f.err
}

func newTestServer(t *testing.T, runner Runner) *httptest.Server {
	t.Helper()
	s, err := New(Config{Addr: ":0", AllowOrigins: []string{"*"}}, runner)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s.http.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postChat(t *testing.T, ts *httptest.Server, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /chat: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, string(raw)
}

func TestChatDecodesRequest(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		emit: []contractx.Event{{Type: contractx.EventToken, Text: "hi"}},
		text: "hi",
	}
	ts := newTestServer(t, runner)

	attachment := base64.StdEncoding.EncodeToString([]byte("%PDF-bytes"))
	resp, body := postChat(t, ts, `{
		"user_email": "alice@example.com",
		"message": "hello",
		"resume_bytes_b64": "`+attachment+`",
		"chat_history": [
			{"role": "user", "parts": [{"type": "text", "text": "earlier"}]},
			{"role": "assistant", "parts": [{"type": "text", "text": "noted"}]}
		]
	}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !strings.Contains(body, "event: token") {
		t.Fatalf("stream missing token event: %q", body)
	}

	if runner.gotReq.UserEmail != "alice@example.com" {
		t.Fatalf("UserEmail = %q", runner.gotReq.UserEmail)
	}
	if string(runner.gotReq.Attachment) != "%PDF-bytes" {
		t.Fatalf("Attachment = %q", runner.gotReq.Attachment)
	}
	if len(runner.gotReq.History) != 2 {
		t.Fatalf("History = %d turns, want 2", len(runner.gotReq.History))
	}
}

func TestChatRejectsMissingFields(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	ts := newTestServer(t, runner)

	for _, body := range []string{
		`{"message": "hello"}`,
		`{"user_email": "a@b.com"}`,
		`not json`,
	} {
		resp, _ := postChat(t, ts, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
	if runner.calls != 0 {
		t.Fatalf("runner called %d times for invalid requests", runner.calls)
	}
}

func TestChatRejectsBadBase64(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeRunner{})
	resp, _ := postChat(t, ts, `{"user_email": "a@b.com", "message": "hi", "resume_bytes_b64": "!!!"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatMalformedHistoryIsTerminalErrorEvent(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	ts := newTestServer(t, runner)

	resp, body := postChat(t, ts, `{
		"user_email": "a@b.com",
		"message": "hi",
		"chat_history": [{"role": "wizard", "parts": []}]
	}`)

	// The stream is already committed, so the rejection travels as an
	// error event rather than an HTTP status.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "event: error") || !strings.Contains(body, "conversation history rejected") {
		t.Fatalf("stream = %q", body)
	}
	if runner.calls != 0 {
		t.Fatal("runner must not be called when history is rejected")
	}
}

func TestChatWindowsLongHistory(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	ts := newTestServer(t, runner)

	var sb strings.Builder
	sb.WriteString(`{"user_email": "a@b.com", "message": "hi", "chat_history": [`)
	for i := 0; i < 30; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		if i%2 == 0 {
			sb.WriteString(`{"role": "user", "parts": [{"type": "text", "text": "q"}]}`)
		} else {
			sb.WriteString(`{"role": "assistant", "parts": [{"type": "text", "text": "a"}]}`)
		}
	}
	sb.WriteString(`]}`)

	resp, body := postChat(t, ts, sb.String())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if len(runner.gotReq.History) != 20 {
		t.Fatalf("windowed history = %d turns, want 20", len(runner.gotReq.History))
	}
	if runner.gotReq.History[0].Role != contractx.RoleUser {
		t.Fatalf("window starts on %s, want user", runner.gotReq.History[0].Role)
	}
}

func TestChatRunFailureEndsStreamWithErrorEvent(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		emit: []contractx.Event{{Type: contractx.EventToken, Text: "partial"}},
		err:  context.DeadlineExceeded,
	}
	ts := newTestServer(t, runner)

	resp, body := postChat(t, ts, `{"user_email": "a@b.com", "message": "hi"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	tokenIdx := strings.Index(body, "event: token")
	errIdx := strings.Index(body, "event: error")
	if tokenIdx == -1 || errIdx == -1 || errIdx < tokenIdx {
		t.Fatalf("stream = %q", body)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeRunner{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
