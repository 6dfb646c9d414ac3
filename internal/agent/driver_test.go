package agent

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// fakeAgentScript writes a shell script masquerading as the agent binary
// that emits a fixed stream-json transcript, so Driver.Run can be tested
// without a real external agent.
func fakeAgentScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake agent script requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-agent.sh")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake agent script: %v", err)
	}
	return path
}

type recordingToolServer struct {
	name    string
	calls   []string
}

func (r *recordingToolServer) Name() string { return r.name }
func (r *recordingToolServer) Handle(ctx context.Context, input []byte) error {
	r.calls = append(r.calls, string(input))
	return nil
}

func TestDriver_Run_StreamsTextAndDispatchesToolServer(t *testing.T) {
	transcript := `{"type":"stream_event","event":{"type":"content_block_start","content_block":{"type":"tool_use","name":"save_prd","input":{"id":"demo"}}}}
{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"hello "}}}
{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"world"}}}
{"type":"result","result":{"permission_denials":[]}}
`
	script := fakeAgentScript(t, "cat <<'EOF'\n"+transcript+"EOF\nexit 0\n")

	server := &recordingToolServer{name: "save_prd"}
	var events []Event
	d := New()
	res, err := d.Run(context.Background(), RunConfig{
		Command:     script,
		Prompt:      "do the thing",
		WorkDir:     t.TempDir(),
		Timeout:     5 * time.Second,
		ToolServers: []ToolServer{server},
		OnEvent:     func(e Event) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success || res.ExitCode != 0 || res.TimedOut {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Output != "hello world" {
		t.Errorf("expected accumulated text %q, got %q", "hello world", res.Output)
	}
	if len(server.calls) != 1 {
		t.Fatalf("expected exactly 1 tool call, got %d", len(server.calls))
	}
	if server.calls[0] != `{"id":"demo"}` {
		t.Errorf("unexpected tool input: %s", server.calls[0])
	}

	var sawToolUse bool
	for _, e := range events {
		if e.Kind == EventToolUse && e.Text == "save_prd" {
			sawToolUse = true
		}
	}
	if !sawToolUse {
		t.Error("expected an EventToolUse notification for save_prd")
	}
}

func TestDriver_Run_NonZeroExit(t *testing.T) {
	script := fakeAgentScript(t, "echo '{\"type\":\"result\",\"result\":{}}'\nexit 3\n")
	d := New()
	res, err := d.Run(context.Background(), RunConfig{
		Command: script,
		Prompt:  "fail please",
		WorkDir: t.TempDir(),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Success {
		t.Fatal("expected Success=false on non-zero exit")
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
}

func TestDriver_Run_Timeout(t *testing.T) {
	script := fakeAgentScript(t, "sleep 5\n")
	d := New()
	res, err := d.Run(context.Background(), RunConfig{
		Command: script,
		Prompt:  "take too long",
		WorkDir: t.TempDir(),
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("expected TimedOut=true")
	}
	if res.Success {
		t.Fatal("expected Success=false on timeout")
	}
}

func TestDriver_Run_PermissionDenialEvent(t *testing.T) {
	transcript := `{"type":"result","result":{"permission_denials":[{"tool_name":"Bash","input":"rm -rf /"}]}}
`
	script := fakeAgentScript(t, "cat <<'EOF'\n"+transcript+"EOF\n")
	var events []Event
	d := New()
	_, err := d.Run(context.Background(), RunConfig{
		Command: script,
		Prompt:  "x",
		WorkDir: t.TempDir(),
		Timeout: 5 * time.Second,
		OnEvent: func(e Event) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var found bool
	for _, e := range events {
		if e.Kind == EventDenial {
			found = true
			if e.Text != "Bash(rm -rf /)" {
				t.Errorf("unexpected denial text: %q", e.Text)
			}
		}
	}
	if !found {
		t.Fatal("expected an EventDenial")
	}
}
