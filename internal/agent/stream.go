package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// streamResult accumulates the text and side-effects of one processStream call.
type streamResult struct {
	Text string
}

// processStream reads stream-json lines from stdout, forwards chunk/tool
// events to onEvent, and dispatches tool_use blocks whose name matches a
// registered ToolServer synchronously, in emission order — the same
// content_block_start/content_block_delta vocabulary the teacher's
// dispatch/stream.go already parses, generalized here to invoke a
// caller-supplied tool server instead of only logging tool use.
func processStream(ctx context.Context, stdout io.Reader, servers map[string]ToolServer, onEvent func(Event)) (*streamResult, error) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)

	var result streamResult
	var textBuf strings.Builder

	for scanner.Scan() {
		if ctx.Err() != nil {
			result.Text = textBuf.String()
			return &result, nil
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}

		switch event.Type {
		case "stream_event":
			handleStreamEvent(ctx, &event, &textBuf, servers, onEvent)
		case "result":
			handleResultEvent(&event, onEvent)
		}
	}

	if err := scanner.Err(); err != nil {
		result.Text = textBuf.String()
		return &result, fmt.Errorf("reading agent stream: %w", err)
	}

	result.Text = textBuf.String()
	return &result, nil
}

// streamEvent is the top-level JSON structure of one stream-json line.
type streamEvent struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
	Result json.RawMessage `json:"result"`
}

type nestedEvent struct {
	Type         string        `json:"type"`
	ContentBlock *contentBlock `json:"content_block"`
	Delta        *deltaBlock   `json:"delta"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type deltaBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type resultPayload struct {
	PermissionDenials []permDenialEntry `json:"permission_denials"`
}

type permDenialEntry struct {
	ToolName string `json:"tool_name"`
	Input    string `json:"input"`
}

func handleStreamEvent(ctx context.Context, event *streamEvent, textBuf *strings.Builder, servers map[string]ToolServer, onEvent func(Event)) {
	if event.Event == nil {
		return
	}
	var nested nestedEvent
	if err := json.Unmarshal(event.Event, &nested); err != nil {
		return
	}

	switch nested.Type {
	case "content_block_delta":
		if nested.Delta != nil && nested.Delta.Type == "text_delta" {
			textBuf.WriteString(nested.Delta.Text)
			emit(onEvent, Event{Kind: EventChunk, Text: nested.Delta.Text})
		}

	case "content_block_start":
		if nested.ContentBlock == nil || nested.ContentBlock.Type != "tool_use" {
			return
		}
		name := nested.ContentBlock.Name
		input := []byte(nested.ContentBlock.Input)
		emit(onEvent, Event{Kind: EventToolUse, Text: name, Input: string(input)})

		if srv, ok := servers[name]; ok {
			if err := srv.Handle(ctx, input); err != nil {
				emit(onEvent, Event{Kind: EventToolError, Text: fmt.Sprintf("%s: %v", name, err)})
			}
		}
	}
}

func handleResultEvent(event *streamEvent, onEvent func(Event)) {
	if event.Result == nil {
		return
	}
	var payload resultPayload
	if err := json.Unmarshal(event.Result, &payload); err != nil {
		return
	}
	for _, d := range payload.PermissionDenials {
		text := d.ToolName
		if d.Input != "" {
			text = fmt.Sprintf("%s(%s)", d.ToolName, d.Input)
		}
		emit(onEvent, Event{Kind: EventDenial, Text: text})
	}
}

func emit(onEvent func(Event), e Event) {
	if onEvent != nil {
		onEvent(e)
	}
}
