package events

import (
	"encoding/json"
	"fmt"
)

// Marshal converts an event to its canonical JSON form.
//
// The `type` discriminant is always present, `ts` is the creation time in
// Unix milliseconds, and audio payloads encode as base64. UserInput's raw
// audio is internal-only and is omitted from the canonical form.
//
// Marshal panics when handed an event type outside the closed kind set;
// that is a programming error, not a runtime condition.
func Marshal(event Event) ([]byte, error) {
	ts := event.Timestamp().UnixMilli()

	switch e := event.(type) {
	case UserInput:
		return json.Marshal(struct {
			Type Kind  `json:"type"`
			TS   int64 `json:"ts"`
		}{e.Kind(), ts})

	case STTChunk:
		return json.Marshal(struct {
			Type       Kind   `json:"type"`
			Transcript string `json:"transcript"`
			TS         int64  `json:"ts"`
		}{e.Kind(), e.Transcript, ts})

	case STTOutput:
		return json.Marshal(struct {
			Type       Kind   `json:"type"`
			Transcript string `json:"transcript"`
			TS         int64  `json:"ts"`
		}{e.Kind(), e.Transcript, ts})

	case AgentChunk:
		return json.Marshal(struct {
			Type Kind   `json:"type"`
			Text string `json:"text"`
			TS   int64  `json:"ts"`
		}{e.Kind(), e.Text, ts})

	case AgentEnd:
		return json.Marshal(struct {
			Type Kind  `json:"type"`
			TS   int64 `json:"ts"`
		}{e.Kind(), ts})

	case ToolCall:
		return json.Marshal(struct {
			Type Kind           `json:"type"`
			ID   string         `json:"id"`
			Name string         `json:"name"`
			Args map[string]any `json:"args"`
			TS   int64          `json:"ts"`
		}{e.Kind(), e.ID, e.Name, e.Args, ts})

	case ToolResult:
		return json.Marshal(struct {
			Type       Kind   `json:"type"`
			ToolCallID string `json:"toolCallId"`
			Name       string `json:"name"`
			Result     string `json:"result"`
			TS         int64  `json:"ts"`
		}{e.Kind(), e.ToolCallID, e.Name, e.Result, ts})

	case TTSChunk:
		return json.Marshal(struct {
			Type  Kind   `json:"type"`
			Audio []byte `json:"audio"`
			TS    int64  `json:"ts"`
		}{e.Kind(), e.Audio, ts})
	}

	panic(fmt.Sprintf("events: cannot serialize unknown event type %T", event))
}
