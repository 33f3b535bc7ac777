package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/voxloop/voxloop-core/core/audio"
	"github.com/voxloop/voxloop-core/core/events"
	"github.com/voxloop/voxloop-core/core/llms"
	"github.com/voxloop/voxloop-core/core/speechtotext"
	"github.com/voxloop/voxloop-core/core/texttospeech"
)

func TestRunExecutesStagesSequentially(t *testing.T) {
	rec := &callRecorder{}

	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{rec: rec, frames: [][]byte{{0x01, 0x02}}}),
		WithSpeechToText(&fakeSpeechToText{rec: rec, transcripts: []string{"hello", "bye"}}),
		WithStreamingLLM(&fakeStreamingLLM{rec: rec, scripts: [][]fakeChunk{
			{{content: "Hi!"}},
			{{content: "Bye!"}},
		}}),
		WithTextToSpeech(&fakeTextToSpeech{rec: rec, chunks: [][]byte{{0xaa}}}),
		WithAudioOutput(&fakeAudioOutput{}),
		WithMaxTurns(2),
	)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("expected run to finish cleanly, got %v", err)
	}

	want := []string{
		"transcribe", "capture", "prompt", "synthesize",
		"transcribe", "capture", "prompt", "synthesize",
	}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("expected call sequence %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected call %d to be %q, got %q (full sequence %v)", i, want[i], got[i], got)
		}
	}
}

func TestRunSkipsAgentOnEmptyTranscript(t *testing.T) {
	llm := &fakeStreamingLLM{scripts: [][]fakeChunk{{{content: "Hi!"}}}}
	tts := &fakeTextToSpeech{chunks: [][]byte{{0xaa}}}

	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{}),
		WithSpeechToText(&fakeSpeechToText{transcripts: []string{"   ", "hello"}}),
		WithStreamingLLM(llm),
		WithTextToSpeech(tts),
		WithAudioOutput(&fakeAudioOutput{}),
		WithMaxTurns(2),
	)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("expected run to finish cleanly, got %v", err)
	}

	if got := llm.promptCount(); got != 1 {
		t.Fatalf("expected agent to be invoked once, got %d", got)
	}
	if got := tts.synthesizeCount(); got != 1 {
		t.Fatalf("expected synthesis to be invoked once, got %d", got)
	}

	turns := o.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 retired turns, got %d", len(turns))
	}
	if turns[0].Status != TurnStatusSkippedEmptyTranscript {
		t.Fatalf("expected turn 1 status %q, got %q", TurnStatusSkippedEmptyTranscript, turns[0].Status)
	}
	if turns[1].Status != TurnStatusCompleted {
		t.Fatalf("expected turn 2 status %q, got %q", TurnStatusCompleted, turns[1].Status)
	}
}

func TestRunSkipsSynthesisOnEmptyResponse(t *testing.T) {
	tts := &fakeTextToSpeech{}
	output := &fakeAudioOutput{}

	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{}),
		WithSpeechToText(&fakeSpeechToText{transcripts: []string{"hello"}}),
		WithStreamingLLM(&fakeStreamingLLM{scripts: [][]fakeChunk{{}}}),
		WithTextToSpeech(tts),
		WithAudioOutput(output),
		WithMaxTurns(1),
	)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("expected run to finish cleanly, got %v", err)
	}

	if got := tts.synthesizeCount(); got != 0 {
		t.Fatalf("expected synthesis to not be invoked, got %d calls", got)
	}
	if got := output.openCount(); got != 0 {
		t.Fatalf("expected playback device to not be acquired, got %d opens", got)
	}

	turns := o.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 retired turn, got %d", len(turns))
	}
	if turns[0].Status != TurnStatusSkippedEmptyResponse {
		t.Fatalf("expected status %q, got %q", TurnStatusSkippedEmptyResponse, turns[0].Status)
	}
	if turns[0].Transcript != "hello" {
		t.Fatalf("expected transcript to be recorded, got %q", turns[0].Transcript)
	}
}

func TestRunContinuesAfterFailedTurn(t *testing.T) {
	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{}),
		WithSpeechToText(&fakeSpeechToText{transcripts: []string{"one", "two", "three"}}),
		WithStreamingLLM(&fakeStreamingLLM{
			scripts: [][]fakeChunk{{{content: "First."}}, {}, {{content: "Third."}}},
			errs:    []error{nil, errors.New("model unavailable"), nil},
		}),
		WithTextToSpeech(&fakeTextToSpeech{chunks: [][]byte{{0xaa}}}),
		WithAudioOutput(&fakeAudioOutput{}),
		WithMaxTurns(3),
	)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("expected run to finish cleanly, got %v", err)
	}

	turns := o.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 retired turns, got %d", len(turns))
	}
	wantStatuses := []TurnStatus{TurnStatusCompleted, TurnStatusFailed, TurnStatusCompleted}
	for i, want := range wantStatuses {
		if turns[i].Status != want {
			t.Fatalf("expected turn %d status %q, got %q", i+1, want, turns[i].Status)
		}
	}
}

func TestRunSkipsTurnOnTranscriptionError(t *testing.T) {
	llm := &fakeStreamingLLM{scripts: [][]fakeChunk{{{content: "Hi!"}}}}

	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{}),
		WithSpeechToText(&fakeSpeechToText{
			transcripts: []string{"", "hello"},
			errs:        []error{errors.New("websocket read error"), nil},
		}),
		WithStreamingLLM(llm),
		WithTextToSpeech(&fakeTextToSpeech{chunks: [][]byte{{0xaa}}}),
		WithAudioOutput(&fakeAudioOutput{}),
		WithMaxTurns(2),
	)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("expected run to finish cleanly, got %v", err)
	}

	if got := llm.promptCount(); got != 1 {
		t.Fatalf("expected agent to be invoked once, got %d", got)
	}

	turns := o.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 retired turns, got %d", len(turns))
	}
	if turns[0].Status != TurnStatusSkippedEmptyTranscript {
		t.Fatalf("expected transcription failure to skip the turn with status %q, got %q",
			TurnStatusSkippedEmptyTranscript, turns[0].Status)
	}
	if turns[1].Status != TurnStatusCompleted {
		t.Fatalf("expected turn 2 status %q, got %q", TurnStatusCompleted, turns[1].Status)
	}
}

func TestRunFailsTurnOnSynthesisError(t *testing.T) {
	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{}),
		WithSpeechToText(&fakeSpeechToText{transcripts: []string{"hello"}}),
		WithStreamingLLM(&fakeStreamingLLM{scripts: [][]fakeChunk{{{content: "Hi!"}}}}),
		WithTextToSpeech(&fakeTextToSpeech{
			chunks: [][]byte{{0xaa}},
			err:    errors.New("websocket read error"),
		}),
		WithAudioOutput(&fakeAudioOutput{}),
		WithMaxTurns(1),
	)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("expected run to finish cleanly, got %v", err)
	}

	turns := o.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 retired turn, got %d", len(turns))
	}
	if turns[0].Status != TurnStatusFailed {
		t.Fatalf("expected synthesis failure to retire the turn as %q, got %q",
			TurnStatusFailed, turns[0].Status)
	}
	if turns[0].Response != "Hi!" {
		t.Fatalf("expected the response to be recorded on the failed turn, got %q", turns[0].Response)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{}),
		WithSpeechToText(&fakeSpeechToText{hang: true}),
		WithStreamingLLM(&fakeStreamingLLM{}),
		WithTextToSpeech(&fakeTextToSpeech{}),
		WithAudioOutput(&fakeAudioOutput{}),
	)

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	time.AfterFunc(50*time.Millisecond, cancel)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected cancelled run to return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for run to stop after cancellation")
	}

	if got := len(o.Turns()); got != 0 {
		t.Fatalf("expected no retired turns after cancellation mid-capture, got %d", got)
	}
}

func TestRunThreadsConversationHistory(t *testing.T) {
	llm := &fakeStreamingLLM{scripts: [][]fakeChunk{
		{{content: "Hi there!"}},
		{{content: "Again."}},
	}}

	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{}),
		WithSpeechToText(&fakeSpeechToText{transcripts: []string{"hello", "hello again"}}),
		WithStreamingLLM(llm),
		WithTextToSpeech(&fakeTextToSpeech{chunks: [][]byte{{0xaa}}}),
		WithAudioOutput(&fakeAudioOutput{}),
		WithMaxTurns(2),
	)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("expected run to finish cleanly, got %v", err)
	}

	llm.mu.Lock()
	defer llm.mu.Unlock()

	if len(llm.prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(llm.prompts))
	}
	if llm.prompts[1] != "hello again" {
		t.Fatalf("expected second prompt to be the second transcript, got %q", llm.prompts[1])
	}

	history := llm.messages[1]
	if len(history) != 2 {
		t.Fatalf("expected second prompt to carry 2 history messages, got %d", len(history))
	}
	if history[0].Role != llms.MessageRoleUser || history[0].Content != "hello" {
		t.Fatalf("expected first history message to be the user's first turn, got %+v", history[0])
	}
	if history[1].Role != llms.MessageRoleAssistant || history[1].Content != "Hi there!" {
		t.Fatalf("expected second history message to be the assistant's first response, got %+v", history[1])
	}
}

func TestRunEmitsEventStream(t *testing.T) {
	var mu sync.Mutex
	kinds := []events.Kind{}

	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{frames: [][]byte{{0x01}}}),
		WithSpeechToText(&fakeSpeechToText{transcripts: []string{"what's the weather"}}),
		WithStreamingLLM(&fakeStreamingLLM{scripts: [][]fakeChunk{{
			{toolCall: &llms.ToolCall{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Zagreb"}`}},
			{toolResult: &llms.ToolCall{ID: "call-1", Name: "get_weather", Response: "sunny"}},
			{content: "Sunny."},
		}}}),
		WithTextToSpeech(&fakeTextToSpeech{chunks: [][]byte{{0xaa}, {0xbb}}}),
		WithAudioOutput(&fakeAudioOutput{}),
		WithMaxTurns(1),
	)

	err := o.Run(context.Background(), WithEventCallback(func(event events.Event) {
		mu.Lock()
		kinds = append(kinds, event.Kind())
		mu.Unlock()
	}))
	if err != nil {
		t.Fatalf("expected run to finish cleanly, got %v", err)
	}

	want := []events.Kind{
		events.KindUserInput,
		events.KindSTTOutput,
		events.KindToolCall,
		events.KindToolResult,
		events.KindAgentChunk,
		events.KindAgentEnd,
		events.KindTTSChunk,
		events.KindTTSChunk,
	}

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != len(want) {
		t.Fatalf("expected event kinds %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected event %d to be %q, got %q (full sequence %v)", i, want[i], kinds[i], kinds)
		}
	}

	turns := o.Turns()
	if len(turns) != 1 || turns[0].Status != TurnStatusCompleted {
		t.Fatalf("expected one completed turn, got %+v", turns)
	}
	if turns[0].Response != "Sunny." {
		t.Fatalf("expected response %q, got %q", "Sunny.", turns[0].Response)
	}
}

func TestRunRetiresTurnsWithIdentity(t *testing.T) {
	retired := []Turn{}

	o := NewOrchestrator(
		WithAudioInput(&fakeAudioInput{}),
		WithSpeechToText(&fakeSpeechToText{transcripts: []string{"one", "two"}}),
		WithStreamingLLM(&fakeStreamingLLM{scripts: [][]fakeChunk{
			{{content: "First."}},
			{{content: "Second."}},
		}}),
		WithTextToSpeech(&fakeTextToSpeech{chunks: [][]byte{{0xaa}}}),
		WithAudioOutput(&fakeAudioOutput{}),
		WithMaxTurns(2),
	)

	err := o.Run(context.Background(), WithTurnRetiredCallback(func(turn Turn) {
		retired = append(retired, turn)
	}))
	if err != nil {
		t.Fatalf("expected run to finish cleanly, got %v", err)
	}

	if len(retired) != 2 {
		t.Fatalf("expected 2 retired callbacks, got %d", len(retired))
	}
	for i, turn := range retired {
		if turn.Number != i+1 {
			t.Fatalf("expected turn number %d, got %d", i+1, turn.Number)
		}
		if turn.ID == uuid.Nil {
			t.Fatalf("expected turn %d to have an id", i+1)
		}
	}
	if retired[0].ID == retired[1].ID {
		t.Fatalf("expected distinct turn ids, got %s twice", retired[0].ID)
	}
}

type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeAudioInput struct {
	rec    *callRecorder
	frames [][]byte

	mu      sync.Mutex
	started int
	stopped int
}

func (f *fakeAudioInput) EncodingInfo() audio.EncodingInfo { return audio.CaptureEncodingInfo() }

func (f *fakeAudioInput) Start(_ context.Context, onAudio func(audio []byte)) error {
	f.rec.record("capture")
	f.mu.Lock()
	f.started++
	f.mu.Unlock()

	for _, frame := range f.frames {
		onAudio(frame)
	}
	return nil
}

func (f *fakeAudioInput) Stop() error {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
	return nil
}

func (f *fakeAudioInput) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *fakeAudioInput) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type fakeSpeechToText struct {
	rec *callRecorder

	// transcripts holds the finalized transcript per session, in order.
	transcripts []string
	// errs, when set at a session index, fails that session instead.
	errs []error
	// hang keeps the session open without ever finalizing.
	hang bool

	mu      sync.Mutex
	session int
	closed  int
	audio   [][]byte
}

func (f *fakeSpeechToText) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	f.rec.record("transcribe")

	options := speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	f.mu.Lock()
	idx := f.session
	f.session++
	f.mu.Unlock()

	if f.hang {
		return nil
	}

	if idx < len(f.errs) && f.errs[idx] != nil {
		options.ErrorCallback(f.errs[idx])
		return nil
	}

	transcript := ""
	if idx < len(f.transcripts) {
		transcript = f.transcripts[idx]
	}
	options.TranscriptionCallback(transcript)
	return nil
}

func (f *fakeSpeechToText) SendAudio(audio []byte) error {
	f.mu.Lock()
	f.audio = append(f.audio, append([]byte(nil), audio...))
	f.mu.Unlock()
	return nil
}

func (f *fakeSpeechToText) Close(context.Context) error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeSpeechToText) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeChunk struct {
	content    string
	toolCall   *llms.ToolCall
	toolResult *llms.ToolCall
}

type fakeStreamingLLM struct {
	rec *callRecorder

	// scripts holds the chunk sequence per prompt, in order.
	scripts [][]fakeChunk
	// errs, when set at a prompt index, terminates that stream with an error
	// after its scripted chunks.
	errs []error

	mu       sync.Mutex
	prompts  []string
	messages [][]llms.Message
}

func (f *fakeStreamingLLM) PromptWithStream(_ context.Context, prompt string, opts ...llms.PromptOption) llms.Stream {
	f.rec.record("prompt")

	options := llms.PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	f.mu.Lock()
	idx := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	f.messages = append(f.messages, options.Messages)
	f.mu.Unlock()

	var chunks []fakeChunk
	if idx < len(f.scripts) {
		chunks = f.scripts[idx]
	}
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	return &fakeStream{chunks: chunks, err: err}
}

func (f *fakeStreamingLLM) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeStream struct {
	chunks []fakeChunk
	err    error
}

func (s *fakeStream) Chunks(context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		for _, chunk := range s.chunks {
			switch {
			case chunk.toolCall != nil:
				if !yield(fakeToolCallChunk{toolCall: *chunk.toolCall}, nil) {
					return
				}
			case chunk.toolResult != nil:
				if !yield(fakeToolResultChunk{toolCall: *chunk.toolResult}, nil) {
					return
				}
			default:
				if !yield(fakeContentChunk{content: chunk.content}, nil) {
					return
				}
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

type fakeContentChunk struct{ content string }

func (c fakeContentChunk) FinishReason() *string { return nil }
func (c fakeContentChunk) Content() string       { return c.content }

type fakeToolCallChunk struct{ toolCall llms.ToolCall }

func (c fakeToolCallChunk) FinishReason() *string   { return nil }
func (c fakeToolCallChunk) ToolCall() llms.ToolCall { return c.toolCall }

type fakeToolResultChunk struct{ toolCall llms.ToolCall }

func (c fakeToolResultChunk) FinishReason() *string     { return nil }
func (c fakeToolResultChunk) ToolResult() llms.ToolCall { return c.toolCall }

type fakeTextToSpeech struct {
	rec *callRecorder

	// chunks is the audio delivered per Synthesize call.
	chunks [][]byte
	// err, when set, terminates the stream after the scripted chunks instead
	// of the ended signal.
	err error

	mu    sync.Mutex
	texts []string
}

func (f *fakeTextToSpeech) Synthesize(_ context.Context, text string, opts ...texttospeech.SynthesisOption) error {
	f.rec.record("synthesize")

	options := texttospeech.SynthesisOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	go func() {
		for _, chunk := range f.chunks {
			options.SpeechAudioCallback(chunk)
		}
		if f.err != nil {
			options.ErrorCallback(f.err)
			return
		}
		options.SpeechEndedCallback()
	}()
	return nil
}

func (f *fakeTextToSpeech) synthesizeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type fakeAudioOutput struct {
	mu     sync.Mutex
	opens  int
	closes int
	drains int
	writes [][]byte
}

func (f *fakeAudioOutput) EncodingInfo() audio.EncodingInfo { return audio.PlaybackEncodingInfo() }

func (f *fakeAudioOutput) Open(context.Context) error {
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	return nil
}

func (f *fakeAudioOutput) Write(audio []byte) error {
	f.mu.Lock()
	f.writes = append(f.writes, append([]byte(nil), audio...))
	f.mu.Unlock()
	return nil
}

func (f *fakeAudioOutput) Drain() error {
	f.mu.Lock()
	f.drains++
	f.mu.Unlock()
	return nil
}

func (f *fakeAudioOutput) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakeAudioOutput) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *fakeAudioOutput) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeAudioOutput) drainCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drains
}

func (f *fakeAudioOutput) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}
