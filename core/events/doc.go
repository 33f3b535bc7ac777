// Package events defines the typed pipeline event contract.
//
// Every datum flowing through the pipeline is an immutable, timestamped,
// kind-discriminated event. The set of kinds is closed; adding a kind means
// touching every consumer switch, which is intentional.
//
// Kinds, payloads and producing stages:
//
//   - UserInput (user_input): raw PCM capture frame (16-bit mono 16 kHz),
//     emitted by capture.
//   - STTChunk (stt_chunk): interim transcript text, emitted by
//     transcription. May be revised by later chunks.
//   - STTOutput (stt_output): final transcript for the turn, emitted by
//     transcription. Terminal for the capture phase.
//   - AgentChunk (agent_chunk): streamed response text segment, emitted by
//     the agent.
//   - AgentEnd (agent_end): response stream complete, always the last agent
//     event of a turn.
//   - ToolCall (tool_call): tool invocation observed on the agent stream.
//   - ToolResult (tool_result): result answering a previously emitted
//     ToolCall; its call id always references an earlier ToolCall in the
//     same stream.
//   - TTSChunk (tts_chunk): synthesized PCM frame (16-bit mono 24 kHz),
//     emitted by synthesis.
//
// Canonical serialization is produced by [Marshal]: a JSON object whose
// `type` field carries the kind and whose `ts` field carries the creation
// time in Unix milliseconds. Audio payloads serialize as base64; the raw
// capture audio of UserInput is internal-only and is omitted.
package events
