package events

const (
	// KindAgentChunk identifies a streamed agent response segment.
	KindAgentChunk Kind = "agent_chunk"
	// KindAgentEnd identifies agent response stream completion.
	KindAgentEnd Kind = "agent_end"
)

// AgentChunk carries one streamed response text segment. Chunks concatenate
// in arrival order into the turn's full response.
type AgentChunk struct {
	Base
	Text string
}

// NewAgentChunk creates an agent response segment event.
func NewAgentChunk(text string) AgentChunk {
	return AgentChunk{Base: NewBase(KindAgentChunk), Text: text}
}

// AgentEnd marks the end of the agent response stream for a turn. No
// AgentChunk or ToolCall for the same turn follows it.
type AgentEnd struct {
	Base
}

// NewAgentEnd creates an agent stream completion event.
func NewAgentEnd() AgentEnd {
	return AgentEnd{Base: NewBase(KindAgentEnd)}
}
