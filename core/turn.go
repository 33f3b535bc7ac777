package pipeline

import "github.com/google/uuid"

// TurnStatus records how a turn retired.
type TurnStatus string

const (
	// TurnStatusCompleted marks a turn whose response finished playback.
	TurnStatusCompleted TurnStatus = "completed"
	// TurnStatusSkippedEmptyTranscript marks a turn abandoned because capture
	// finalized without usable speech. The agent was never invoked.
	TurnStatusSkippedEmptyTranscript TurnStatus = "skipped-empty-transcript"
	// TurnStatusSkippedEmptyResponse marks a turn abandoned because the agent
	// produced no speakable text. Synthesis was never invoked.
	TurnStatusSkippedEmptyResponse TurnStatus = "skipped-empty-response"
	// TurnStatusFailed marks a turn retired by a stage failure.
	TurnStatusFailed TurnStatus = "failed"
)

// Turn is the record of one conversational exchange.
type Turn struct {
	ID         uuid.UUID
	Number     int
	Transcript string
	Response   string
	Status     TurnStatus
}
