package events

// KindUserInput identifies a raw capture audio frame.
const KindUserInput Kind = "user_input"

// UserInput carries one raw PCM frame read from the capture device.
// Expected format: 16-bit signed, mono, 16 kHz.
type UserInput struct {
	Base
	Audio []byte
}

// NewUserInput creates a user input event for one capture frame.
func NewUserInput(audio []byte) UserInput {
	return UserInput{Base: NewBase(KindUserInput), Audio: audio}
}
