package pipeline

import events "github.com/voxloop/voxloop-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts RunOptions) eventEmitter {
	return func(event events.Event) {
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.STTChunk:
			if opts.onInterimTranscription != nil {
				opts.onInterimTranscription(typedEvent.Transcript)
			}
		case events.STTOutput:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.AgentChunk:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.Text)
			}
		case events.AgentEnd:
			if opts.onResponseEnd != nil {
				opts.onResponseEnd()
			}
		case events.TTSChunk:
			if opts.onAudio != nil {
				opts.onAudio(typedEvent.Audio)
			}
		}
	}
}
