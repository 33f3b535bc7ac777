package deepgram

type deepgramVoice string

const (
	VoiceAsteriaEN deepgramVoice = "aura-2-asteria-en"
	VoiceThaliaEN  deepgramVoice = "aura-2-thalia-en"
	VoiceOrionEN   deepgramVoice = "aura-2-orion-en"
	VoiceArcasEN   deepgramVoice = "aura-2-arcas-en"
)

const defaultVoice = VoiceAsteriaEN

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{VoiceAsteriaEN, VoiceThaliaEN, VoiceOrionEN, VoiceArcasEN}
}
