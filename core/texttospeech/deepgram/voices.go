package deepgram

import "slices"

type deepgramVoice string

const (
	VoiceAsteria deepgramVoice = "aura-asteria-en"
	VoiceLuna    deepgramVoice = "aura-luna-en"
	VoiceStella  deepgramVoice = "aura-stella-en"
	VoiceAthena  deepgramVoice = "aura-athena-en"
	VoiceHera    deepgramVoice = "aura-hera-en"
	VoiceOrion   deepgramVoice = "aura-orion-en"
	VoiceArcas   deepgramVoice = "aura-arcas-en"
	VoicePerseus deepgramVoice = "aura-perseus-en"
	VoiceAngus   deepgramVoice = "aura-angus-en"
	VoiceOrpheus deepgramVoice = "aura-orpheus-en"
	VoiceHelios  deepgramVoice = "aura-helios-en"
	VoiceZeus    deepgramVoice = "aura-zeus-en"

	VoiceThalia    deepgramVoice = "aura-2-thalia-en"
	VoiceAndromeda deepgramVoice = "aura-2-andromeda-en"
	VoiceApollo    deepgramVoice = "aura-2-apollo-en"

	defaultVoice = VoiceAsteria
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceAsteria, VoiceLuna, VoiceStella, VoiceAthena, VoiceHera,
		VoiceOrion, VoiceArcas, VoicePerseus, VoiceAngus, VoiceOrpheus,
		VoiceHelios, VoiceZeus, VoiceThalia, VoiceAndromeda, VoiceApollo,
	}
}

// ParseVoice accepts one of the known voice models.
func ParseVoice(voice string) (deepgramVoice, bool) {
	v := deepgramVoice(voice)
	return v, slices.Contains(GetAvailableVoices(), v)
}
