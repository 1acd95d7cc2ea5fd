package tts

// VoiceProfile describes a TTS voice configuration for a tutor persona.
// Each scenario pairs the learner with an AI interlocutor (market trader,
// taxi driver, elder) whose voice is selected per language and role.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string

	// Language is the BCP-47 code of the language this voice is tuned for
	// (e.g., "yo", "ha", "ig"). Empty for general-purpose voices.
	Language string

	// Metadata holds provider-specific voice attributes (gender, age, accent, etc.).
	Metadata map[string]string
}

// Audio is a complete synthesised utterance.
type Audio struct {
	// Data is the encoded audio payload.
	Data []byte

	// MIMEType identifies the encoding of Data (e.g., "audio/mpeg",
	// "audio/wav").
	MIMEType string
}
