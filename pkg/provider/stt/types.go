package stt

// AudioClip is a complete recorded utterance submitted for transcription.
// Learners record one turn at a time in the browser, so the transcription
// surface is batch-oriented rather than streaming.
type AudioClip struct {
	// Data is the encoded audio payload. For containerized formats (WAV,
	// WebM, OGG) it is the full file contents; for MIMEType "audio/pcm" it is
	// raw 16-bit signed little-endian samples that the provider wraps itself.
	Data []byte

	// MIMEType identifies the encoding of Data (e.g., "audio/wav",
	// "audio/webm", "audio/pcm"). Empty defaults to "audio/wav".
	MIMEType string

	// SampleRate is the audio sample rate in Hz. Only consulted when Data is
	// raw PCM and a container must be synthesised. Zero defaults to 16000.
	SampleRate int

	// Channels is the channel count. Only consulted for raw PCM. Zero
	// defaults to 1.
	Channels int

	// Language is a BCP-47 hint for the spoken language (e.g., "yo", "ha",
	// "ig"). Empty lets the provider default or auto-detect.
	Language string
}

// Transcript is the result of transcribing a single AudioClip.
type Transcript struct {
	// Text is the recognised utterance, whitespace-trimmed.
	Text string

	// Language is the language the provider believes was spoken, when
	// reported. May be empty.
	Language string

	// Confidence is the provider's confidence in Text on a 0.0 to 1.0 scale.
	// Providers that do not report confidence leave it at 0.
	Confidence float64
}
