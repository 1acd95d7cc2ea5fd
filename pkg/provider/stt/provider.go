// Package stt defines the speech-to-text provider abstraction.
//
// Implementations wrap a transcription backend (a local whisper.cpp server,
// the Deepgram REST API, ...) behind a single batch Transcribe call. The turn
// pipeline records one utterance per turn, so there is no streaming surface;
// a provider receives a finished clip and returns a finished transcript.
package stt

import "context"

// Provider transcribes recorded utterances.
//
// Transcribe blocks until the backend produces a transcript or the context is
// cancelled. Implementations must be safe for concurrent use; the server
// processes turns from many conversations at once.
type Provider interface {
	// Transcribe converts a single audio clip to text. A clip that contains
	// no recognisable speech yields a Transcript with empty Text and a nil
	// error; errors are reserved for transport and backend failures.
	Transcribe(ctx context.Context, clip AudioClip) (*Transcript, error)
}
