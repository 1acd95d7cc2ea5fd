// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider in unit tests to feed controlled transcripts into the turn
// pipeline without a live transcription backend.
package mock

import (
	"context"
	"sync"

	"github.com/griotlabs/griot/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Clip is the AudioClip passed to Transcribe.
	Clip stt.AudioClip
}

// Provider is a mock implementation of stt.Provider.
// Zero values for response fields cause Transcribe to return nil, nil.
// Set Err to inject errors.
type Provider struct {
	mu sync.Mutex

	// Transcript is returned by Transcribe. May be nil.
	Transcript *stt.Transcript

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeFunc, if non-nil, is called instead of returning the static
	// Transcript. Useful for per-call behavior in table tests.
	TranscribeFunc func(ctx context.Context, clip stt.AudioClip) (*stt.Transcript, error)

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns Transcript, Err. If TranscribeFunc
// is set it takes precedence.
func (p *Provider) Transcribe(ctx context.Context, clip stt.AudioClip) (*stt.Transcript, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, TranscribeCall{Ctx: ctx, Clip: clip})
	fn := p.TranscribeFunc
	tr, err := p.Transcript, p.Err
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, clip)
	}
	return tr, err
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
