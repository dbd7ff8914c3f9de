package transcription

import (
	"context"

	"github.com/physiolab/soapnote/internal/provider"
)

// Provider is the interface that speech-to-text backends must implement.
// Implementations are stateless and single-segment; sequencing and transcript
// reassembly belong to the caller.
type Provider interface {
	provider.Provider // embeds Name() and IsAvailable()

	// Transcribe sends one audio segment for transcription and returns the
	// result.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}
