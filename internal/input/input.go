package input

import (
	"context"

	"github.com/MuchTitan/logtail/internal"
)

type Plugin interface {
	internal.Plugin
	// Start blocks until ctx is cancelled, submitting records to sink.
	// A returned error is fatal to the agent.
	Start(ctx context.Context, sink internal.Sink) error
	Tag() string
}
