package repositories

import (
	"context"

	"github.com/satriahrh/mindful/domain/entities"
)

// ReplySynthesizer generates a spoken reply for a voice interaction
type ReplySynthesizer interface {
	SynthesizeReply(ctx context.Context, req entities.SynthesisRequest) (entities.SynthesisResult, error)
}
