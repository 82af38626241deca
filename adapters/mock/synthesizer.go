package mock

import (
	"context"
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
)

// Synthesizer returns the reply text itself as a text/plain data URL
type Synthesizer struct {
	logger *zap.Logger
}

var _ repositories.ReplySynthesizer = (*Synthesizer)(nil)

// NewSynthesizer creates a mock synthesizer
func NewSynthesizer(logger *zap.Logger) *Synthesizer {
	return &Synthesizer{logger: logger}
}

// SynthesizeReply implements repositories.ReplySynthesizer
func (s *Synthesizer) SynthesizeReply(ctx context.Context, req entities.SynthesisRequest) (entities.SynthesisResult, error) {
	s.logger.Debug("Mock reply synthesized", zap.String("voice", req.Voice))
	return entities.SynthesisResult{
		Audio: "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(req.ReplyText)),
	}, nil
}
