package server

import (
	"context"

	"github.com/jonathan/resume-parser/internal/entities"
	"github.com/jonathan/resume-parser/internal/types"
)

// blockingExtractor never returns before its context ends.
func blockingExtractor() *entities.Extractor {
	return entities.NewExtractor(entities.RecognizerFunc(func(ctx context.Context, _ string) ([]types.Span, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), entities.Options{})
}
