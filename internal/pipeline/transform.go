package pipeline

import (
	"context"

	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
)

// CoTTransformer implements Transformer using the domain CoT mapping.
type CoTTransformer struct {
	opts domain.CoTOptions
}

// NewTransformer creates a CoTTransformer stamping events with the given
// staleness horizon and host id.
func NewTransformer(opts domain.CoTOptions) *CoTTransformer {
	return &CoTTransformer{opts: opts}
}

func (t *CoTTransformer) Transform(_ context.Context, rec domain.DispatchRecord) (domain.OutputEvent, error) {
	return domain.Serialize(rec, t.opts)
}
