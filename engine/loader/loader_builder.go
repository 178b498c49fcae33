package loader

import (
	"github.com/tessera-engine/tessera/common"
)

// LoaderBuilderOption is a functional option for configuring a Loader during construction.
type LoaderBuilderOption func(*loader)

// WithDefaultSampler sets the sampler settings applied to images loaded
// without per-image sampler settings of their own. Passing nil keeps the
// linear/repeat defaults.
//
// Parameters:
//   - sampler: the sampler settings to apply
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithDefaultSampler(sampler *common.SamplerStagingData) LoaderBuilderOption {
	return func(l *loader) {
		l.defaultSampler = sampler
	}
}
