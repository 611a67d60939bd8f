package tensorproductspace

import "github.com/notargets/gospectral/utils"

type config struct {
	axes     []int
	dtype    utils.DType
	dtypeSet bool
	slab     bool
}

type Option func(*config)

// WithAxes sets the pipeline order. The last entry is transformed first by
// Forward and is never split over ranks.
func WithAxes(axes ...int) Option {
	return func(c *config) { c.axes = append([]int{}, axes...) }
}

// WithDType sets the physical dtype. It must agree with the family of the
// first transformed basis.
func WithDType(dtype utils.DType) Option {
	return func(c *config) { c.dtype, c.dtypeSet = dtype, true }
}

// WithSlab distributes only axes[0] over the whole group.
func WithSlab() Option {
	return func(c *config) { c.slab = true }
}
