package spectralbase

// Options collects the construction settings of every family. A family
// rejects settings it cannot honour with ErrConfig.
type Options struct {
	Quad          Quad
	QuadSet       bool
	Domain        [2]float64
	PaddingFactor float64
	DealiasDirect bool
	Scaled        bool
	BC            [2]BC
	Params        map[string]float64
	Mean          float64
}

type Option func(*Options)

func WithQuad(q Quad) Option {
	return func(o *Options) { o.Quad, o.QuadSet = q, true }
}

func WithDomain(a, b float64) Option {
	return func(o *Options) { o.Domain = [2]float64{a, b} }
}

func WithPadding(factor float64) Option {
	return func(o *Options) { o.PaddingFactor = factor }
}

func WithDealiasDirect() Option {
	return func(o *Options) { o.DealiasDirect = true }
}

// WithScaled normalises the Shen Dirichlet functions by 1/sqrt(4k+6).
func WithScaled() Option {
	return func(o *Options) { o.Scaled = true }
}

func WithBC(bc [2]BC) Option {
	return func(o *Options) { o.BC = bc }
}

// WithParams sets extra named values for boundary expressions, time for
// example. They are known before the basis is wired to a space.
func WithParams(params map[string]float64) Option {
	return func(o *Options) {
		o.Params = make(map[string]float64, len(params))
		for key, val := range params {
			o.Params[key] = val
		}
	}
}

func WithMean(mean float64) Option {
	return func(o *Options) { o.Mean = mean }
}

func NewOptions(opts ...Option) (o *Options) {
	o = &Options{
		PaddingFactor: 1,
		BC:            Numbers(0, 0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return
}

// Apply returns the options as a list, so a basis can be rebuilt with them.
func (o *Options) Apply() (opts []Option) {
	c := *o
	return []Option{func(dst *Options) { *dst = c }}
}
