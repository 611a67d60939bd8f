package spectralbase

import (
	"errors"

	"github.com/notargets/gospectral/utils"
)

var (
	ErrConfig              = errors.New("configuration error")
	ErrUnsupportedQuad     = errors.New("unsupported quadrature rule")
	ErrInvalidSize         = errors.New("invalid basis size")
	ErrNotPlanned          = errors.New("basis not planned")
	ErrShape               = utils.ErrShape
	ErrUnsupported         = errors.New("unsupported configuration")
	ErrInsufficientPadding = errors.New("insufficient padding for alias free convolution")
)
