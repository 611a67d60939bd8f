package tensorproductspace

import "errors"

var ErrDestroyed = errors.New("tensor product space has been destroyed")
