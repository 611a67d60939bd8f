package utils

const (
	NODETOL = 1.e-12
)

// IsZero reports whether val is zero to within NODETOL.
func IsZero(val float64) bool {
	return val < NODETOL && val > -NODETOL
}
