package comm

import (
	"fmt"
	"sort"
)

// DimsCreate fills the zero entries of dims with a balanced factorization of
// NP, in non increasing order, keeping the non zero entries fixed.
func DimsCreate(NP int, dims []int) (out []int, err error) {
	var (
		fixed = 1
		free  []int
	)
	out = make([]int, len(dims))
	copy(out, dims)
	for i, d := range dims {
		switch {
		case d < 0:
			err = fmt.Errorf("invalid dimension %d at %d in %v", d, i, dims)
			return
		case d == 0:
			free = append(free, i)
		default:
			fixed *= d
		}
	}
	if NP%fixed != 0 {
		err = fmt.Errorf("fixed dimensions %v do not divide %d ranks", dims, NP)
		return
	}
	rem := NP / fixed
	if len(free) == 0 {
		if rem != 1 {
			err = fmt.Errorf("dimensions %v do not multiply to %d ranks", dims, NP)
		}
		return
	}
	vals := make([]int, len(free))
	for i := range vals {
		vals[i] = 1
	}
	factors := primeFactors(rem)
	for i := len(factors) - 1; i >= 0; i-- {
		// Largest factor into the currently smallest slot
		smallest := 0
		for j := range vals {
			if vals[j] < vals[smallest] {
				smallest = j
			}
		}
		vals[smallest] *= factors[i]
	}
	sort.Sort(sort.Reverse(sort.IntSlice(vals)))
	for i, ind := range free {
		out[ind] = vals[i]
	}
	return
}

func primeFactors(n int) (f []int) {
	for p := 2; p*p <= n; p++ {
		for n%p == 0 {
			f = append(f, p)
			n /= p
		}
	}
	if n > 1 {
		f = append(f, n)
	}
	return
}
