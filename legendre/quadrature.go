package legendre

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// JacobiGQ computes the N+1 point Gauss quadrature for the Jacobi weight
// (1-x)^alpha (1+x)^beta with the Golub-Welsch eigenvalue method.
func JacobiGQ(alpha, beta float64, N int) (x, w []float64) {
	var (
		fac        float64
		h1, d0, d1 []float64
		VVr        *mat.Dense
	)
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w = []float64{2.}
		return
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-1/2*(alpha^2-beta^2)./(h1+2)./h1)
	d0 = make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < N {
			JJ.SetSym(i, i+1, d1[i])
		}
	}

	var eig mat.EigenSym
	ok := eig.Factorize(JJ, true)
	if !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(nil)

	VVr = mat.NewDense(len(x), len(x), nil)
	eig.VectorsTo(VVr)
	w = make([]float64, len(x))
	g0 := gamma0(alpha, beta)
	for i, v := range VVr.RawRowView(0) {
		w[i] = v * v * g0
	}
	return
}

// gamma0 is the integral of the Jacobi weight over [-1, 1].
func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	return math.Pow(2, ab1) / ab1 * math.Gamma(alpha+1) * math.Gamma(beta+1) / math.Gamma(alpha+beta+1)
}

// LegendreGauss returns the N point Gauss rule, ascending.
func LegendreGauss(N int) (x, w []float64) {
	return JacobiGQ(0, 0, N-1)
}

// LegendreGaussLobatto returns the N point Gauss-Lobatto rule, ascending,
// with end points -1 and 1.
func LegendreGaussLobatto(N int) (x, w []float64) {
	x = make([]float64, N)
	w = make([]float64, N)
	x[0], x[N-1] = -1, 1
	if N > 2 {
		xint, _ := JacobiGQ(1, 1, N-3)
		copy(x[1:N-1], xint)
	}
	fN := float64(N)
	for j, xj := range x {
		L := LegendreP(N-1, xj)
		w[j] = 2 / (fN * (fN - 1) * L * L)
	}
	return
}

// LegendreP evaluates L_n(x) with the three term recurrence.
func LegendreP(n int, x float64) float64 {
	if n == 0 {
		return 1
	}
	var (
		p0, p1 = 1., x
	)
	for k := 1; k < n; k++ {
		fk := float64(k)
		p0, p1 = p1, ((2*fk+1)*x*p1-fk*p0)/(fk+1)
	}
	return p1
}

// legendreAll fills L[k] = L_k(x) for k < len(L).
func legendreAll(x float64, L []float64) {
	if len(L) == 0 {
		return
	}
	L[0] = 1
	if len(L) == 1 {
		return
	}
	L[1] = x
	for k := 1; k+1 < len(L); k++ {
		fk := float64(k)
		L[k+1] = ((2*fk+1)*x*L[k] - fk*L[k-1]) / (fk + 1)
	}
}

// scalarProduct computes s_k = sum_j w_j L_k(x_j) u_j.
func scalarProduct(x, w []float64, u, s []complex128) {
	L := make([]float64, len(s))
	for k := range s {
		s[k] = 0
	}
	for j, xj := range x {
		legendreAll(xj, L)
		wu := complex(w[j], 0) * u[j]
		for k, Lk := range L {
			s[k] += complex(Lk, 0) * wu
		}
	}
}

// evaluate computes u_j = sum_k a_k L_k(x_j).
func evaluate(x []float64, a, u []complex128) {
	L := make([]float64, len(a))
	for j, xj := range x {
		legendreAll(xj, L)
		var sum complex128
		for k, Lk := range L {
			sum += complex(Lk, 0) * a[k]
		}
		u[j] = sum
	}
}
