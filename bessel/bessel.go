package bessel

import (
	"math"
)

// asymptoticLimit is the argument above which J0 and J1 switch from the
// power series to the Hankel asymptotic expansion.
const asymptoticLimit = 12

// tiny terminates both expansions.
const tiny = 1e-17

// series sums the power series of J_n(x) for x >= 0.
func series(n int, x float64) float64 {
	h := x / 2
	t := 1.0
	for k := 1; k <= n; k++ {
		t *= h / float64(k)
	}
	s := t
	for k := 1; k < 500; k++ {
		t = -t * h * h / float64(k*(k+n))
		s += t
		if k > 3 && math.Abs(t) < tiny*math.Abs(s) {
			break
		}
	}
	return s
}

// asymptotic evaluates J_n(x) for large positive x. The expansion is
// truncated once a term starts growing or drops below tiny.
func asymptotic(n int, x float64) float64 {
	mu := 4 * float64(n*n)
	t := 1.0
	p := 1.0
	q := 0.0
	prev := math.Inf(1)
	for k := 1; k < 100; k++ {
		m := float64(2*k - 1)
		t *= (mu - m*m) / (float64(k) * 8 * x)
		at := math.Abs(t)
		if at > prev || at < tiny {
			break
		}
		prev = at
		sgn := 1.0
		if (k/2)%2 == 1 {
			sgn = -1
		}
		if k%2 == 0 {
			p += sgn * t
		} else {
			q += sgn * t
		}
	}
	chi := x - (float64(n)/2+0.25)*math.Pi
	return math.Sqrt(2/(math.Pi*x)) * (p*math.Cos(chi) - q*math.Sin(chi))
}

func j01(n int, x float64) float64 {
	ax := math.Abs(x)
	var r float64
	if ax < asymptoticLimit {
		r = series(n, ax)
	} else {
		r = asymptotic(n, ax)
	}
	if x < 0 && n == 1 {
		r = -r
	}
	return r
}

// J0 returns the order-zero Bessel function of the first kind.
func J0(x float64) float64 {
	return j01(0, x)
}

// J1 returns the order-one Bessel function of the first kind.
func J1(x float64) float64 {
	return j01(1, x)
}

// Jn returns the Bessel function of the first kind of integer order n.
// Orders above one use upward recurrence from J0 and J1 when |x| > n and
// the power series otherwise.
func Jn(n int, x float64) float64 {
	if n < 0 {
		r := Jn(-n, x)
		if n%2 != 0 {
			r = -r
		}
		return r
	}
	if n < 2 {
		return j01(n, x)
	}
	ax := math.Abs(x)
	if ax == 0 {
		return 0
	}
	var r float64
	if ax > float64(n) {
		a, b := j01(0, ax), j01(1, ax)
		for k := 1; k < n; k++ {
			a, b = b, 2*float64(k)/ax*b-a
		}
		r = b
	} else {
		r = series(n, ax)
	}
	if x < 0 && n%2 == 1 {
		r = -r
	}
	return r
}

// MaxAbs returns the maximum of |J_v| sampled on [0, x] with the given
// number of intervals.
func MaxAbs(v int, x float64, intervals int) float64 {
	if intervals < 1 {
		intervals = 1
	}
	m := 0.0
	for i := 0; i <= intervals; i++ {
		if a := math.Abs(Jn(v, x*float64(i)/float64(intervals))); a > m {
			m = a
		}
	}
	return m
}
