package deglm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ContrastResult holds, per gene, the effect size and significance of one
// pairwise comparison between groups A and B. Positive LogFC means higher
// expression in A. Produced once per contrast and never mutated.
type ContrastResult struct {
	Name string
	A, B string

	GeneIDs []string
	LogFC   []float64
	PValue  []float64
	FDR     []float64
}

// ContrastName is the canonical "<a>_vs_<b>" label used for sheets and
// lookup tables.
func ContrastName(a, b string) string { return a + "_vs_" + b }

// Contrast tests coefficient a minus coefficient b for every gene with a
// Wald statistic: the log fold change over its delta-method standard error
// under the negative binomial variance function, referred to a Student's t
// distribution on the fit's residual degrees of freedom. P-values are
// two-sided; FDR is the Benjamini-Hochberg adjustment across all genes.
func (f *Fit) Contrast(a, b string) (*ContrastResult, error) {
	ka, err := f.groupIndex(a)
	if err != nil {
		return nil, err
	}
	kb, err := f.groupIndex(b)
	if err != nil {
		return nil, err
	}

	res := &ContrastResult{
		Name:    ContrastName(a, b),
		A:       a,
		B:       b,
		GeneIDs: f.GeneIDs,
		LogFC:   make([]float64, len(f.GeneIDs)),
		PValue:  make([]float64, len(f.GeneIDs)),
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: f.ResidualDF}
	ln2sq := math.Ln2 * math.Ln2

	for i := range f.GeneIDs {
		res.LogFC[i] = f.Coef[i][ka] - f.Coef[i][kb]

		v := f.logRateVariance(i, ka) + f.logRateVariance(i, kb)
		se := math.Sqrt(v / ln2sq)
		if se == 0 || math.IsNaN(se) || math.IsInf(se, 0) {
			res.PValue[i] = 1
			continue
		}

		t := res.LogFC[i] / se
		res.PValue[i] = 2 * tDist.CDF(-math.Abs(t))
	}

	res.FDR = BH(res.PValue)

	return res, nil
}

// logRateVariance approximates Var(log rate) for gene i in group k by the
// delta method: Var(T)/T^2 with T the expected group total and Var(T) the
// summed negative binomial variances of the group's samples.
func (f *Fit) logRateVariance(i, k int) float64 {
	rate := (f.groupTotal[i][k] + 0.5) / f.groupLib[k]
	phi := f.Dispersion[i]

	var total, variance float64
	for _, j := range f.groupCols[k] {
		m := rate * f.effLib[j]
		total += m
		variance += m + phi*m*m
	}

	return variance / (total * total)
}

// BH returns the Benjamini-Hochberg step-up adjusted values of p,
// controlling the false discovery rate across the slice.
func BH(p []float64) []float64 {
	n := len(p)
	if n == 0 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })

	adj := make([]float64, n)
	running := 1.0
	for i := n - 1; i >= 0; i-- {
		v := p[idx[i]] * float64(n) / float64(i+1)
		if v < running {
			running = v
		}
		adj[idx[i]] = running
	}

	return adj
}
