// Package deglm fits per-gene negative binomial group-means models over a
// no-intercept categorical design and tests pairwise contrasts between
// groups. Dispersion is estimated by moments per gene and squeezed toward
// the common value across genes; contrasts are tested with a Wald statistic
// on the residual degrees of freedom.
package deglm

import (
	"fmt"
	"math"

	"github.com/dacolombo/bulk-RNA-Seq/expr"
)

// priorDF is the weight, in residual degrees of freedom, given to the common
// dispersion when squeezing per-gene estimates.
const priorDF = 10.0

// Fit holds the fitted group-means model for every gene of a dataset.
type Fit struct {
	GeneIDs []string

	// Groups is the coefficient order; Coef[i][k] is gene i's fitted log2
	// abundance (CPM scale) in group Groups[k].
	Groups []string
	Coef   [][]float64

	// Dispersion is the squeezed negative binomial dispersion per gene.
	Dispersion []float64

	// ResidualDF is samples minus groups, shared by every gene.
	ResidualDF float64

	groupTotal [][]float64 // per gene, per group: summed counts
	groupLib   []float64   // per group: summed effective library size
	groupCols  [][]int     // per group: column indices
	effLib     []float64
	counts     [][]float64
}

// FitGroups fits the model across the tissue groups of d, with per-sample
// effective library sizes effLib (library size times normalization factor).
// Groups are taken from the dataset's tissue labels in order of first
// appearance. At least two groups and one residual degree of freedom are
// required.
func FitGroups(d *expr.Dataset, effLib []float64) (*Fit, error) {
	if len(effLib) != len(d.Samples) {
		return nil, fmt.Errorf("deglm: %d library sizes for %d samples", len(effLib), len(d.Samples))
	}

	f := &Fit{
		GeneIDs: d.GeneIDs(),
		effLib:  effLib,
		counts:  d.Counts,
	}

	groupIdx := make(map[expr.Tissue]int)
	for j, s := range d.Samples {
		k, ok := groupIdx[s.Tissue]
		if !ok {
			k = len(f.Groups)
			groupIdx[s.Tissue] = k
			f.Groups = append(f.Groups, string(s.Tissue))
			f.groupCols = append(f.groupCols, nil)
			f.groupLib = append(f.groupLib, 0)
		}
		f.groupCols[k] = append(f.groupCols[k], j)
		f.groupLib[k] += effLib[j]
	}

	if len(f.Groups) < 2 {
		return nil, fmt.Errorf("deglm: need at least two groups, got %d", len(f.Groups))
	}
	f.ResidualDF = float64(len(d.Samples) - len(f.Groups))
	if f.ResidualDF < 1 {
		return nil, fmt.Errorf("deglm: %d samples leave no residual degrees of freedom over %d groups", len(d.Samples), len(f.Groups))
	}
	for k, lib := range f.groupLib {
		if lib <= 0 {
			return nil, fmt.Errorf("deglm: group %s has an empty library", f.Groups[k])
		}
	}

	f.fitCoefficients()
	f.estimateDispersion()

	return f, nil
}

// fitCoefficients computes the group totals and the log2 CPM-scale group
// abundances. With a no-intercept one-factor design and a log link the
// maximum likelihood rate of a group is its total count over its total
// library; half a read is added to keep zero groups finite.
func (f *Fit) fitCoefficients() {
	f.groupTotal = make([][]float64, len(f.counts))
	f.Coef = make([][]float64, len(f.counts))

	for i, row := range f.counts {
		totals := make([]float64, len(f.Groups))
		coefs := make([]float64, len(f.Groups))
		for k, cols := range f.groupCols {
			for _, j := range cols {
				totals[k] += row[j]
			}
			coefs[k] = math.Log2((totals[k] + 0.5) / f.groupLib[k] * 1e6)
		}
		f.groupTotal[i] = totals
		f.Coef[i] = coefs
	}
}

// estimateDispersion computes a moment estimate of the negative binomial
// dispersion per gene, then squeezes each toward the common (mean) value
// with priorDF pseudo-degrees of freedom.
func (f *Fit) estimateDispersion() {
	raw := make([]float64, len(f.counts))

	for i, row := range f.counts {
		var s float64
		for k, cols := range f.groupCols {
			rate := f.groupTotal[i][k] / f.groupLib[k]
			for _, j := range cols {
				m := rate * f.effLib[j]
				if m <= 0 {
					continue
				}
				r := row[j] - m
				s += (r*r - m) / (m * m)
			}
		}
		raw[i] = math.Max(0, s/f.ResidualDF)
	}

	var common float64
	if len(raw) > 0 {
		for _, v := range raw {
			common += v
		}
		common /= float64(len(raw))
	}

	f.Dispersion = make([]float64, len(raw))
	for i, v := range raw {
		f.Dispersion[i] = (priorDF*common + f.ResidualDF*v) / (priorDF + f.ResidualDF)
	}
}

func (f *Fit) groupIndex(name string) (int, error) {
	for k, g := range f.Groups {
		if g == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("deglm: no group %q in fit (groups: %v)", name, f.Groups)
}
