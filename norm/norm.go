// Package norm provides between-sample normalization for expression count
// data: library sizes, TMM scaling factors, and (log) counts-per-million.
//
// The TMM computation follows "A scaling normalization method for
// differential expression analysis of RNA-seq data", Robinson & Oshlack,
// Genome Biology 2010, with the customary trim fractions (30% on log ratios,
// 5% on absolute intensity) and precision weighting.
package norm

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/dacolombo/bulk-RNA-Seq/expr"
)

const (
	logRatioTrim  = 0.30
	intensityTrim = 0.05
	minIntensity  = -1e10
)

// LibSizes returns the total read count of each sample, in column order.
func LibSizes(d *expr.Dataset) []float64 {
	lib := make([]float64, len(d.Samples))
	for _, row := range d.Counts {
		for j, v := range row {
			lib[j] += v
		}
	}
	return lib
}

// TMMFactors returns one scaling factor per sample. The reference sample is
// the one whose 75th percentile of library-size-scaled counts is closest to
// the mean such percentile across samples; factors are rescaled so that
// their logs average zero. Factors are strictly positive; degenerate columns
// (empty libraries, or no usable genes after trimming) get a factor of 1.
func TMMFactors(d *expr.Dataset) []float64 {
	n := len(d.Samples)
	f := make([]float64, n)
	for j := range f {
		f[j] = 1
	}
	if n < 2 || len(d.Genes) == 0 {
		return f
	}

	lib := LibSizes(d)
	ref := refColumn(d, lib)

	for j := 0; j < n; j++ {
		f[j] = trimmedMeanFactor(d, lib, j, ref)
	}

	return logMeanCentered(f)
}

// refColumn picks the reference sample for TMM.
func refColumn(d *expr.Dataset, lib []float64) int {
	q75 := make([]float64, len(d.Samples))
	rates := make([]float64, len(d.Genes))
	for j := range d.Samples {
		if lib[j] == 0 {
			continue
		}
		for i := range d.Genes {
			rates[i] = d.Counts[i][j] / lib[j]
		}
		q, err := stats.Percentile(rates, 75)
		if err != nil {
			continue
		}
		q75[j] = q
	}

	mean, err := stats.Mean(q75)
	if err != nil {
		return 0
	}

	ref := 0
	best := math.Inf(1)
	for j, q := range q75 {
		if diff := math.Abs(q - mean); diff < best {
			best = diff
			ref = j
		}
	}
	return ref
}

// trimmedMeanFactor returns the scaling factor of column j against the
// reference column: two to the power of the doubly trimmed, precision
// weighted mean of the per-gene log ratios.
func trimmedMeanFactor(d *expr.Dataset, lib []float64, j, ref int) float64 {
	if j == ref || lib[j] == 0 || lib[ref] == 0 {
		return 1
	}

	var (
		logRatio  []float64 // M: log2 of the rate ratio
		intensity []float64 // A: average log2 rate
		invVar    []float64 // precision weight per gene
	)
	for i := range d.Genes {
		obs := d.Counts[i][j] / lib[j]
		refRate := d.Counts[i][ref] / lib[ref]

		m := math.Log2(obs / refRate)
		a := math.Log2(obs*refRate) / 2
		if a < minIntensity || math.IsInf(m, 0) || math.IsNaN(m) || math.IsInf(a, 0) || math.IsNaN(a) {
			continue
		}

		logRatio = append(logRatio, m)
		intensity = append(intensity, a)
		invVar = append(invVar, 1/((lib[j]-d.Counts[i][j])/(lib[j]*d.Counts[i][j])+
			(lib[ref]-d.Counts[i][ref])/(lib[ref]*d.Counts[i][ref])))
	}
	if len(logRatio) == 0 {
		return 1
	}

	n := float64(len(logRatio))
	loM := math.Floor(n*logRatioTrim) + 1
	hiM := n + 1 - loM
	loA := math.Floor(n*intensityTrim) + 1
	hiA := n + 1 - loA

	rankM := averageRanks(logRatio)
	rankA := averageRanks(intensity)

	var num, den float64
	for i := range logRatio {
		if rankM[i] < loM || rankM[i] > hiM || rankA[i] < loA || rankA[i] > hiA {
			continue
		}
		num += logRatio[i] * invVar[i]
		den += invVar[i]
	}
	if den == 0 {
		return 1
	}

	return math.Pow(2, num/den)
}

// averageRanks returns 1-based sample ranks, ties sharing their mean rank.
func averageRanks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	ranks := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && v[idx[j]] == v[idx[i]] {
			j++
		}
		mean := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = mean
		}
		i = j
	}
	return ranks
}

// logMeanCentered rescales factors so the mean of their logs is zero,
// matching the convention that factors multiply to one around the library
// sizes rather than setting any single sample as the unit.
func logMeanCentered(f []float64) []float64 {
	var sum float64
	for _, v := range f {
		sum += math.Log(v)
	}
	scale := math.Exp(sum / float64(len(f)))
	out := make([]float64, len(f))
	for j, v := range f {
		out[j] = v / scale
	}
	return out
}

// EffectiveLibSizes returns the library sizes scaled by the TMM factors.
func EffectiveLibSizes(lib, factors []float64) []float64 {
	eff := make([]float64, len(lib))
	for j := range lib {
		eff[j] = lib[j] * factors[j]
	}
	return eff
}

// CPM returns the counts-per-million matrix over the given effective library
// sizes, in the dataset's row and column order.
func CPM(d *expr.Dataset, effLib []float64) [][]float64 {
	out := make([][]float64, len(d.Counts))
	for i, row := range d.Counts {
		cpm := make([]float64, len(row))
		for j, v := range row {
			cpm[j] = v / effLib[j] * 1e6
		}
		out[i] = cpm
	}
	return out
}

// LogCPM returns log2 counts-per-million with a prior count of two, scaled
// per sample by relative library size so that small libraries are not
// overdispersed at low counts.
func LogCPM(d *expr.Dataset, effLib []float64) [][]float64 {
	const prior = 2.0

	var meanLib float64
	for _, v := range effLib {
		meanLib += v
	}
	meanLib /= float64(len(effLib))

	pc := make([]float64, len(effLib))
	for j, v := range effLib {
		pc[j] = prior * v / meanLib
	}

	out := make([][]float64, len(d.Counts))
	for i, row := range d.Counts {
		lcpm := make([]float64, len(row))
		for j, v := range row {
			lcpm[j] = math.Log2((v + pc[j]) / (effLib[j] + 2*pc[j]) * 1e6)
		}
		out[i] = lcpm
	}
	return out
}
