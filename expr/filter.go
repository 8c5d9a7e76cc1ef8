package expr

import "math"

// FilterStats summarizes, for one sample, how many reads the gene filters
// removed. Percentages over a zero-read sample are NaN, never zero: a library
// that produced no reads has no defined short-read fraction.
type FilterStats struct {
	SampleID   string
	TotalReads float64

	// Reads assigned to genes shorter than the length threshold.
	ShortReads float64
	ShortPct   float64

	// Reads assigned to mitochondrial genes, counted among genes that
	// already passed the length filter so that a short mitochondrial gene is
	// not removed twice.
	MitoReads float64
	MitoPct   float64
}

// FilterGenes removes genes shorter than minLength bases and genes on the
// mitochondrial contig mitoChrom, in that order, returning the filtered
// dataset together with per-sample filtering statistics. The input dataset is
// not modified.
//
// Counting the mitochondrial reads only among length-passing genes keeps the
// two removal counts disjoint, so for every sample
// ShortReads + (reads retained after the length filter) == TotalReads.
func FilterGenes(d *Dataset, minLength int, mitoChrom string) (*Dataset, []FilterStats) {
	stats := make([]FilterStats, len(d.Samples))
	for j, s := range d.Samples {
		stats[j].SampleID = s.ID
	}

	out := &Dataset{Samples: d.Samples}
	for i, g := range d.Genes {
		row := d.Counts[i]
		for j, v := range row {
			stats[j].TotalReads += v
		}

		if g.Length < minLength {
			for j, v := range row {
				stats[j].ShortReads += v
			}
			continue
		}
		if g.Chromosome == mitoChrom {
			for j, v := range row {
				stats[j].MitoReads += v
			}
			continue
		}

		out.Genes = append(out.Genes, g)
		out.Counts = append(out.Counts, row)
	}

	for j := range stats {
		stats[j].ShortPct = percentage(stats[j].ShortReads, stats[j].TotalReads)
		stats[j].MitoPct = percentage(stats[j].MitoReads, stats[j].TotalReads)
	}

	return out, stats
}

func percentage(part, total float64) float64 {
	if total == 0 {
		return math.NaN()
	}
	return 100 * part / total
}
