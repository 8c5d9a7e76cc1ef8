package expr

import "fmt"

// Merge concatenates column-compatible datasets into one. Every input must
// carry exactly the same set of gene identifiers; rows are aligned to the
// first input's gene order, so merging in any order yields the same gene set
// and the same per-sample columns. Sample identifiers must be disjoint across
// inputs. A diverging gene set yields a *SchemaMismatchError, a repeated
// sample identifier an *InputError.
func Merge(ds ...*Dataset) (*Dataset, error) {
	if len(ds) == 0 {
		return nil, &InputError{Msg: "merge of zero datasets"}
	}

	first := ds[0]
	out := &Dataset{
		Genes:  first.Genes,
		Counts: make([][]float64, len(first.Genes)),
	}
	for i, row := range first.Counts {
		out.Counts[i] = append([]float64(nil), row...)
	}

	seenSamples := make(map[string]struct{})
	for _, s := range first.Samples {
		if _, dup := seenSamples[s.ID]; dup {
			return nil, &InputError{Msg: fmt.Sprintf("duplicate sample identifier %q", s.ID)}
		}
		seenSamples[s.ID] = struct{}{}
		out.Samples = append(out.Samples, s)
	}

	for _, d := range ds[1:] {
		if g, ok := sameGeneSet(first, d); !ok {
			return nil, &SchemaMismatchError{Gene: g, Msg: "inputs do not share an identical gene set"}
		}

		rowOf := make(map[string]int, len(d.Genes))
		for i, g := range d.Genes {
			rowOf[g.ID] = i
		}

		for _, s := range d.Samples {
			if _, dup := seenSamples[s.ID]; dup {
				return nil, &InputError{Msg: fmt.Sprintf("duplicate sample identifier %q", s.ID)}
			}
			seenSamples[s.ID] = struct{}{}
			out.Samples = append(out.Samples, s)
		}

		for i, g := range out.Genes {
			out.Counts[i] = append(out.Counts[i], d.Counts[rowOf[g.ID]]...)
		}
	}

	return out, nil
}

// sameGeneSet reports whether a and b hold the same gene identifiers,
// regardless of row order. On mismatch it returns the first offending
// identifier encountered.
func sameGeneSet(a, b *Dataset) (gene string, ok bool) {
	if len(a.Genes) != len(b.Genes) {
		// Name a witness for the error message.
		inA := make(map[string]struct{}, len(a.Genes))
		for _, g := range a.Genes {
			inA[g.ID] = struct{}{}
		}
		for _, g := range b.Genes {
			if _, found := inA[g.ID]; !found {
				return g.ID, false
			}
			delete(inA, g.ID)
		}
		for id := range inA {
			return id, false
		}
		return "", false
	}

	inA := make(map[string]struct{}, len(a.Genes))
	for _, g := range a.Genes {
		inA[g.ID] = struct{}{}
	}
	for _, g := range b.Genes {
		if _, found := inA[g.ID]; !found {
			return g.ID, false
		}
	}

	return "", true
}
