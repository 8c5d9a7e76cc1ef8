package deset

import (
	"testing"

	"github.com/dacolombo/bulk-RNA-Seq/deglm"
)

const alpha = 0.05

func result(a, b string, genes []string, logFC, fdr []float64) *deglm.ContrastResult {
	return &deglm.ContrastResult{
		Name:    deglm.ContrastName(a, b),
		A:       a,
		B:       b,
		GeneIDs: genes,
		LogFC:   logFC,
		FDR:     fdr,
	}
}

func TestSignificant(t *testing.T) {
	res := result("brain", "heart",
		[]string{"g1", "g2", "g3", "g4", "g5"},
		[]float64{2, -1.5, 3, 0, -2},
		[]float64{0.01, 0.02, 0.5, 0.001, 0.05})

	p := Significant(res, alpha)

	// g3 fails the threshold, g4 has no direction, g5 sits exactly at alpha.
	if got, want := len(p.Up), 1; got != want {
		t.Fatalf("up: got %v, want %d genes", p.Up, want)
	}
	if p.Up[0] != "g1" {
		t.Errorf("up: got %v, want [g1]", p.Up)
	}
	if got, want := len(p.Down), 1; got != want || p.Down[0] != "g2" {
		t.Errorf("down: got %v, want [g2]", p.Down)
	}
}

// The published scenario: a gene up in A against both other tissues belongs
// to A's up-set and to nothing else.
func TestConsensusToyScenario(t *testing.T) {
	genes := []string{"G1", "G2", "G3", "G4"}

	ab := result("brain", "heart", genes,
		[]float64{2, 0.1, -1, 0.2},
		[]float64{0.01, 0.9, 0.03, 0.8})
	ac := result("brain", "colon", genes,
		[]float64{1.5, -0.1, 0.5, 0.1},
		[]float64{0.02, 0.7, 0.6, 0.9})
	bc := result("heart", "colon", genes,
		[]float64{0.3, 0.1, 1.2, -0.1},
		[]float64{0.5, 0.8, 0.04, 0.9})

	rules := ConsensusRules("brain", "heart", "colon")
	sets, err := Consensus([]Partition{
		Significant(ab, alpha),
		Significant(ac, alpha),
		Significant(bc, alpha),
	}, rules)
	if err != nil {
		t.Fatalf("Consensus: %v", err)
	}

	brainUp := sets[Key{"brain", Up}]
	if len(brainUp) != 1 || brainUp[0] != "G1" {
		t.Errorf("brain up: got %v, want [G1]", brainUp)
	}
	for key, set := range sets {
		if key == (Key{"brain", Up}) {
			continue
		}
		for _, id := range set {
			if id == "G1" {
				t.Errorf("G1 also present in %s %s", key.Tissue, key.Dir)
			}
		}
	}
}

// higherIn reports whether res says tissue is significantly higher than the
// other side of the contrast, reading the raw effect size directly.
func higherIn(res *deglm.ContrastResult, tissue string, i int) bool {
	if res.FDR[i] >= alpha {
		return false
	}
	if tissue == res.A {
		return res.LogFC[i] > 0
	}
	return res.LogFC[i] < 0
}

// Re-derive every tissue set from the raw per-gene effect sizes, without set
// intersection, and check the table-driven result agrees.
func TestConsensusMatchesDirectDerivation(t *testing.T) {
	genes := []string{"g1", "g2", "g3", "g4", "g5", "g6", "g7", "g8"}

	ab := result("brain", "heart", genes,
		[]float64{2.0, -1.1, 0.4, -2.2, 1.3, 0, -0.8, 3.1},
		[]float64{0.001, 0.02, 0.9, 0.01, 0.04, 0.01, 0.2, 0.03})
	ac := result("brain", "colon", genes,
		[]float64{1.5, 0.9, -1.7, -1.9, -1.2, 1.1, -0.6, 0.2},
		[]float64{0.02, 0.01, 0.03, 0.002, 0.01, 0.04, 0.01, 0.7})
	bc := result("heart", "colon", genes,
		[]float64{-0.3, 1.4, -2.0, 0.6, -2.5, 1.0, 0.3, -1.8},
		[]float64{0.6, 0.01, 0.002, 0.3, 0.01, 0.02, 0.8, 0.04})

	results := []*deglm.ContrastResult{ab, ac, bc}
	parts := make([]Partition, len(results))
	for i, r := range results {
		parts[i] = Significant(r, alpha)
	}

	sets, err := Consensus(parts, ConsensusRules("brain", "heart", "colon"))
	if err != nil {
		t.Fatalf("Consensus: %v", err)
	}

	for _, tissue := range []string{"brain", "heart", "colon"} {
		var wantUp, wantDown []string
		for i, id := range genes {
			var up, down int
			for _, r := range results {
				if r.A != tissue && r.B != tissue {
					continue
				}
				if higherIn(r, tissue, i) {
					up++
				}
				if higherIn(reversed(r), tissue, i) {
					down++
				}
			}
			if up == 2 {
				wantUp = append(wantUp, id)
			}
			if down == 2 {
				wantDown = append(wantDown, id)
			}
		}

		checkSameSet(t, tissue+" up", sets[Key{tissue, Up}], wantUp)
		checkSameSet(t, tissue+" down", sets[Key{tissue, Down}], wantDown)
	}

	// A gene in a tissue's up-set never appears in its down-set.
	for _, tissue := range []string{"brain", "heart", "colon"} {
		down := make(map[string]struct{})
		for _, id := range sets[Key{tissue, Down}] {
			down[id] = struct{}{}
		}
		for _, id := range sets[Key{tissue, Up}] {
			if _, clash := down[id]; clash {
				t.Errorf("%s: gene %s in both up and down sets", tissue, id)
			}
		}
	}
}

// reversed flips a contrast so that "higher in the B tissue" can be asked
// through the same predicate.
func reversed(r *deglm.ContrastResult) *deglm.ContrastResult {
	flipped := make([]float64, len(r.LogFC))
	for i, v := range r.LogFC {
		flipped[i] = -v
	}
	return &deglm.ContrastResult{
		Name: r.Name, A: r.A, B: r.B,
		GeneIDs: r.GeneIDs, LogFC: flipped, FDR: r.FDR,
	}
}

func checkSameSet(t *testing.T, label string, got, want []string) {
	t.Helper()
	gotSet := make(map[string]struct{}, len(got))
	for _, id := range got {
		gotSet[id] = struct{}{}
	}
	if len(gotSet) != len(want) {
		t.Errorf("%s: got %v, want %v", label, got, want)
		return
	}
	for _, id := range want {
		if _, ok := gotSet[id]; !ok {
			t.Errorf("%s: got %v, want %v", label, got, want)
			return
		}
	}
}

func TestConsensusMissingContrast(t *testing.T) {
	ab := Significant(result("brain", "heart", []string{"g1"}, []float64{2}, []float64{0.01}), alpha)

	_, err := Consensus([]Partition{ab}, ConsensusRules("brain", "heart", "colon"))
	if err == nil {
		t.Fatal("expected error for missing contrast partitions")
	}
}
