package deglm

import (
	"math"
	"testing"

	"github.com/dacolombo/bulk-RNA-Seq/expr"
)

// threeGroupDataset builds a dataset with three samples per tissue.
func threeGroupDataset(counts [][]float64) *expr.Dataset {
	d := &expr.Dataset{Counts: counts}
	for i := range counts {
		d.Genes = append(d.Genes, expr.Gene{ID: gene(i), Length: 1000, Chromosome: "1"})
	}
	for _, tissue := range []expr.Tissue{"brain", "heart", "colon"} {
		for r := 0; r < 3; r++ {
			d.Samples = append(d.Samples, expr.Sample{
				ID:     string(tissue) + string(rune('1'+r)),
				Tissue: tissue,
			})
		}
	}
	return d
}

func gene(i int) string { return "G" + string(rune('1'+i)) }

func unitLibs(n int, size float64) []float64 {
	lib := make([]float64, n)
	for j := range lib {
		lib[j] = size
	}
	return lib
}

func TestFitGroups(t *testing.T) {
	d := threeGroupDataset([][]float64{
		// brain          heart          colon
		{400, 410, 390, 100, 95, 105, 100, 102, 98},
		{50, 52, 48, 50, 49, 51, 50, 53, 47},
	})
	fit, err := FitGroups(d, unitLibs(9, 1e6))
	if err != nil {
		t.Fatalf("FitGroups: %v", err)
	}

	if got, want := len(fit.Groups), 3; got != want {
		t.Fatalf("groups: got %d, want %d", got, want)
	}
	if got, want := fit.ResidualDF, 6.0; got != want {
		t.Errorf("residual df: got %v, want %v", got, want)
	}

	// G1 brain abundance is 4x its heart abundance: coefficient gap near 2.
	gap := fit.Coef[0][0] - fit.Coef[0][1]
	if math.Abs(gap-2) > 0.05 {
		t.Errorf("brain-heart coefficient gap: got %v, want about 2", gap)
	}

	for i, phi := range fit.Dispersion {
		if phi < 0 {
			t.Errorf("gene %d dispersion: got %v, want >= 0", i, phi)
		}
	}
}

func TestFitGroupsErrors(t *testing.T) {
	one := &expr.Dataset{
		Genes:   []expr.Gene{{ID: "G1"}},
		Samples: []expr.Sample{{ID: "s1", Tissue: "brain"}, {ID: "s2", Tissue: "brain"}},
		Counts:  [][]float64{{1, 2}},
	}
	if _, err := FitGroups(one, unitLibs(2, 1e6)); err == nil {
		t.Error("single group: expected error")
	}

	d := threeGroupDataset([][]float64{{1, 1, 1, 1, 1, 1, 1, 1, 1}})
	if _, err := FitGroups(d, unitLibs(3, 1e6)); err == nil {
		t.Error("mismatched library sizes: expected error")
	}
}

func TestContrast(t *testing.T) {
	d := threeGroupDataset([][]float64{
		{400, 410, 390, 100, 95, 105, 100, 102, 98}, // brain-specific
		{50, 52, 48, 50, 49, 51, 50, 53, 47},        // flat
	})
	fit, err := FitGroups(d, unitLibs(9, 1e6))
	if err != nil {
		t.Fatal(err)
	}

	res, err := fit.Contrast("brain", "heart")
	if err != nil {
		t.Fatalf("Contrast: %v", err)
	}
	if got, want := res.Name, "brain_vs_heart"; got != want {
		t.Errorf("name: got %q, want %q", got, want)
	}

	if res.LogFC[0] < 1.5 {
		t.Errorf("G1 logFC: got %v, want > 1.5", res.LogFC[0])
	}
	if res.PValue[0] > 0.01 {
		t.Errorf("G1 p-value: got %v, want < 0.01", res.PValue[0])
	}
	if math.Abs(res.LogFC[1]) > 0.2 {
		t.Errorf("flat gene logFC: got %v, want near 0", res.LogFC[1])
	}
	if res.PValue[1] < 0.2 {
		t.Errorf("flat gene p-value: got %v, want large", res.PValue[1])
	}

	// Reversing the contrast flips the effect size.
	rev, err := fit.Contrast("heart", "brain")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := rev.LogFC[0], -res.LogFC[0]; math.Abs(got-want) > 1e-12 {
		t.Errorf("reversed logFC: got %v, want %v", got, want)
	}

	if _, err := fit.Contrast("brain", "liver"); err == nil {
		t.Error("unknown group: expected error")
	}
}

// Fixture checked by hand against the step-up procedure (and R's p.adjust).
func TestBH(t *testing.T) {
	p := []float64{0.005, 0.009, 0.05, 0.1, 0.2, 0.9}
	want := []float64{0.027, 0.027, 0.1, 0.15, 0.24, 0.9}

	got := BH(p)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("BH[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBHUnsortedInput(t *testing.T) {
	p := []float64{0.9, 0.005, 0.2, 0.009, 0.1, 0.05}
	want := []float64{0.9, 0.027, 0.24, 0.027, 0.15, 0.1}

	got := BH(p)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("BH[%d]: got %v, want %v", i, got[i], want[i])
		}
	}

	if BH(nil) != nil {
		t.Error("BH(nil): expected nil")
	}
}
