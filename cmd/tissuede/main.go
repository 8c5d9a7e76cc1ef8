// tissuede runs the three-tissue bulk RNA-seq differential expression
// workflow: per-tissue loading and gene filtering, merging, TMM
// normalization, negative binomial model fitting, pairwise contrasts, and
// derivation of the genes that characterize each tissue. Outputs are one
// multi-sheet spreadsheet of gene identifiers, one symbol list per tissue,
// and (optionally) summary plots.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/dacolombo/bulk-RNA-Seq/deglm"
	"github.com/dacolombo/bulk-RNA-Seq/deset"
	"github.com/dacolombo/bulk-RNA-Seq/export"
	"github.com/dacolombo/bulk-RNA-Seq/expr"
	"github.com/dacolombo/bulk-RNA-Seq/genemap"
	"github.com/dacolombo/bulk-RNA-Seq/norm"
)

var tissues = []expr.Tissue{"brain", "heart", "colon"}

func main() {
	var (
		inputs    = make(map[expr.Tissue]*string)
		samples   = make(map[expr.Tissue]*string)
		mapping   string
		outDir    string
		minLength int
		alpha     float64
		mitoChrom string
		plots     bool
	)

	for _, tissue := range tissues {
		name := string(tissue)
		inputs[tissue] = flag.String(name, "", "Path to the "+name+" expression dataset (TSV, optionally gzipped)")
		samples[tissue] = flag.String(name+"-samples", "", "Optional comma-delimited sample names to keep from the "+name+" dataset (default: all)")
	}
	flag.StringVar(&mapping, "mapping", "", "Path to the gene_id/symbol mapping TSV")
	flag.StringVar(&outDir, "outdir", ".", "Directory for the output files")
	flag.IntVar(&minLength, "min-length", 200, "Minimum gene length in bases; shorter genes are removed")
	flag.Float64Var(&alpha, "alpha", 0.05, "FDR threshold for calling a gene differentially expressed")
	flag.StringVar(&mitoChrom, "mito", "MT", "Chromosome label of the mitochondrial contig")
	flag.BoolVar(&plots, "plots", false, "Also render library-size and MA plots")
	flag.Parse()

	for _, tissue := range tissues {
		if *inputs[tissue] == "" {
			flag.PrintDefaults()
			log.Fatalf("Please provide --%s", tissue)
		}
	}
	if mapping == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --mapping")
	}

	paths := make(map[expr.Tissue]string)
	keep := make(map[expr.Tissue][]string)
	for _, tissue := range tissues {
		paths[tissue] = *inputs[tissue]
		if s := *samples[tissue]; s != "" {
			keep[tissue] = strings.Split(s, ",")
		}
	}

	if err := run(paths, keep, mapping, outDir, minLength, alpha, mitoChrom, plots); err != nil {
		log.Fatalln(err)
	}
}

func run(paths map[expr.Tissue]string, keep map[expr.Tissue][]string, mapping, outDir string, minLength int, alpha float64, mitoChrom string, plots bool) error {

	symbols, err := genemap.Load(mapping)
	if err != nil {
		return fmt.Errorf("loading symbol mapping: %w", err)
	}

	// Stage 1: load, subset, and filter each tissue.
	var filtered []*expr.Dataset
	for _, tissue := range tissues {
		log.Printf("Loading %s dataset from %s", tissue, paths[tissue])
		d, err := expr.ReadDataset(paths[tissue])
		if err != nil {
			return err
		}

		ids := keep[tissue]
		if len(ids) == 0 {
			ids = d.SampleIDs()
		}
		d, err = d.Select(ids, tissue)
		if err != nil {
			return fmt.Errorf("%s: %w", tissue, err)
		}

		f, fstats := expr.FilterGenes(d, minLength, mitoChrom)
		logFilterStats(tissue, fstats)
		log.Printf("%s: %d of %d genes retained over %d samples", tissue, len(f.Genes), len(d.Genes), len(f.Samples))

		filtered = append(filtered, f)
	}

	// Stage 2: one matrix, one tissue label per sample.
	merged, err := expr.Merge(filtered...)
	if err != nil {
		return err
	}
	log.Printf("Merged matrix: %d genes x %d samples", len(merged.Genes), len(merged.Samples))

	// Stage 3: TMM normalization.
	lib := norm.LibSizes(merged)
	factors := norm.TMMFactors(merged)
	effLib := norm.EffectiveLibSizes(lib, factors)
	logCPMBefore := norm.LogCPM(merged, lib)
	logCPMAfter := norm.LogCPM(merged, effLib)
	logNormalizationShift(merged, logCPMBefore, logCPMAfter)

	// Stage 4: model fit and the three pairwise contrasts.
	fit, err := deglm.FitGroups(merged, effLib)
	if err != nil {
		return err
	}

	pairs := [][2]expr.Tissue{
		{"brain", "heart"},
		{"brain", "colon"},
		{"heart", "colon"},
	}
	var contrasts []*deglm.ContrastResult
	for _, pair := range pairs {
		res, err := fit.Contrast(string(pair[0]), string(pair[1]))
		if err != nil {
			return err
		}
		contrasts = append(contrasts, res)
	}

	// Stage 5: tissue consensus sets.
	parts := make([]deset.Partition, len(contrasts))
	for i, res := range contrasts {
		parts[i] = deset.Significant(res, alpha)
		log.Printf("%s: %d up, %d down at FDR < %v", res.Name, len(parts[i].Up), len(parts[i].Down), alpha)
	}

	rules := deset.ConsensusRules("brain", "heart", "colon")
	sets, err := deset.Consensus(parts, rules)
	if err != nil {
		return err
	}
	for _, tissue := range tissues {
		log.Printf("%s consensus: %d up, %d down",
			tissue, len(sets[deset.Key{Tissue: string(tissue), Dir: deset.Up}]), len(sets[deset.Key{Tissue: string(tissue), Dir: deset.Down}]))
	}

	// Stage 6: everything is computed; only now touch the filesystem.
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	sheets := make([]export.Sheet, 0, len(parts)+len(tissues))
	for _, p := range parts {
		sheets = append(sheets, export.Sheet{
			Name: p.Contrast,
			Columns: []export.Column{
				{Name: "up", Values: p.Up},
				{Name: "down", Values: p.Down},
			},
		})
	}
	for _, tissue := range tissues {
		sheets = append(sheets, export.Sheet{
			Name: string(tissue),
			Columns: []export.Column{
				{Name: "up", Values: sets[deset.Key{Tissue: string(tissue), Dir: deset.Up}]},
				{Name: "down", Values: sets[deset.Key{Tissue: string(tissue), Dir: deset.Down}]},
			},
		})
	}

	xlsxPath := filepath.Join(outDir, "de_genes.xlsx")
	if err := export.WriteXLSX(xlsxPath, sheets); err != nil {
		return err
	}
	log.Printf("Wrote %s", xlsxPath)

	for _, tissue := range tissues {
		ids := append(append([]string(nil),
			sets[deset.Key{Tissue: string(tissue), Dir: deset.Up}]...),
			sets[deset.Key{Tissue: string(tissue), Dir: deset.Down}]...)

		syms, skipped := symbols.Symbols(ids)
		if skipped > 0 {
			log.Printf("%s: %d of %d identifiers had no symbol and were skipped", tissue, skipped, len(ids))
		}

		path := filepath.Join(outDir, string(tissue)+"_symbols.txt")
		if err := export.WriteGeneList(path, syms); err != nil {
			return err
		}
		log.Printf("Wrote %s (%d symbols)", path, len(syms))
	}

	if plots {
		if err := renderPlots(outDir, merged, lib, logCPMAfter, contrasts, alpha); err != nil {
			return err
		}
	}

	return nil
}

// logFilterStats prints the per-sample filtering summary. NaN percentages
// mark samples with no reads at all and are reported as-is.
func logFilterStats(tissue expr.Tissue, fstats []expr.FilterStats) {
	log.Printf("%s filtering statistics:", tissue)
	log.Printf("  %-20s %12s %12s %8s %12s %8s", "sample", "total", "short", "short%", "mito", "mito%")
	for _, s := range fstats {
		if math.IsNaN(s.ShortPct) {
			log.Printf("  %s: no reads; percentages undefined", s.SampleID)
		}
		log.Printf("  %-20s %12.0f %12.0f %8.2f %12.0f %8.2f",
			s.SampleID, s.TotalReads, s.ShortReads, s.ShortPct, s.MitoReads, s.MitoPct)
	}
}

// logNormalizationShift reports the per-sample median log2 CPM before and
// after TMM scaling, a quick check that scaling pulled the samples together.
func logNormalizationShift(d *expr.Dataset, before, after [][]float64) {
	col := make([]float64, len(d.Counts))
	for j, s := range d.Samples {
		for i := range d.Counts {
			col[i] = before[i][j]
		}
		mBefore, err := stats.Median(col)
		if err != nil {
			continue
		}
		for i := range d.Counts {
			col[i] = after[i][j]
		}
		mAfter, err := stats.Median(col)
		if err != nil {
			continue
		}
		log.Printf("%s (%s): median log2 CPM %.3f -> %.3f", s.ID, s.Tissue, mBefore, mAfter)
	}
}

func renderPlots(outDir string, d *expr.Dataset, lib []float64, logCPM [][]float64, contrasts []*deglm.ContrastResult, alpha float64) error {
	libPath := filepath.Join(outDir, "library_sizes.png")
	if err := export.LibrarySizeBar(libPath, d.SampleIDs(), lib); err != nil {
		return err
	}
	log.Printf("Wrote %s", libPath)

	avg := make([]float64, len(logCPM))
	for i, row := range logCPM {
		var sum float64
		for _, v := range row {
			sum += v
		}
		avg[i] = sum / float64(len(row))
	}

	for _, res := range contrasts {
		path := filepath.Join(outDir, res.Name+"_ma.png")
		if err := export.MAPlot(path, res, avg, alpha); err != nil {
			return err
		}
		log.Printf("Wrote %s", path)
	}

	return nil
}
