// exprstats prints the per-sample gene filtering statistics of one
// expression dataset as tab-delimited text, without running the rest of the
// differential expression workflow.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dacolombo/bulk-RNA-Seq/expr"
)

var (
	BufferSize = 4096
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

func main() {
	defer STDOUT.Flush()

	var (
		input     string
		sampleCSV string
		minLength int
		mitoChrom string
	)
	flag.StringVar(&input, "input", "", "Path to an expression dataset (TSV, optionally gzipped)")
	flag.StringVar(&sampleCSV, "samples", "", "Optional comma-delimited sample names to keep (default: all)")
	flag.IntVar(&minLength, "min-length", 200, "Minimum gene length in bases")
	flag.StringVar(&mitoChrom, "mito", "MT", "Chromosome label of the mitochondrial contig")
	flag.Parse()

	if input == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := printStats(input, sampleCSV, minLength, mitoChrom); err != nil {
		log.Fatalln(err)
	}
}

func printStats(input, sampleCSV string, minLength int, mitoChrom string) error {
	d, err := expr.ReadDataset(input)
	if err != nil {
		return err
	}

	if sampleCSV != "" {
		d, err = d.Select(strings.Split(sampleCSV, ","), "")
		if err != nil {
			return err
		}
	}

	_, fstats := expr.FilterGenes(d, minLength, mitoChrom)

	fmt.Fprintln(STDOUT, strings.Join([]string{
		"sample", "total_reads", "short_reads", "short_pct", "mito_reads", "mito_pct",
	}, "\t"))
	for _, s := range fstats {
		fmt.Fprintf(STDOUT, "%s\t%.0f\t%.0f\t%f\t%.0f\t%f\n",
			s.SampleID, s.TotalReads, s.ShortReads, s.ShortPct, s.MitoReads, s.MitoPct)
	}

	return nil
}
