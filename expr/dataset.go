// Package expr models bulk RNA-seq expression datasets: a gene-by-sample
// count matrix together with per-gene annotation (nucleotide length and
// chromosome) and per-sample tissue labels. It covers deserialization,
// sample selection, gene filtering, and merging of column-compatible
// datasets; normalization and model fitting live elsewhere.
package expr

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/carbocation/pfx"
)

// Tissue labels the biological source of a sample. The library accepts any
// label; the analysis driver uses brain, heart, and colon.
type Tissue string

// Gene carries the row annotation for one gene. Immutable after load; used
// only by filtering predicates.
type Gene struct {
	ID         string
	Length     int
	Chromosome string
}

// Sample carries the column annotation for one sample.
type Sample struct {
	ID     string
	Tissue Tissue
}

// Dataset is a gene-by-sample matrix of non-negative read counts.
// Counts[i][j] is the number of reads for Genes[i] observed in Samples[j].
// Stages treat a Dataset as immutable: every operation returns a new one.
type Dataset struct {
	Genes   []Gene
	Samples []Sample
	Counts  [][]float64
}

// The first three columns of a serialized dataset, in order. Sample columns
// follow.
const (
	colGeneID int = iota
	colLength
	colChromosome
	colFirstSample
)

// ReadDataset deserializes a dataset from a tab-delimited file with header
// gene_id, length, chromosome, then one column per sample. Gzipped files are
// recognized by signature and decompressed on the fly. Malformed rows,
// duplicate gene identifiers, and negative or non-numeric counts all yield
// an *InputError.
func ReadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Msg: "cannot open dataset", Err: err}
	}
	defer f.Close()

	r, err := maybeDecompress(f)
	if err != nil {
		return nil, &InputError{Path: path, Msg: "cannot decompress dataset", Err: err}
	}

	d, err := parseDataset(r)
	if err != nil {
		var inErr *InputError
		if errors.As(err, &inErr) {
			inErr.Path = path
			return nil, inErr
		}
		return nil, &InputError{Path: path, Msg: "malformed dataset", Err: pfx.Err(err)}
	}

	return d, nil
}

// gzipSig is the gzip deflate byte signature.
var gzipSig = []byte{0x1f, 0x8b, 0x08}

// maybeDecompress sniffs the stream's leading bytes and wraps it in a gzip
// reader when they carry the gzip signature, so compressed datasets work
// regardless of their file extension.
func maybeDecompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(len(gzipSig))
	if err != nil && err != io.EOF {
		return nil, err
	}
	if !bytes.HasPrefix(head, gzipSig) {
		return br, nil
	}

	return gzip.NewReader(br)
}

func parseDataset(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'

	header, err := cr.Read()
	if err != nil {
		return nil, &InputError{Msg: "cannot read header", Err: err}
	}
	if len(header) < colFirstSample+1 {
		return nil, &InputError{Msg: fmt.Sprintf("header has %d columns; need gene_id, length, chromosome, and at least one sample", len(header))}
	}

	d := &Dataset{}
	for _, id := range header[colFirstSample:] {
		d.Samples = append(d.Samples, Sample{ID: id})
	}

	seen := make(map[string]struct{})
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &InputError{Msg: "malformed row", Err: err}
		}

		id := rec[colGeneID]
		if _, dup := seen[id]; dup {
			return nil, &InputError{Msg: fmt.Sprintf("duplicate gene identifier %q", id)}
		}
		seen[id] = struct{}{}

		length, err := strconv.Atoi(rec[colLength])
		if err != nil {
			return nil, &InputError{Msg: fmt.Sprintf("gene %s: invalid length %q", id, rec[colLength]), Err: err}
		}

		row := make([]float64, 0, len(d.Samples))
		for i, field := range rec[colFirstSample:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, &InputError{Msg: fmt.Sprintf("gene %s, sample %s: invalid count %q", id, d.Samples[i].ID, field), Err: err}
			}
			if v < 0 {
				return nil, &InputError{Msg: fmt.Sprintf("gene %s, sample %s: negative count %v", id, d.Samples[i].ID, v)}
			}
			row = append(row, v)
		}

		d.Genes = append(d.Genes, Gene{ID: id, Length: length, Chromosome: rec[colChromosome]})
		d.Counts = append(d.Counts, row)
	}

	return d, nil
}

// Select returns the column subset of d named by sampleIDs, in the order
// given, with every retained sample labeled with tissue. A name absent from d
// yields an *InputError.
func (d *Dataset) Select(sampleIDs []string, tissue Tissue) (*Dataset, error) {
	byID := make(map[string]int, len(d.Samples))
	for j, s := range d.Samples {
		byID[s.ID] = j
	}

	cols := make([]int, 0, len(sampleIDs))
	for _, id := range sampleIDs {
		j, ok := byID[id]
		if !ok {
			return nil, &InputError{Msg: fmt.Sprintf("sample %q not present in dataset", id)}
		}
		cols = append(cols, j)
	}

	return d.selectColumns(cols, tissue), nil
}

// SelectIndices is Select for 0-based column positions, retained because the
// published input layout is positional. An out-of-range index yields an
// *InputError.
func (d *Dataset) SelectIndices(cols []int, tissue Tissue) (*Dataset, error) {
	for _, j := range cols {
		if j < 0 || j >= len(d.Samples) {
			return nil, &InputError{Msg: fmt.Sprintf("sample column %d out of range (dataset has %d samples)", j, len(d.Samples))}
		}
	}

	return d.selectColumns(cols, tissue), nil
}

func (d *Dataset) selectColumns(cols []int, tissue Tissue) *Dataset {
	out := &Dataset{
		Genes:   d.Genes,
		Samples: make([]Sample, 0, len(cols)),
		Counts:  make([][]float64, len(d.Genes)),
	}
	for _, j := range cols {
		out.Samples = append(out.Samples, Sample{ID: d.Samples[j].ID, Tissue: tissue})
	}
	for i, row := range d.Counts {
		sub := make([]float64, 0, len(cols))
		for _, j := range cols {
			sub = append(sub, row[j])
		}
		out.Counts[i] = sub
	}

	return out
}

// GeneIDs returns the row keys in matrix order.
func (d *Dataset) GeneIDs() []string {
	ids := make([]string, len(d.Genes))
	for i, g := range d.Genes {
		ids[i] = g.ID
	}
	return ids
}

// SampleIDs returns the column keys in matrix order.
func (d *Dataset) SampleIDs() []string {
	ids := make([]string, len(d.Samples))
	for j, s := range d.Samples {
		ids[j] = s.ID
	}
	return ids
}

// Tissues returns the per-sample tissue labels in column order.
func (d *Dataset) Tissues() []Tissue {
	ts := make([]Tissue, len(d.Samples))
	for j, s := range d.Samples {
		ts[j] = s.Tissue
	}
	return ts
}
