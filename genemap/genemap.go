// Package genemap maps Ensembl gene identifiers to gene symbols using a
// BioMart-style tab-delimited lookup table.
package genemap

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

type mappingRow struct {
	GeneID string `csv:"gene_id"`
	Symbol string `csv:"symbol"`
}

// Mapping resolves versioned or unversioned gene identifiers to symbols.
type Mapping struct {
	symbols map[string][]string
}

// Load reads a tab-delimited mapping table with a gene_id and a symbol
// column. An identifier may map to several symbols; lookups resolve the
// ambiguity by taking the first symbol in file order.
func Load(path string) (*Mapping, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	// Tell gocsv to use tab as the delimiter
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})

	var records []mappingRow
	if err := gocsv.UnmarshalBytes(fileBytes, &records); err != nil {
		return nil, pfx.Err(err)
	}

	m := &Mapping{symbols: make(map[string][]string)}
	for _, rec := range records {
		if rec.Symbol == "" {
			continue
		}
		id := StripVersion(rec.GeneID)
		m.symbols[id] = append(m.symbols[id], rec.Symbol)
	}

	return m, nil
}

// StripVersion removes the trailing .N version from an Ensembl identifier.
func StripVersion(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}

// Symbol resolves one identifier. Multi-mapped identifiers yield their first
// symbol; ok is false when no symbol is known.
func (m *Mapping) Symbol(id string) (symbol string, ok bool) {
	syms := m.symbols[StripVersion(id)]
	if len(syms) == 0 {
		return "", false
	}
	return syms[0], true
}

// Symbols resolves a list of identifiers, skipping and counting the ones
// with no known symbol. Skipped identifiers are logged and never abort the
// run.
func (m *Mapping) Symbols(ids []string) (symbols []string, skipped int) {
	for _, id := range ids {
		sym, ok := m.Symbol(id)
		if !ok {
			log.Printf("genemap: no symbol for %s; skipping", id)
			skipped++
			continue
		}
		symbols = append(symbols, sym)
	}
	return symbols, skipped
}
