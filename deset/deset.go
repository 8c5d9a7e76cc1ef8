// Package deset derives tissue-level differential expression gene sets from
// pairwise contrast results. Each significant contrast is split into up and
// down halves by fold-change sign, and each tissue's consensus set is the
// intersection of the two contrast halves in which that tissue is the higher
// (or lower) side.
//
// Which half of which contrast says "higher in tissue X" is the one place
// this bookkeeping can silently go wrong, so the mapping is written out as
// an explicit rule table rather than computed on the fly.
package deset

import (
	"fmt"

	"github.com/dacolombo/bulk-RNA-Seq/deglm"
)

// Direction of differential expression relative to the other tissues.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Partition is one pairwise contrast thresholded by corrected significance
// and split by fold-change sign. Gene order follows the contrast result;
// genes with zero fold change belong to neither half.
type Partition struct {
	Contrast string
	A, B     string

	Up   []string // higher in A
	Down []string // higher in B
}

// Significant thresholds res at FDR < alpha and partitions the surviving
// genes by the sign of their log fold change.
func Significant(res *deglm.ContrastResult, alpha float64) Partition {
	p := Partition{Contrast: res.Name, A: res.A, B: res.B}
	for i, id := range res.GeneIDs {
		if res.FDR[i] >= alpha {
			continue
		}
		switch {
		case res.LogFC[i] > 0:
			p.Up = append(p.Up, id)
		case res.LogFC[i] < 0:
			p.Down = append(p.Down, id)
		}
	}
	return p
}

// Operand names one half of one contrast.
type Operand struct {
	Contrast string
	Dir      Direction
}

// Key addresses one tissue-level consensus set.
type Key struct {
	Tissue string
	Dir    Direction
}

// ConsensusRules returns the rule table for tissues a, b, c compared by the
// contrasts a-vs-b, a-vs-c, and b-vs-c. Each consensus set is the
// intersection of exactly two contrast halves:
//
//	a up:   up in a-vs-b   and up in a-vs-c
//	a down: down in a-vs-b and down in a-vs-c
//	b up:   up in b-vs-c   and down in a-vs-b (a-vs-b down means b higher)
//	b down: down in b-vs-c and up in a-vs-b
//	c up:   down in a-vs-c and down in b-vs-c
//	c down: up in a-vs-c   and up in b-vs-c
func ConsensusRules(a, b, c string) map[Key][2]Operand {
	ab := deglm.ContrastName(a, b)
	ac := deglm.ContrastName(a, c)
	bc := deglm.ContrastName(b, c)

	return map[Key][2]Operand{
		{a, Up}:   {{ab, Up}, {ac, Up}},
		{a, Down}: {{ab, Down}, {ac, Down}},
		{b, Up}:   {{bc, Up}, {ab, Down}},
		{b, Down}: {{bc, Down}, {ab, Up}},
		{c, Up}:   {{ac, Down}, {bc, Down}},
		{c, Down}: {{ac, Up}, {bc, Up}},
	}
}

// Consensus applies the rule table to the partitioned contrasts, assigning
// each gene to the tissue it characterizes. The order of each output set
// follows the rule's first operand. A rule naming a contrast absent from
// parts is an error.
func Consensus(parts []Partition, rules map[Key][2]Operand) (map[Key][]string, error) {
	byName := make(map[string]Partition, len(parts))
	for _, p := range parts {
		byName[p.Contrast] = p
	}

	out := make(map[Key][]string, len(rules))
	for key, rule := range rules {
		first, err := operandGenes(byName, rule[0])
		if err != nil {
			return nil, fmt.Errorf("deset: %s %s: %w", key.Tissue, key.Dir, err)
		}
		second, err := operandGenes(byName, rule[1])
		if err != nil {
			return nil, fmt.Errorf("deset: %s %s: %w", key.Tissue, key.Dir, err)
		}

		inSecond := make(map[string]struct{}, len(second))
		for _, id := range second {
			inSecond[id] = struct{}{}
		}

		var set []string
		for _, id := range first {
			if _, ok := inSecond[id]; ok {
				set = append(set, id)
			}
		}
		out[key] = set
	}

	return out, nil
}

func operandGenes(byName map[string]Partition, op Operand) ([]string, error) {
	p, ok := byName[op.Contrast]
	if !ok {
		return nil, fmt.Errorf("no partition for contrast %q", op.Contrast)
	}
	if op.Dir == Up {
		return p.Up, nil
	}
	return p.Down, nil
}
