package export

import (
	"bufio"
	"os"

	"github.com/carbocation/pfx"
)

// WriteGeneList writes one symbol per line to path.
func WriteGeneList(path string, symbols []string) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, s := range symbols {
		if _, err := w.WriteString(s + "\n"); err != nil {
			return pfx.Err(err)
		}
	}
	return pfx.Err(w.Flush())
}

// ReadGeneList reads a newline-delimited symbol list written by
// WriteGeneList.
func ReadGeneList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	var symbols []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		symbols = append(symbols, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	return symbols, nil
}
