package export

import (
	"bytes"
	"io"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/dacolombo/bulk-RNA-Seq/deglm"
)

// LibrarySizeBar renders per-sample library sizes (in millions of reads) as
// a bar chart PNG.
func LibrarySizeBar(path string, sampleIDs []string, libSizes []float64) error {
	bars := make([]chart.Value, len(sampleIDs))
	for j, id := range sampleIDs {
		bars[j] = chart.Value{Label: id, Value: libSizes[j] / 1e6}
	}

	graph := chart.BarChart{
		Title:    "Library size (millions)",
		Width:    64 * len(bars),
		Height:   512,
		BarWidth: 40,
		Bars:     bars,
	}

	return renderPNG(path, graph.Render)
}

// MAPlot renders one contrast as average abundance against log fold change,
// with genes below the FDR threshold drawn in red.
func MAPlot(path string, res *deglm.ContrastResult, avgLogCPM []float64, alpha float64) error {
	var sig, rest chart.ContinuousSeries
	for i := range res.GeneIDs {
		if res.FDR[i] < alpha {
			sig.XValues = append(sig.XValues, avgLogCPM[i])
			sig.YValues = append(sig.YValues, res.LogFC[i])
		} else {
			rest.XValues = append(rest.XValues, avgLogCPM[i])
			rest.YValues = append(rest.YValues, res.LogFC[i])
		}
	}

	rest.Style = dotStyle(drawing.ColorFromHex("4a4a4a"))
	sig.Style = dotStyle(drawing.ColorRed)

	series := make([]chart.Series, 0, 2)
	if len(rest.XValues) > 0 {
		series = append(series, rest)
	}
	if len(sig.XValues) > 0 {
		series = append(series, sig)
	}

	graph := chart.Chart{
		Title:  res.Name,
		Width:  768,
		Height: 512,
		XAxis:  chart.XAxis{Name: "average log2 CPM"},
		YAxis:  chart.YAxis{Name: "log2 fold change"},
		Series: series,
	}

	return renderPNG(path, graph.Render)
}

func dotStyle(c drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    2,
		DotColor:    c,
	}
}

func renderPNG(path string, render func(chart.RendererProvider, io.Writer) error) error {
	buffer := bytes.NewBuffer([]byte{})
	if err := render(chart.PNG, buffer); err != nil {
		return err
	}

	outFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer outFile.Close()

	_, err = buffer.WriteTo(outFile)
	return err
}
