package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/utils"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf" // registers the pdf format
	_ "gonum.org/v1/plot/vg/vgsvg" // registers the svg format
)

// Supported export formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

const (
	gweiDecimals = 9
	maxDayLabels = 15
)

// Renderer draws charts with gonum/plot. It implements port.ChartRenderer.
type Renderer struct {
	theme  Theme
	width  vg.Length
	height vg.Length
	dpi    int
}

// NewRenderer creates a renderer; sizes are in inches.
func NewRenderer(themeName string, widthInches, heightInches float64, dpi int) (*Renderer, error) {
	theme, err := ThemeByName(themeName)
	if err != nil {
		return nil, err
	}
	if widthInches <= 0 {
		widthInches = 12
	}
	if heightInches <= 0 {
		heightInches = 6
	}
	if dpi <= 0 {
		dpi = 100
	}
	return &Renderer{
		theme:  theme,
		width:  vg.Length(widthInches) * vg.Inch,
		height: vg.Length(heightInches) * vg.Inch,
		dpi:    dpi,
	}, nil
}

// FormatFromPath derives the export format from a file extension.
func FormatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func checkFormat(format string) error {
	switch format {
	case FormatPNG, FormatSVG, FormatPDF:
		return nil
	default:
		return fmt.Errorf("unsupported export format %q (want png, svg or pdf)", format)
	}
}

// newCanvas returns a sized canvas for format; PNG honors the configured DPI.
func (r *Renderer) newCanvas(format string, w, h vg.Length) (vg.CanvasWriterTo, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if format == FormatPNG {
		img := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(r.dpi))
		return vgimg.PngCanvas{Canvas: img}, nil
	}
	return draw.NewFormattedCanvas(w, h, format)
}

func writeCanvas(c vg.CanvasWriterTo, filename string) error {
	if err := utils.EnsureParentDir(filename); err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return f.Close()
}

// Export writes p to filename in the given format.
func (r *Renderer) Export(p *plot.Plot, filename, format string) error {
	format = strings.ToLower(format)
	c, err := r.newCanvas(format, r.width, r.height)
	if err != nil {
		return err
	}
	p.Draw(draw.New(c))
	return writeCanvas(c, filename)
}

func (r *Renderer) save(p *plot.Plot, output string) error {
	return r.Export(p, output, FormatFromPath(output))
}

func (r *Renderer) newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	r.theme.apply(p)
	return p
}

// placeholder is drawn in place of a chart that has no data.
func (r *Renderer) placeholder(title, note string) (*plot.Plot, error) {
	p := r.newPlot(title, "", "")
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: 0.4, Y: 0.5}},
		Labels: []string{note},
	})
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = r.theme.Foreground
	}
	p.Add(labels)
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.HideAxes()
	return p, nil
}

func (r *Renderer) volumePlot(days []entity.DailyVolume) (*plot.Plot, error) {
	if len(days) == 0 {
		return r.placeholder("Transaction Volume", "no transaction data")
	}

	values := make(plotter.Values, len(days))
	names := make([]string, len(days))
	step := (len(days) + maxDayLabels - 1) / maxDayLabels
	for i, d := range days {
		values[i], _ = d.Volume.Float64()
		if i%step == 0 {
			names[i] = d.Day.Format("01-02")
		}
	}

	p := r.newPlot("Daily Transaction Volume", "Date", "Volume (ETH)")
	bars, err := plotter.NewBarChart(values, vg.Points(barWidth(len(days))))
	if err != nil {
		return nil, fmt.Errorf("failed to build volume bars: %w", err)
	}
	bars.Color = r.theme.Accent(0)
	bars.LineStyle.Width = 0
	p.Add(r.theme.grid(), bars)
	p.NominalX(names...)
	return p, nil
}

func barWidth(n int) float64 {
	switch {
	case n > 90:
		return 4
	case n > 30:
		return 8
	default:
		return 20
	}
}

func (r *Renderer) pricePlot(points []entity.PricePoint, symbol string) (*plot.Plot, error) {
	title := fmt.Sprintf("%s Price Evolution", symbol)
	if len(points) == 0 {
		return r.placeholder(title, "no price data")
	}

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.Time.Unix())
		xys[i].Y, _ = pt.Price.Float64()
	}

	p := r.newPlot(title, "Date", "Price (USD)")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to build price line: %w", err)
	}
	line.LineStyle.Color = r.theme.Accent(0)
	line.LineStyle.Width = vg.Points(2)
	p.Add(r.theme.grid(), line)
	return p, nil
}

func (r *Renderer) allocationPlot(valuesUSD map[string]float64) (*plot.Plot, error) {
	keys := make([]string, 0, len(valuesUSD))
	var total float64
	for k, v := range valuesUSD {
		if v <= 0 {
			continue
		}
		keys = append(keys, k)
		total += v
	}
	if len(keys) == 0 {
		return r.placeholder("Portfolio Allocation", "no holdings with a USD value")
	}
	// smallest first so the largest holding ends up on top
	sort.Slice(keys, func(i, j int) bool {
		if valuesUSD[keys[i]] == valuesUSD[keys[j]] {
			return keys[i] > keys[j]
		}
		return valuesUSD[keys[i]] < valuesUSD[keys[j]]
	})

	values := make(plotter.Values, len(keys))
	xys := make(plotter.XYs, len(keys))
	pcts := make([]string, len(keys))
	for i, k := range keys {
		values[i] = valuesUSD[k]
		xys[i] = plotter.XY{X: valuesUSD[k], Y: float64(i)}
		pcts[i] = fmt.Sprintf("%.1f%%", valuesUSD[k]/total*100)
	}

	p := r.newPlot("Portfolio Allocation", "Value (USD)", "")
	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, fmt.Errorf("failed to build allocation bars: %w", err)
	}
	bars.Horizontal = true
	bars.Color = r.theme.Accent(1)
	bars.LineStyle.Width = 0

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: pcts})
	if err != nil {
		return nil, fmt.Errorf("failed to build allocation labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = r.theme.Foreground
	}
	labels.Offset = vg.Point{X: vg.Points(4), Y: vg.Points(-4)}

	p.Add(r.theme.grid(), bars, labels)
	p.NominalY(shortLabels(keys)...)
	p.X.Min = 0
	p.X.Max = values[len(values)-1] * 1.15
	return p, nil
}

// shortLabels abbreviates "network:0xabc...def" keys.
func shortLabels(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		network, addr, found := strings.Cut(k, ":")
		if found && utils.IsValidAddress(addr) {
			out[i] = fmt.Sprintf("%s:%s...%s", network, addr[:6], addr[len(addr)-4:])
			continue
		}
		out[i] = k
	}
	return out
}

func (r *Renderer) gasPlot(txs []entity.Transaction) (*plot.Plot, error) {
	xys := make(plotter.XYs, 0, len(txs))
	for _, tx := range txs {
		if tx.GasPrice == nil || tx.Timestamp.IsZero() {
			continue
		}
		gwei, _ := utils.ToDecimal(tx.GasPrice, gweiDecimals).Float64()
		xys = append(xys, plotter.XY{X: float64(tx.Timestamp.Unix()), Y: gwei})
	}
	if len(xys) == 0 {
		return r.placeholder("Gas Price", "no transaction data")
	}
	sort.Slice(xys, func(i, j int) bool { return xys[i].X < xys[j].X })

	p := r.newPlot("Gas Price per Transaction", "Date", "Gas price (gwei)")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to build gas line: %w", err)
	}
	line.LineStyle.Color = r.theme.Accent(2)
	points.GlyphStyle.Color = r.theme.Accent(2)
	points.GlyphStyle.Radius = vg.Points(2)
	p.Add(r.theme.grid(), line, points)
	return p, nil
}

// TransactionVolume draws a bar chart of daily volume.
func (r *Renderer) TransactionVolume(days []entity.DailyVolume, output string) error {
	p, err := r.volumePlot(days)
	if err != nil {
		return err
	}
	return r.save(p, output)
}

// PriceEvolution draws a price line over time.
func (r *Renderer) PriceEvolution(points []entity.PricePoint, symbol, output string) error {
	p, err := r.pricePlot(points, symbol)
	if err != nil {
		return err
	}
	return r.save(p, output)
}

// Allocation draws a horizontal bar chart of USD value per holding with percentage labels.
func (r *Renderer) Allocation(valuesUSD map[string]float64, output string) error {
	p, err := r.allocationPlot(valuesUSD)
	if err != nil {
		return err
	}
	return r.save(p, output)
}

// GasUsage draws gas price per transaction over time.
func (r *Renderer) GasUsage(txs []entity.Transaction, output string) error {
	p, err := r.gasPlot(txs)
	if err != nil {
		return err
	}
	return r.save(p, output)
}

// Dashboard stacks every non-empty section of data into one image, one panel per row.
func (r *Renderer) Dashboard(data entity.DashboardData, output string) error {
	var panels []*plot.Plot
	add := func(p *plot.Plot, err error) error {
		if err != nil {
			return err
		}
		panels = append(panels, p)
		return nil
	}

	if len(data.Volume) > 0 {
		if err := add(r.volumePlot(data.Volume)); err != nil {
			return err
		}
	}
	if len(data.Transactions) > 0 {
		if err := add(r.gasPlot(data.Transactions)); err != nil {
			return err
		}
	}
	if len(data.Prices) > 0 {
		if err := add(r.pricePlot(data.Prices, "ETH")); err != nil {
			return err
		}
	}
	if len(data.AllocationUSD) > 0 {
		if err := add(r.allocationPlot(data.AllocationUSD)); err != nil {
			return err
		}
	}
	if len(panels) == 0 {
		title := data.Title
		if title == "" {
			title = "Dashboard"
		}
		if err := add(r.placeholder(title, "no data")); err != nil {
			return err
		}
	}
	if data.Title != "" {
		panels[0].Title.Text = data.Title + " | " + panels[0].Title.Text
	}

	height := r.height * vg.Length(len(panels)) * 0.75
	c, err := r.newCanvas(FormatFromPath(output), r.width, height)
	if err != nil {
		return err
	}

	rows := make([][]*plot.Plot, len(panels))
	for i, p := range panels {
		rows[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows:      len(panels),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      5 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}

	dc := draw.New(c)
	dc.SetColor(r.theme.Background)
	dc.Fill(dc.Rectangle.Path())

	canvases := plot.Align(rows, tiles, dc)
	for i := range rows {
		rows[i][0].Draw(canvases[i][0])
	}
	return writeCanvas(c, output)
}
