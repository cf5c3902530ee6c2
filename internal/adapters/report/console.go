package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/alejandrodnm/pricevol/internal/ports"
	"github.com/alejandrodnm/pricevol/internal/stats"
	"github.com/olekukonko/tablewriter"
)

const (
	defaultBins = 20
	barWidth    = 40
)

// Console implementa ports.Reporter.
type Console struct {
	out  io.Writer
	bins int
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(bins int) *Console {
	return NewConsoleWriter(os.Stdout, bins)
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, bins int) *Console {
	if bins <= 0 {
		bins = defaultBins
	}
	return &Console{out: w, bins: bins}
}

// ReportEvents imprime una fila por conteo de eventos.
func (c *Console) ReportEvents(_ context.Context, studies []domain.EventStudy) error {
	if len(studies) == 0 {
		fmt.Fprintln(c.out, "no event studies to report")
		return nil
	}

	first := studies[0]
	fmt.Fprintf(c.out, "\n=== EVENTS %s %s  %s → %s  holding %s ===\n",
		first.Symbol, first.Interval,
		first.From.Format(time.DateTime), first.To.Format(time.DateTime),
		first.HoldingPeriod)

	table := tablewriter.NewWriter(c.out)
	table.Header("Feature", "Dir", "Threshold", "Events", "Population", "Defined", "Rate", "Defined rate")
	for _, st := range studies {
		table.Append(
			st.Feature.String(),
			st.Direction.String(),
			fmt.Sprintf("%.4f", st.Threshold),
			fmt.Sprintf("%d", st.Result.Events),
			fmt.Sprintf("%d", st.Result.Population),
			fmt.Sprintf("%d", st.Result.Defined),
			fmt.Sprintf("%.2f%%", st.Result.Rate()*100),
			fmt.Sprintf("%.2f%%", st.Result.DefinedRate()*100),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  positive = valor >= threshold | negative = valor < threshold")
	fmt.Fprintln(c.out, "  Rate = events / population (incluye filas sin ventana) | Defined rate = events / defined")
	return nil
}

// ReportSimulation imprime el resumen de cada distribución y su histograma.
func (c *Console) ReportSimulation(_ context.Context, run domain.SimulationRun, dists []ports.Distribution) error {
	fmt.Fprintf(c.out, "\n=== MONTE CARLO %s %s  horizon %dh  %d iter × %d samples  seed %d ===\n",
		run.Symbol, run.Interval, run.HorizonHours, run.Iterations, run.SampleSize, run.Seed)

	table := tablewriter.NewWriter(c.out)
	table.Header("Dist", "N", "NaN", "Mean", "Std", "Min", "Max")
	for _, d := range dists {
		s := d.Summary
		table.Append(
			d.Name,
			fmt.Sprintf("%d", s.N),
			fmt.Sprintf("%d", s.NaNCount),
			pct(s.Mean),
			pct(s.Std),
			pct(s.Min),
			pct(s.Max),
		)
	}
	table.Render()

	for _, d := range dists {
		c.printHistogram(d)
	}
	return nil
}

// PrintHistory lista simulaciones y estudios guardados en storage.
func (c *Console) PrintHistory(runs []domain.SimulationRun, studies []domain.EventStudy) {
	if len(runs) == 0 && len(studies) == 0 {
		fmt.Fprintln(c.out, "no stored results")
		return
	}

	if len(runs) > 0 {
		fmt.Fprintf(c.out, "\n=== SIMULATIONS (%d) ===\n", len(runs))
		table := tablewriter.NewWriter(c.out)
		table.Header("When", "Symbol", "Interval", "Horizon", "Iter", "Sample", "Low mean", "High mean", "Joined std")
		for _, r := range runs {
			table.Append(
				r.CreatedAt.Format(time.DateTime),
				r.Symbol,
				r.Interval.String(),
				fmt.Sprintf("%dh", r.HorizonHours),
				fmt.Sprintf("%d", r.Iterations),
				fmt.Sprintf("%d", r.SampleSize),
				pct(r.Low.Mean),
				pct(r.High.Mean),
				pct(r.Joined.Std),
			)
		}
		table.Render()
	}

	if len(studies) > 0 {
		fmt.Fprintf(c.out, "\n=== EVENT STUDIES (%d) ===\n", len(studies))
		table := tablewriter.NewWriter(c.out)
		table.Header("When", "Symbol", "Holding", "Feature", "Dir", "Threshold", "Events", "Rate")
		for _, st := range studies {
			table.Append(
				st.CreatedAt.Format(time.DateTime),
				st.Symbol,
				st.HoldingPeriod.String(),
				st.Feature.String(),
				st.Direction.String(),
				fmt.Sprintf("%.4f", st.Threshold),
				fmt.Sprintf("%d/%d", st.Result.Events, st.Result.Population),
				fmt.Sprintf("%.2f%%", st.Result.Rate()*100),
			)
		}
		table.Render()
	}
}

// printHistogram dibuja la densidad empírica con barras '#' y marca con '|'
// la densidad de la normal ajustada.
func (c *Console) printHistogram(d ports.Distribution) {
	bins := stats.Histogram(d.Samples, c.bins)
	if len(bins) == 0 {
		fmt.Fprintf(c.out, "\n[%s] sin valores definidos\n", d.Name)
		return
	}

	maxD := 0.0
	for _, b := range bins {
		maxD = math.Max(maxD, b.Density)
		if !math.IsNaN(b.Normal) {
			maxD = math.Max(maxD, b.Normal)
		}
	}

	fmt.Fprintf(c.out, "\n[%s] mean %s  std %s\n", d.Name, pct(d.Summary.Mean), pct(d.Summary.Std))
	for _, b := range bins {
		fmt.Fprintf(c.out, "  %9s %9s %7d %s\n", pct(b.Lo), pct(b.Hi), b.Count, bar(b.Density, b.Normal, maxD))
	}
}

// bar escala density a barWidth caracteres y superpone la marca de la normal.
func bar(density, normal, maxD float64) string {
	if maxD <= 0 {
		return ""
	}
	cells := []rune(strings.Repeat(" ", barWidth+1))
	n := int(math.Round(density / maxD * barWidth))
	for i := 0; i < n; i++ {
		cells[i] = '#'
	}
	if !math.IsNaN(normal) {
		cells[int(math.Round(normal/maxD*barWidth))] = '|'
	}
	return strings.TrimRight(string(cells), " ")
}

// pct formatea una diferencia relativa como porcentaje; n/a si es NaN.
func pct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f%%", v*100)
}
