package journal

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/gridbt/grid"
)

var runOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"fills": FormatFillsOrg,
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// FormatRunOrg renders a run as an Org-mode heading with a properties drawer.
func FormatRunOrg(r Run) (string, error) {
	buf := new(bytes.Buffer)
	if err := runOrg.Execute(buf, r); err != nil {
		return "", fmt.Errorf("render run %s: %w", r.ID, err)
	}
	return buf.String(), nil
}

// WriteOrg renders r to path.
func WriteOrg(path string, r Run) error {
	s, err := FormatRunOrg(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0644)
}

// FormatFillsOrg renders fills as an Org table.
func FormatFillsOrg(fills []grid.Fill) string {
	var b strings.Builder
	b.WriteString("| # | Time | Side | Price | Volume | Cost | PnL | Cash | Reason |\n")
	b.WriteString("|---+------+------+-------+--------+------+-----+------+--------|\n")
	for _, f := range fills {
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %.3f | %d | %.3f | %.2f | %.2f | %s |\n",
			f.Seq, f.Time.Format("2006-01-02 15:04"), f.Side, f.Price, f.Volume,
			f.CostPrice, f.PnL, f.CashAfter, f.Reason))
	}
	return b.String()
}

const RunOrgTemplate = `
* BACKTEST: Grid {{.Report.Symbol}} {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .ID}}{{.ID}}{{else}}(run-id?){{end}}
:STRATEGY:    grid
:SYMBOL:      {{.Report.Symbol}}
:START_DATE:  {{.Report.Start.Format "2006-01-02 15:04"}}
:END_DATE:    {{.Report.End.Format "2006-01-02 15:04"}}
:BARS:        {{.Report.Bars}}
:START_CASH:  {{printf "%.2f" .Report.Config.InitialCash}}
:END_CASH:    {{printf "%.2f" .Report.FinalCash}}
:REALIZED:    {{printf "%.2f" .Report.RealizedPnL}}
:UNREALIZED:  {{printf "%.2f" .Report.UnrealizedPnL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{if ne .MaxDDPct 0.0}}{{printf "%.2f" .MaxDDPct}}{{else}}(max-dd?){{end}}
:TRADES:      {{.Report.TradeCount}}
:OPEN_LOTS:   {{len .Report.LotsRemaining}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Grid Parameters
| Parameter      | Value |
|----------------+-------|
| Grid density % | {{printf "%.2f" (mul100 .Report.Config.GridDensity)}} |
| Sell gap %     | {{printf "%.2f" (mul100 .Report.Config.SellGap)}} |
| Lot unit       | {{.Report.Config.LotUnit}} |
| Max open lots  | {{.Report.Config.MaxOpenLots}} |
| Commission %   | {{printf "%.4f" (mul100 .Report.Config.CommissionRate)}} |
| Anchor         | {{printf "%.3f" .Report.Config.AnchorPrice}} |

** Performance Summary
- Realized P/L:     *{{printf "%.2f" .Report.RealizedPnL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{if ne .MaxDDPct 0.0}}{{printf "%.2f" .MaxDDPct}}{{else}}(max-dd?){{end}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*
- Sharpe:           *{{printf "%.2f" .Sharpe}}*
- Commission:       *{{printf "%.2f" .Report.Commission}}*

{{- if .Report.Fills }}

** Fills
{{ fills .Report.Fills }}
{{- end }}

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
