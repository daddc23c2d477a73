package sheets

import (
	"github.com/Veraticus/carga/internal/model"
	"github.com/Veraticus/carga/internal/service"
	"github.com/shopspring/decimal"
)

// Tab titles, in the order they appear in the spreadsheet.
const (
	TabOverview = "Resumen"
	TabDrivers  = "Conductores"
	TabClients  = "Clientes"
	TabMonths   = "Meses"
	TabWeeks    = "Semanas"
)

// TabTitles lists every tab the writer maintains.
func TabTitles() []string {
	return []string{TabOverview, TabDrivers, TabClients, TabMonths, TabWeeks}
}

// Tab is the content of one spreadsheet tab.
type Tab struct {
	Title string
	Rows  [][]any
	// CurrencyColumn is the zero-based column holding euro amounts.
	CurrencyColumn int
	// HeaderRows is the number of rows frozen at the top.
	HeaderRows int
}

// BuildTabs lays out a summary as spreadsheet tabs.
func BuildTabs(summary model.Summary, period service.ReportPeriod) []Tab {
	return []Tab{
		overviewTab(summary, period),
		entityTab(TabDrivers, "Conductor", summary.RankedDrivers()),
		entityTab(TabClients, "Cliente", summary.RankedClients()),
		periodTab(TabMonths, "Mes", summary.MonthTotals()),
		periodTab(TabWeeks, "Semana", summary.WeekTotals()),
	}
}

func overviewTab(summary model.Summary, period service.ReportPeriod) Tab {
	label := period.Label
	if label == "" {
		label = "Todos los registros"
	}
	department := period.Department
	if department == "" {
		department = "Todos"
	}
	return Tab{
		Title: TabOverview,
		Rows: [][]any{
			{"Informe de facturación", label},
			{},
			{"Departamento", department},
			{"Registros", summary.Records},
			{"Total (€)", amount(summary.Total)},
			{"Conductores", len(summary.ByDriver)},
			{"Clientes", len(summary.ByClient)},
		},
		CurrencyColumn: 1,
		HeaderRows:     1,
	}
}

func entityTab(title, nameHeader string, ranked []model.RankedEntity) Tab {
	rows := make([][]any, 0, len(ranked)+1)
	rows = append(rows, []any{nameHeader, "Registros", "Total (€)"})
	for _, e := range ranked {
		rows = append(rows, []any{e.Name, e.Count, amount(e.Total)})
	}
	return Tab{Title: title, Rows: rows, CurrencyColumn: 2, HeaderRows: 1}
}

func periodTab(title, keyHeader string, totals []model.PeriodTotal) Tab {
	rows := make([][]any, 0, len(totals)+1)
	rows = append(rows, []any{keyHeader, "Total (€)"})
	for _, p := range totals {
		rows = append(rows, []any{p.Key, amount(p.Total)})
	}
	return Tab{Title: title, Rows: rows, CurrencyColumn: 1, HeaderRows: 1}
}

// amount converts to a float so the Sheets API stores a number, not text.
func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
