package analytics

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"fintrack/internal/core"
)

const (
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Severity of an alert.
type Severity string

type Alert struct {
	Severity   Severity
	Category   string
	Percentage int64
	Spent      decimal.Decimal
	Budgeted   decimal.Decimal
	Message    string
}

// MessageFormatter renders alert messages with locale-aware amounts.
type MessageFormatter struct {
	printer  *message.Printer
	currency string
}

func NewMessageFormatter(tag language.Tag, currency string) *MessageFormatter {
	return &MessageFormatter{printer: message.NewPrinter(tag), currency: currency}
}

// DefaultMessageFormatter formats amounts the French way in FCFA.
func DefaultMessageFormatter() *MessageFormatter {
	return NewMessageFormatter(language.French, "FCFA")
}

func (f *MessageFormatter) amount(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
}

// Exceeded renders the danger message.
func (f *MessageFormatter) Exceeded(spent, budgeted decimal.Decimal) string {
	return f.printer.Sprintf("Budget exceeded! %s %s / %s %s",
		f.amount(spent), f.currency, f.amount(budgeted), f.currency)
}

// Approaching renders the warning message.
func (f *MessageFormatter) Approaching(pct int64) string {
	return f.printer.Sprintf("Warning: %d%% of budget used", pct)
}

// Alerts emits one alert per budget whose spend reached 80% of its amount:
// danger from 100%, warning below. The budgets must belong to the current
// period; callers never pass historical months.
func Alerts(budgets []core.Budget, expenseByCategory map[string]decimal.Decimal, f *MessageFormatter) []Alert {
	if f == nil {
		f = DefaultMessageFormatter()
	}
	alerts := make([]Alert, 0)
	for _, b := range budgets {
		spent := expenseByCategory[b.Category]
		pct := core.Percent(spent, b.Amount)
		rounded := core.RoundHalfUp(pct)

		alert := Alert{
			Category:   b.Category,
			Percentage: rounded,
			Spent:      spent,
			Budgeted:   b.Amount,
		}
		switch {
		case pct.GreaterThanOrEqual(fullThreshold):
			alert.Severity = SeverityDanger
			alert.Message = f.Exceeded(spent, b.Amount)
		case pct.GreaterThanOrEqual(warningThreshold):
			alert.Severity = SeverityWarning
			alert.Message = f.Approaching(rounded)
		default:
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts
}
