// Package report implements the fintrack-report subcommands. Each command
// prints, as indented JSON, the same view the HTTP API serves for one owner.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/views"
)

// Opener builds the dashboard a command reads from, and the function that
// releases it.
type Opener func(ctx context.Context) (*services.DashboardService, func() error, error)

// App carries what every command shares.
type App struct {
	Open     Opener
	Location *time.Location
	Out      io.Writer
	Err      io.Writer
}

func (a *App) stdout() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}

func (a *App) stderr() io.Writer {
	if a.Err == nil {
		return os.Stderr
	}
	return a.Err
}

// Register adds the report commands to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(&summaryCmd{base: base{app: app}}, "reports")
	c.Register(&trendCmd{base: base{app: app}}, "reports")
	c.Register(&statsCmd{base: base{app: app}}, "reports")
	c.Register(&alertsCmd{base: base{app: app}}, "reports")
	c.Register(&trackingCmd{base: base{app: app}}, "reports")
}

// base holds the -owner flag and the run loop common to all commands.
type base struct {
	app   *App
	owner string
}

func (b *base) setOwnerFlag(f *flag.FlagSet) {
	f.StringVar(&b.owner, "owner", "", "account whose ledger to report on (required)")
}

func (b *base) run(ctx context.Context, view func(context.Context, *services.DashboardService) (any, error)) subcommands.ExitStatus {
	owner := strings.TrimSpace(b.owner)
	if owner == "" {
		fmt.Fprintln(b.app.stderr(), "Error: -owner is required")
		return subcommands.ExitUsageError
	}
	b.owner = owner

	dash, release, err := b.app.Open(ctx)
	if err != nil {
		fmt.Fprintf(b.app.stderr(), "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := release(); err != nil {
			fmt.Fprintf(b.app.stderr(), "Warning: %v\n", err)
		}
	}()

	v, err := view(ctx, dash)
	if err != nil {
		fmt.Fprintf(b.app.stderr(), "Error: %v\n", err)
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(b.app.stdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(b.app.stderr(), "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// monthFlags selects a calendar month; zero for both means the current one.
type monthFlags struct {
	month int
	year  int
}

func (m *monthFlags) set(f *flag.FlagSet) {
	f.IntVar(&m.month, "month", 0, "month 1-12 (defaults to the current month)")
	f.IntVar(&m.year, "year", 0, "four-digit year (required with -month)")
}

func (m *monthFlags) resolve(now time.Time, loc *time.Location) (int, int, error) {
	switch {
	case m.month == 0 && m.year == 0:
		p := core.DefaultPeriod(now, loc)
		return p.Month(), p.Year(), nil
	case m.month == 0 || m.year == 0:
		return 0, 0, core.NewValidationError("month", "month and year must be given together")
	}
	return m.month, m.year, nil
}

type summaryCmd struct {
	base
	monthFlags
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "income, expense and balance of one month" }
func (*summaryCmd) Usage() string {
	return `fintrack-report summary -owner <id> [-month <m> -year <y>]

  Prints the monthly summary with its per-category breakdown.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	c.setOwnerFlag(f)
	c.monthFlags.set(f)
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(ctx context.Context, d *services.DashboardService) (any, error) {
		month, year, err := c.resolve(d.Now(), c.app.Location)
		if err != nil {
			return nil, err
		}
		s, err := d.Summary(ctx, c.owner, month, year)
		if err != nil {
			return nil, err
		}
		return views.NewSummary(s), nil
	})
}

type trendCmd struct {
	base
	months int
}

func (*trendCmd) Name() string     { return "trend" }
func (*trendCmd) Synopsis() string { return "monthly income and expense over a trailing window" }
func (*trendCmd) Usage() string {
	return `fintrack-report trend -owner <id> [-months <n>]

  Prints one point per month, oldest first, ending with the current month.
`
}

func (c *trendCmd) SetFlags(f *flag.FlagSet) {
	c.setOwnerFlag(f)
	f.IntVar(&c.months, "months", analytics.DefaultTrendMonths, "number of months in the window")
}

func (c *trendCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(ctx context.Context, d *services.DashboardService) (any, error) {
		if c.months < 1 {
			return nil, core.NewValidationError("months", "must be a positive integer")
		}
		points, err := d.Trend(ctx, c.owner, c.months)
		if err != nil {
			return nil, err
		}
		return map[string]any{"data": views.NewTrend(points)}, nil
	})
}

type statsCmd struct {
	base
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "lifetime totals and savings rate" }
func (*statsCmd) Usage() string {
	return `fintrack-report stats -owner <id>
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) { c.setOwnerFlag(f) }

func (c *statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(ctx context.Context, d *services.DashboardService) (any, error) {
		s, err := d.Stats(ctx, c.owner)
		if err != nil {
			return nil, err
		}
		return map[string]any{"stats": views.NewStats(s)}, nil
	})
}

type alertsCmd struct {
	base
}

func (*alertsCmd) Name() string     { return "alerts" }
func (*alertsCmd) Synopsis() string { return "budgets of the current month at or over 80%" }
func (*alertsCmd) Usage() string {
	return `fintrack-report alerts -owner <id>
`
}

func (c *alertsCmd) SetFlags(f *flag.FlagSet) { c.setOwnerFlag(f) }

func (c *alertsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(ctx context.Context, d *services.DashboardService) (any, error) {
		alerts, err := d.Alerts(ctx, c.owner)
		if err != nil {
			return nil, err
		}
		return map[string]any{"alerts": views.NewAlerts(alerts)}, nil
	})
}

type trackingCmd struct {
	base
	monthFlags
}

func (*trackingCmd) Name() string     { return "tracking" }
func (*trackingCmd) Synopsis() string { return "spending against each budget of one month" }
func (*trackingCmd) Usage() string {
	return `fintrack-report tracking -owner <id> [-month <m> -year <y>]
`
}

func (c *trackingCmd) SetFlags(f *flag.FlagSet) {
	c.setOwnerFlag(f)
	c.monthFlags.set(f)
}

func (c *trackingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(ctx context.Context, d *services.DashboardService) (any, error) {
		month, year, err := c.resolve(d.Now(), c.app.Location)
		if err != nil {
			return nil, err
		}
		records, err := d.Tracking(ctx, c.owner, month, year)
		if err != nil {
			return nil, err
		}
		return map[string]any{"budgets": views.NewTracking(records)}, nil
	})
}
