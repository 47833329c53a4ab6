package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/domain/execution"
)

// Theme colors (Catppuccin Mocha inspired).
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"} // Blue
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"} // Green
	ColorWarning = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"} // Yellow
	ColorError   = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"} // Red
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"} // Overlay0
)

// Styles contains the lipgloss styles for operator output.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Status  lipgloss.Style
}

// DefaultStyles returns colored styles for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),

		Success: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		Warning: lipgloss.NewStyle().
			Foreground(ColorWarning),

		Error: lipgloss.NewStyle().
			Foreground(ColorError),

		Muted: lipgloss.NewStyle().
			Foreground(ColorMuted),

		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess),
	}
}

// PlainStyles returns styles that render text unchanged, for pipes and logs.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:   plain,
		Success: plain,
		Warning: plain,
		Error:   plain,
		Muted:   plain,
		Status:  plain,
	}
}

// StatusLine renders the final success line.
func (s Styles) StatusLine(appName, host string, port int) string {
	return s.Status.Render(fmt.Sprintf("%s is available at http://%s:%d", appName, host, port))
}

// symbol renders a status symbol in its color.
func (s Styles) symbol(status compiler.StepStatus) string {
	sym := status.Symbol()
	switch status {
	case compiler.StatusSatisfied:
		return s.Success.Render(sym)
	case compiler.StatusNeedsApply:
		return s.Warning.Render(sym)
	case compiler.StatusFailed:
		return s.Error.Render(sym)
	case compiler.StatusSkipped, compiler.StatusUnknown:
		return s.Muted.Render(sym)
	}
	return sym
}

// progressPrinter reports each step as the Provisioner reaches it.
type progressPrinter struct {
	out    io.Writer
	styles Styles
}

func newProgressPrinter(out io.Writer, styles Styles) *progressPrinter {
	return &progressPrinter{out: out, styles: styles}
}

func (p *progressPrinter) StepStarted(index, total int, id compiler.StepID) {
	_, _ = fmt.Fprintf(p.out, "%s %s\n", p.styles.Muted.Render(fmt.Sprintf("[%d/%d]", index+1, total)), id.String())
}

func (p *progressPrinter) StepFinished(_, _ int, result execution.StepResult) {
	line := fmt.Sprintf("  %s %s (%s", p.styles.symbol(result.Status()), result.Outcome(), result.Duration().Round(time.Millisecond))
	if result.Outcome() == "pending" {
		if summary := result.Diff().Summary(); summary != "" {
			line += ", " + summary
		}
	}
	line += ")"
	if err := result.Error(); err != nil {
		line += "\n    " + p.styles.Error.Render(err.Error())
	}
	_, _ = fmt.Fprintln(p.out, line)
}

// Ensure progressPrinter implements Observer.
var _ execution.Observer = (*progressPrinter)(nil)

// PrintPlan outputs the plan as a table.
func (a *Labelhost) PrintPlan(plan *execution.Plan) {
	summary := plan.Summary()

	a.printf("\n%s\n\n", a.styles.Title.Render("labelhost plan"))

	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"", "STEP", "STATUS", "CHANGE"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, entry := range plan.Entries() {
		change := ""
		if diff := entry.Diff(); entry.Status() == compiler.StatusUnknown {
			change = "check failed: " + diff.NewValue()
		} else if !diff.IsEmpty() {
			change = diff.Summary()
		}
		status := entry.Status().String()
		if entry.Provisional() {
			status += "*"
		}
		table.Append([]string{
			entry.Status().Symbol(),
			entry.Step().ID().String(),
			status,
			change,
		})
	}
	table.Render()

	a.printf("\nSteps: %d total, %d to apply, %d satisfied, %d unknown\n",
		summary.Total, summary.NeedsApply, summary.Satisfied, summary.Unknown)

	if summary.Provisional > 0 {
		a.printf("* checked before an earlier step applies; the result may change during apply.\n")
	}
	if plan.HasChanges() {
		a.printf("Run 'labelhost apply' to execute this plan.\n")
	} else {
		a.printf("No changes needed. The host is provisioned.\n")
	}
}

// PrintSummary outputs the outcome counts of a run and, on failure, the
// failing step.
func (a *Labelhost) PrintSummary(report *execution.Report) {
	s := report.Summary()

	a.printf("\nSummary: %d applied, %d satisfied", s.Applied, s.Satisfied)
	if report.DryRun() {
		a.printf(", %d would apply", s.Pending)
	}
	if s.Failed > 0 || s.Skipped > 0 {
		a.printf(", %d failed, %d skipped", s.Failed, s.Skipped)
	}
	a.printf(" in %s\n", report.Duration().Round(time.Millisecond))

	if failed, ok := report.FailedStep(); ok {
		a.printf("%s %s\n", a.styles.Error.Render("Failed at"), failed.StepID().String())
	}
}

// PrintExplanations outputs each step's explanation in order.
func (a *Labelhost) PrintExplanations(steps []compiler.Step, ctx compiler.ExplainContext) {
	for i, step := range steps {
		exp := step.Explain(ctx)
		a.printf("%s %s\n", a.styles.Title.Render(fmt.Sprintf("%d. %s", i+1, step.ID().String())), exp.Summary())
		if detail := exp.Detail(); detail != "" {
			a.printf("   %s\n", strings.ReplaceAll(detail, "\n", "\n   "))
		}
		for _, note := range exp.Notes() {
			a.printf("   %s %s\n", a.styles.Warning.Render("note:"), note)
		}
		for _, link := range exp.DocLinks() {
			a.printf("   %s\n", a.styles.Muted.Render(link))
		}
	}
}
