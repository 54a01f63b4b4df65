// Package report renders analyses and execution results as styled
// terminal text for the CLI.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mkallert/bankrec-backend/internal/application/reconcile"
	"github.com/mkallert/bankrec-backend/internal/application/service"
	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/money"
	"github.com/mkallert/bankrec-backend/internal/domain/recon"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	sectionStyle = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FFAF00", Dark: "#FFAF00"})
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// Analysis renders a reconciliation analysis with its recommendations.
func Analysis(res *service.AnalyzeResult) string {
	a := res.Analysis
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", headerStyle.Render(fmt.Sprintf("Reconciliation — account %s", a.AccountID)))

	b.WriteString(sectionStyle.Render("Balance"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  cleared     %s\n", a.Balance.ClearedDisplay)
	fmt.Fprintf(&b, "  uncleared   %s\n", a.Balance.UnclearedDisplay)
	fmt.Fprintf(&b, "  statement   %s\n", a.Balance.TargetDisplay)
	if a.Balance.OnTrack {
		fmt.Fprintf(&b, "  %s\n", okStyle.Render("✓ balances reconcile"))
	} else {
		fmt.Fprintf(&b, "  %s\n", errStyle.Render(fmt.Sprintf("discrepancy %s", a.Balance.DiscrepancyDisplay)))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Matches"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  auto-matched        %d\n", a.Summary.AutoMatched)
	fmt.Fprintf(&b, "  suggested           %d\n", a.Summary.Suggested)
	fmt.Fprintf(&b, "  unmatched statement %d\n", a.Summary.UnmatchedExternal)
	fmt.Fprintf(&b, "  unmatched ledger    %d\n", a.Summary.UnmatchedInternal)

	if len(a.SuggestedMatches) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Suggested matches"))
		b.WriteString("\n")
		for _, m := range a.SuggestedMatches {
			fmt.Fprintf(&b, "  %s (%s) score %d\n", m.External.Payee, m.External.Amount.StringFixed(2), m.Score)
			for _, c := range m.Candidates {
				fmt.Fprintf(&b, "    %s %s\n", dimStyle.Render("candidate"), candidateLine(c, a.Currency))
			}
		}
	}

	if len(a.Insights) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Insights"))
		b.WriteString("\n")
		for _, ins := range a.Insights {
			fmt.Fprintf(&b, "  %s %s\n", severityBadge(ins.Severity), ins.Title)
			fmt.Fprintf(&b, "    %s\n", dimStyle.Render(ins.Description))
		}
	}

	if len(res.Recommendations) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Recommendations"))
		b.WriteString("\n")
		for _, rec := range res.Recommendations {
			fmt.Fprintf(&b, "  [%s] %s\n", rec.Priority, rec.Message)
		}
	}

	if len(a.NextSteps) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Next steps"))
		b.WriteString("\n")
		for _, step := range a.NextSteps {
			fmt.Fprintf(&b, "  - %s\n", step)
		}
	}

	return b.String()
}

// Execution renders an executor result, flagging per-action failures.
func Execution(res *reconcile.Result) string {
	var b strings.Builder

	title := "Execution"
	if res.DryRun {
		title = "Execution (dry run)"
	}
	fmt.Fprintf(&b, "%s\n\n", headerStyle.Render(title))

	fmt.Fprintf(&b, "  transactions created %d\n", res.TransactionsCreated)
	fmt.Fprintf(&b, "  transactions updated %d\n", res.TransactionsUpdated)
	fmt.Fprintf(&b, "  dates adjusted       %d\n", res.DatesAdjusted)

	if len(res.Actions) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Actions"))
		b.WriteString("\n")
		for _, action := range res.Actions {
			switch {
			case action.Error != "":
				fmt.Fprintf(&b, "  %s %s: %s\n", errStyle.Render("✗"), action.Description, action.Error)
			case action.Applied:
				fmt.Fprintf(&b, "  %s %s\n", okStyle.Render("✓"), action.Description)
			default:
				fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render("·"), action.Description)
			}
		}
	}

	if res.FinalBalance != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, "  final cleared balance %s\n",
			money.Display(res.FinalBalance.ClearedMilli, res.FinalBalance.Currency))
	}

	for _, rec := range res.Recommendations {
		fmt.Fprintf(&b, "\n  %s\n", dimStyle.Render(rec))
	}

	return b.String()
}

func candidateLine(c matcher.Candidate, currency string) string {
	name := ""
	if c.Txn.PayeeName != nil {
		name = *c.Txn.PayeeName
	}
	return fmt.Sprintf("%s %s on %s (score %d, %s)",
		name,
		money.Display(c.Txn.AmountMilli, currency),
		c.Txn.Date.Format("2006-01-02"),
		c.Score,
		c.Reason,
	)
}

func severityBadge(s recon.Severity) string {
	switch s {
	case recon.SeverityCritical:
		return errStyle.Render("[critical]")
	case recon.SeverityWarning:
		return warnStyle.Render("[warning]")
	default:
		return dimStyle.Render("[info]")
	}
}
