package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/internal/journal"
	"github.com/betbot/gridwager/internal/rationale"
	"github.com/betbot/gridwager/internal/runner"
)

var (
	// 样式定义
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("2")) // 绿色

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")) // 红色

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

var tierColors = map[rationale.Tier]lipgloss.Color{
	rationale.TierNone:    "240",
	rationale.TierBronze:  "130",
	rationale.TierSilver:  "250",
	rationale.TierGold:    "220",
	rationale.TierDiamond: "45",
}

func tierBadge(t string) string {
	c, ok := tierColors[rationale.Tier(t)]
	if !ok {
		c = "240"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(t)
}

func renderKV(rows [][2]string) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r[0])+r[1])
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderResult(res *domain.BetResult, dryRun bool) string {
	title := "✓ bet accepted"
	if dryRun {
		title = "📝 dry run"
	}
	return titleStyle.Render(title) + "\n" + renderKV([][2]string{
		{"order", res.OrderID},
		{"grid", res.GridID},
		{"nonce", fmt.Sprint(res.Nonce)},
		{"odds", res.Odds.String()},
		{"balance", res.NewBalance.String()},
		{"quality", fmt.Sprintf("%d %s", res.QualityScore, tierBadge(res.Tier))},
	})
}

func renderRound(r runner.Round, dryRun bool) string {
	prefix := fmt.Sprintf("#%-4d", r.Number)
	if r.Err != nil {
		return errorStyle.Render(prefix + " ✗ " + r.Err.Error())
	}
	tag := ""
	if dryRun {
		tag = mutedStyle.Render(" (dry run)")
	}
	return okStyle.Render(fmt.Sprintf("%s ✓ %s grid=%s nonce=%d odds=%s", prefix, r.Result.OrderID, r.Result.GridID, r.Result.Nonce, r.Result.Odds)) +
		" " + tierBadge(r.Result.Tier) + tag
}

func renderSummary(s runner.Summary) string {
	return renderKV([][2]string{
		{"rounds", fmt.Sprint(s.Rounds)},
		{"accepted", fmt.Sprint(s.Accepted)},
		{"failed", fmt.Sprint(s.Failed)},
		{"spent", s.Spent.String()},
	})
}

func renderAssessment(a rationale.Assessment) string {
	valid := okStyle.Render("valid")
	if !a.Valid {
		valid = errorStyle.Render(a.Error)
	}
	return renderKV([][2]string{
		{"length", fmt.Sprint(a.Length)},
		{"validation", valid},
		{"score", fmt.Sprintf("%d/100", a.Score)},
		{"tier", tierBadge(string(a.Tier))},
		{"tokens", fmt.Sprint(a.UniqueToks)},
		{"vocabulary", fmt.Sprint(a.VocabHits)},
	})
}

func renderHistory(items []domain.BetAttempt) string {
	if len(items) == 0 {
		return mutedStyle.Render("no bets recorded")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("last %d attempts", len(items))))
	for _, it := range items {
		line := fmt.Sprintf("\n%s  %-9s nonce=%-14d %-22s %s %s",
			it.CreatedAt.Local().Format("01-02 15:04:05"), it.Outcome, it.Nonce, it.GridID, it.Amount, it.BalanceType)
		switch it.Outcome {
		case domain.OutcomeAccepted:
			b.WriteString(okStyle.Render(line))
		case domain.OutcomeConflict:
			b.WriteString(mutedStyle.Render(line))
		default:
			b.WriteString(errorStyle.Render(line + "  " + it.Error))
		}
	}
	return b.String()
}

func renderStats(st *journal.Stats) string {
	return renderKV([][2]string{
		{"today ok", fmt.Sprint(st.ByOutcome[domain.OutcomeAccepted])},
		{"rejected", fmt.Sprint(st.ByOutcome[domain.OutcomeRejected] + st.ByOutcome[domain.OutcomeEscalated])},
		{"spent", st.AcceptedTotal.String()},
	})
}
