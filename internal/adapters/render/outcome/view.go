package outcome

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bnema/opsbot/internal/application"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const maxContentWidth = 72

type RenderOptions struct {
	// Now enables relative archive times in thread tables.
	Now time.Time
}

func renderResult(result application.Result, opts RenderOptions, s styles) string {
	var lines []string
	if result.Identity.Username != "" {
		lines = append(lines, s.header.Render(fmt.Sprintf("bot: %s (%s)", result.Identity.Username, result.Identity.UserID)))
	}

	if len(result.Outcomes) == 0 {
		lines = append(lines, s.empty.Render("No actions ran."))
	}

	for _, outcome := range result.Outcomes {
		lines = append(lines, outcomeLine(outcome, s))
		if len(outcome.Threads) > 0 || (outcome.Success && outcome.Action == domain.ActionListForumThreads) {
			lines = append(lines, s.section.Render(threadTable(outcome.Threads, opts, s)))
		}
		if len(outcome.Messages) > 0 || (outcome.Success && outcome.Action == domain.ActionReadHistory) {
			lines = append(lines, s.section.Render(messageTable(outcome.Messages, s)))
		}
	}

	if result.CloseErr != nil {
		lines = append(lines, s.warning.Render("! session close failed: "+result.CloseErr.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func outcomeLine(outcome domain.Outcome, s styles) string {
	action := string(outcome.Action)
	switch {
	case outcome.Success:
		line := s.success.Render("✓") + " " + action
		if id := outcomeID(outcome); id != "" {
			line += " " + s.id.Render(id)
		}
		if outcome.Diagnostic != "" {
			line += " " + s.detail.Render(outcome.Diagnostic)
		}
		return line
	case outcome.Skipped:
		return s.skipped.Render(fmt.Sprintf("- %s skipped: %s", action, outcome.Diagnostic))
	default:
		kind := outcome.ErrorKind
		if kind == "" {
			kind = domain.KindOf(outcome.Err)
		}
		return s.failure.Render("✗") + " " + action + " " + s.kind.Render(kind+":") + " " + singleLine(outcome.Diagnostic)
	}
}

func outcomeID(outcome domain.Outcome) string {
	if !outcome.PlatformID.IsZero() {
		return outcome.PlatformID.String()
	}
	if outcome.Affected != nil {
		return outcome.Affected.ID.String()
	}
	return ""
}

func threadTable(threads []domain.ThreadInfo, opts RenderOptions, s styles) string {
	if len(threads) == 0 {
		return s.empty.Render("No threads.")
	}

	rows := make([][]string, 0, len(threads))
	for _, thread := range threads {
		rows = append(rows, []string{
			thread.ID.String(),
			truncate(thread.Name, 40),
			threadState(thread),
			fmt.Sprintf("%d", thread.MessageCount),
			formatArchived(thread.ArchivedAt, opts.Now),
		})
	}

	return newTable(s, []string{"ID", "NAME", "STATE", "MESSAGES", "ARCHIVED"}, rows)
}

func messageTable(messages []domain.MessageRecord, s styles) string {
	if len(messages) == 0 {
		return s.empty.Render("No messages.")
	}

	rows := make([][]string, 0, len(messages))
	for _, message := range messages {
		content := truncate(singleLine(message.Content), maxContentWidth)
		if n := len(message.Attachments); n > 0 {
			content = strings.TrimSpace(fmt.Sprintf("%s [+%d %s]", content, n, plural(n, "file", "files")))
		}
		rows = append(rows, []string{
			message.ID.String(),
			message.Author,
			formatTimestamp(message.Timestamp),
			content,
		})
	}

	return newTable(s, []string{"ID", "AUTHOR", "TIME", "CONTENT"}, rows)
}

func newTable(s styles, headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.tableHead
			}
			return s.tableCell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func threadState(thread domain.ThreadInfo) string {
	switch {
	case thread.Locked && thread.Archived:
		return "archived, locked"
	case thread.Locked:
		return "locked"
	case thread.Archived:
		return "archived"
	default:
		return "open"
	}
}

func formatArchived(archivedAt, now time.Time) string {
	if archivedAt.IsZero() {
		return "-"
	}
	if now.IsZero() || archivedAt.After(now) {
		return archivedAt.UTC().Format("2006-01-02 15:04")
	}

	elapsed := now.Sub(archivedAt)
	if elapsed < time.Hour {
		return "just now"
	}
	if elapsed < 24*time.Hour {
		hours := int(math.Floor(elapsed.Hours()))
		return fmt.Sprintf("%d %s ago", hours, plural(hours, "hour", "hours"))
	}

	days := int(math.Floor(elapsed.Hours() / 24))
	return fmt.Sprintf("%d %s ago", days, plural(days, "day", "days"))
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format("2006-01-02 15:04")
}

func renderPlan(plan application.Plan, s styles) string {
	title := "Plan"
	if plan.Name != "" {
		title += ": " + plan.Name
	}

	onError := "stop"
	if plan.ContinueOnError {
		onError = "continue"
	}

	lines := []string{
		s.title.Render(title),
		s.header.Render(fmt.Sprintf("identity: %s  intents: %s  on error: %s", plan.Identity, strings.Join(plan.Intents, ","), onError)),
	}
	for _, action := range plan.Actions {
		lines = append(lines, fmt.Sprintf("%3d. %s %s", action.Index, s.id.Render(string(action.Type)), s.detail.Render(action.Summary)))
	}
	lines = append(lines, s.empty.Render("dry run: nothing was sent"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAutomation(report application.AutomationReport, s styles) string {
	line := s.success.Render("✓") + " automation " + s.id.Render(report.Name) + " " +
		s.detail.Render(fmt.Sprintf("ran %d %s", len(report.Scenes), plural(len(report.Scenes), "scene", "scenes")))
	if report.Notified {
		line += s.detail.Render(", webhook notified")
	}
	return line
}

func renderSecretStatus(statuses []application.SecretStatus, s styles) string {
	lines := make([]string, 0, len(statuses))
	for _, status := range statuses {
		if status.Present {
			lines = append(lines, s.success.Render("✓")+" "+status.Key)
			continue
		}
		lines = append(lines, s.skipped.Render("✗ "+status.Key+" missing"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func singleLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit-1]) + "…"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
