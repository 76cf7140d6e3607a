package bot

import (
	"fmt"
	"strings"

	"quizbot/internal/storage"

	"github.com/olekukonko/tablewriter"
)

// formatAmount renders an amount of the play currency.
func formatAmount(amount int64) string {
	return fmt.Sprintf("%d pts", amount)
}

// transactionsTable renders ledger entries as a monospace table, for a
// Markdown code block.
func transactionsTable(entries []storage.Transaction) string {
	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.Header("When", "Kind", "Amount", "Description")
	for _, t := range entries {
		table.Append(
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(t.Kind),
			fmt.Sprintf("%+d", t.Amount),
			t.Description,
		)
	}
	table.Render()
	return sb.String()
}

// escapeMarkdown escapes special characters for Telegram Markdown mode
func escapeMarkdown(s string) string {
	escaped := s
	escaped = strings.ReplaceAll(escaped, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "*", `\*`)
	escaped = strings.ReplaceAll(escaped, "_", `\_`)
	escaped = strings.ReplaceAll(escaped, "`", "\\`")
	escaped = strings.ReplaceAll(escaped, "[", `\[`)
	escaped = strings.ReplaceAll(escaped, "]", `\]`)
	return escaped
}
