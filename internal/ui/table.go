package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"taskboard/internal/models"
)

const (
	cellMaxWidth = 50
	ellipsis     = "..."
)

// FormatTable renders headers and rows as columns separated by two spaces.
func FormatTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = lipgloss.Width(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(row []string) {
		for i, cell := range row {
			b.WriteString(cell)
			if i == len(row)-1 {
				b.WriteByte('\n')
				continue
			}
			b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
		}
	}

	styled := make([]string, len(headers))
	for i, header := range headers {
		styled[i] = headerStyle.Render(header)
	}
	writeRow(styled)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

// Truncate limits a cell to a readable width and flattens line breaks.
func Truncate(value string) string {
	value = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(value)
	runes := []rune(value)
	if len(runes) <= cellMaxWidth {
		return value
	}
	return string(runes[:cellMaxWidth-len(ellipsis)]) + ellipsis
}

// TaskTable renders tasks in the given order.
func TaskTable(tasks []models.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		due := Muted("-")
		if task.DueDate != nil {
			due = task.DueDate.Format(time.DateOnly)
		}
		assignee := Muted("-")
		if task.Assignee != nil {
			assignee = task.Assignee.DisplayName()
		} else if task.AssigneeID != "" {
			assignee = Muted("#" + task.AssigneeID)
		}
		rows = append(rows, []string{task.ID, Truncate(task.Title), Status(task.Status), due, assignee})
	}
	return FormatTable([]string{"ID", "TITLE", "STATUS", "DUE", "ASSIGNEE"}, rows)
}

// ProjectTable renders projects, marking current with an asterisk.
func ProjectTable(projects []models.Project, current string) string {
	rows := make([][]string, 0, len(projects))
	for _, project := range projects {
		marker := " "
		if project.ID == current && current != "" {
			marker = "*"
		}
		rows = append(rows, []string{marker + project.ID, Truncate(project.Name), Truncate(project.Description), project.CreatedAt.Format(time.DateOnly)})
	}
	return FormatTable([]string{" ID", "NAME", "DESCRIPTION", "CREATED"}, rows)
}

// UserTable renders users.
func UserTable(users []models.User) string {
	rows := make([][]string, 0, len(users))
	for _, user := range users {
		rows = append(rows, []string{user.ID, user.DisplayName(), user.Email, user.Role})
	}
	return FormatTable([]string{"ID", "NAME", "EMAIL", "ROLE"}, rows)
}
