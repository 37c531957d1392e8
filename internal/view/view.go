// Package view computes the filtered and sorted task list shown to users.
package view

import (
	"fmt"
	"slices"
	"strings"

	"taskboard/internal/models"
)

// StatusFilter selects tasks by status. StatusAll passes everything.
type StatusFilter string

// StatusAll disables status filtering.
const StatusAll StatusFilter = "ALL"

// SortOrder orders tasks by due date.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Options are the view parameters held by the task store.
type Options struct {
	Status StatusFilter
	Sort   SortOrder
}

// DefaultOptions shows every task in collection order.
func DefaultOptions() Options {
	return Options{Status: StatusAll, Sort: SortNone}
}

// ParseStatusFilter accepts "all" (any case) or one of the task statuses.
func ParseStatusFilter(value string) (StatusFilter, error) {
	if value == "" || strings.EqualFold(value, string(StatusAll)) {
		return StatusAll, nil
	}
	status, err := models.ParseTaskStatus(strings.ToUpper(value))
	if err != nil {
		return "", fmt.Errorf("status filter %q: %w", value, err)
	}
	return StatusFilter(status), nil
}

// ParseSortOrder accepts "", "none", "asc" and "desc".
func ParseSortOrder(value string) (SortOrder, error) {
	switch strings.ToLower(value) {
	case "", "none":
		return SortNone, nil
	case "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", value)
	}
}

// Apply returns a new slice holding the tasks that pass the status filter, ordered
// by due date when a sort order is set. Undated tasks come after dated ones in both
// directions and equal keys keep their collection order. The input is not modified.
func Apply(tasks []models.Task, opts Options) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if matches(task, opts.Status) {
			out = append(out, task)
		}
	}

	switch opts.Sort {
	case SortAsc:
		slices.SortStableFunc(out, func(a, b models.Task) int { return compareDue(a, b, false) })
	case SortDesc:
		slices.SortStableFunc(out, func(a, b models.Task) int { return compareDue(a, b, true) })
	}
	return out
}

func matches(task models.Task, filter StatusFilter) bool {
	if filter == "" || filter == StatusAll {
		return true
	}
	return string(task.Status) == string(filter)
}

func compareDue(a, b models.Task, desc bool) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	cmp := a.DueDate.Compare(*b.DueDate)
	if desc {
		return -cmp
	}
	return cmp
}
