package todo

import (
	"fmt"
	"sort"
	"strings"
)

type Filter string

const (
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
	FilterAll       Filter = "all"
)

func ParseFilter(value string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(value))) {
	case "", FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	case FilterAll:
		return FilterAll, nil
	default:
		return "", fmt.Errorf("unknown filter %q", value)
	}
}

func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// Visible sorts tasks by order (stable for ties) and keeps those matching f.
// The input slice is not modified.
func Visible(tasks []Task, f Filter) []Task {
	idx := visibleIndexes(tasks, f)
	out := make([]Task, len(idx))
	for i, j := range idx {
		out[i] = tasks[j]
	}
	return out
}

func visibleIndexes(tasks []Task, f Filter) []int {
	idx := make([]int, 0, len(tasks))
	for i := range tasks {
		if f.Match(tasks[i]) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return tasks[idx[a]].Order < tasks[idx[b]].Order
	})
	return idx
}
