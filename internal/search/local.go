package search

import (
	"strings"
	"unicode/utf8"

	"todaytasks/api/internal/todo"
)

// matchLocal is a case-insensitive substring search over the task list,
// used whenever Meilisearch is not available.
func matchLocal(tasks []todo.Task, q Query) ([]Result, int) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return nil, 0
	}

	var results []Result
	total := 0
	for _, t := range todo.Visible(tasks, q.Filter) {
		at := strings.Index(strings.ToLower(t.Text), needle)
		if at < 0 {
			continue
		}
		total++
		if len(results) >= q.limit() {
			continue
		}
		results = append(results, Result{
			ID:        t.ID,
			Text:      t.Text,
			Snippet:   highlight(t.Text, needle, at),
			Completed: t.Completed,
			Order:     t.Order,
		})
	}
	return results, total
}

// highlight marks text[at:at+n]. The offsets come from the lower-cased text,
// whose byte lengths can differ outside ASCII, so they are only used when they
// still cut text on rune boundaries around an equal-folded match.
func highlight(text, needle string, at int) string {
	n := len(needle)
	if at < 0 || at+n > len(text) {
		return text
	}
	if !utf8.RuneStart(text[at]) || (at+n < len(text) && !utf8.RuneStart(text[at+n])) {
		return text
	}
	if !strings.EqualFold(text[at:at+n], needle) {
		return text
	}
	return text[:at] + "<mark>" + text[at:at+n] + "</mark>" + text[at+n:]
}
