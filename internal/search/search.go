package search

import (
	"todaytasks/api/internal/todo"
)

// Result is a single search hit returned to the caller.
type Result struct {
	ID        todo.ID `json:"id"`
	Text      string  `json:"text"`
	Snippet   string  `json:"snippet"`
	Completed bool    `json:"completed"`
	Order     float64 `json:"order"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Filter todo.Filter
	Limit  int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// TaskRecord is the data we index for a task.
type TaskRecord struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Completed bool    `json:"completed"`
	Order     float64 `json:"order"`
}

func recordsFor(tasks []todo.Task) []TaskRecord {
	records := make([]TaskRecord, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, TaskRecord{
			ID:        string(t.ID),
			Text:      t.Text,
			Completed: t.Completed,
			Order:     t.Order,
		})
	}
	return records
}

const defaultLimit = 20

func (q Query) limit() int {
	if q.Limit <= 0 {
		return defaultLimit
	}
	return q.Limit
}
