package search

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"todaytasks/api/internal/todo"
)

const idxTodos = "todaytasks_todos"

// Meilisearch rejects a whole batch when one primary key falls outside this set.
var documentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,511}$`)

// Meili indexes the task list in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}

	mu      sync.Mutex
	indexed map[string]struct{}
}

// NewMeili creates a Meilisearch client and configures the task index.
// An unreachable server is not an error; the health loop keeps probing.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client:  client,
		done:    make(chan struct{}),
		indexed: map[string]struct{}{},
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxTodos,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxTodos, err)
	}

	index := m.client.Index(idxTodos)
	filterable := []interface{}{"completed"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxTodos, err)
	}
	searchable := []string{"text"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxTodos, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the task index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	sr := &meili.SearchRequest{
		IndexUID:              idxTodos,
		Query:                 q.Text,
		Limit:                 int64(q.limit()),
		AttributesToHighlight: []string{"text"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	switch q.Filter {
	case todo.FilterActive:
		sr.Filter = []string{"completed = false"}
	case todo.FilterCompleted:
		sr.Filter = []string{"completed = true"}
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{sr},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	var results []Result
	total := 0
	for _, r := range resp.Results {
		total += int(r.EstimatedTotalHits)
		for _, hit := range r.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	r := Result{
		ID:   todo.ID(decodeString(hit, "id")),
		Text: decodeString(hit, "text"),
	}
	r.Snippet = firstNonBlank(decodeFormattedString(hit, "text"), r.Text)
	if raw, ok := hit["completed"]; ok {
		_ = json.Unmarshal(raw, &r.Completed)
	}
	if raw, ok := hit["order"]; ok {
		_ = json.Unmarshal(raw, &r.Order)
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// Sync makes the index mirror records: every record is upserted and tasks
// indexed by an earlier Sync but absent now are deleted.
func (m *Meili) Sync(records []TaskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[string]struct{}, len(records))
	valid := make([]TaskRecord, 0, len(records))
	for _, r := range records {
		if !documentIDPattern.MatchString(r.ID) {
			log.Printf("search: task id %q cannot be indexed, skipping", r.ID)
			continue
		}
		current[r.ID] = struct{}{}
		valid = append(valid, r)
	}
	if len(valid) > 0 {
		if _, err := m.client.Index(idxTodos).AddDocuments(valid, nil); err != nil {
			return fmt.Errorf("index tasks: %w", err)
		}
	}
	for id := range m.indexed {
		if _, ok := current[id]; ok {
			continue
		}
		if _, err := m.client.Index(idxTodos).DeleteDocument(id, nil); err != nil {
			return fmt.Errorf("delete task %s: %w", id, err)
		}
	}
	m.indexed = current
	return nil
}
