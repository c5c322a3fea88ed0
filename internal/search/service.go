package search

import (
	"context"
	"log"
	"sync"

	"todaytasks/api/internal/todo"
)

// Index is the external full-text index the service prefers when healthy.
type Index interface {
	Search(q Query) ([]Result, int, error)
	Sync(records []TaskRecord) error
	Healthy() bool
}

// Source supplies the current task list.
type Source interface {
	Read(ctx context.Context) ([]todo.Task, error)
}

// Service is the facade that tries the index first and falls back to a
// substring scan of the stored list.
type Service struct {
	index  Index
	source Source

	pending chan []TaskRecord
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewService creates a search service. index may be nil if Meilisearch is
// not configured.
func NewService(index Index, source Source) *Service {
	s := &Service{index: index, source: source}
	if index != nil {
		s.pending = make(chan []TaskRecord, 1)
		s.done = make(chan struct{})
		s.wg.Add(1)
		go s.syncLoop()
	}
	return s
}

// Search runs q against the index when it is healthy, otherwise against the
// stored list. Index hits for tasks no longer in the list are dropped.
func (s *Service) Search(ctx context.Context, q Query) (Response, error) {
	resp := Response{Results: []Result{}, Query: q.Text}
	tasks, err := s.source.Read(ctx)
	if err != nil {
		return resp, err
	}

	if s.index != nil && s.index.Healthy() {
		results, total, err := s.index.Search(q)
		if err == nil {
			kept := keepCurrent(results, tasks, q.Filter)
			total -= len(results) - len(kept)
			if total < len(kept) {
				total = len(kept)
			}
			resp.Results, resp.Total = kept, total
			return resp, nil
		}
		log.Printf("search: meilisearch error, falling back to local scan: %v", err)
	}

	results, total := matchLocal(tasks, q)
	if results != nil {
		resp.Results = results
	}
	resp.Total = total
	return resp, nil
}

// Reindex schedules the index to mirror tasks. It never blocks; when several
// lists are queued only the latest is applied.
func (s *Service) Reindex(tasks []todo.Task) {
	if s.index == nil {
		return
	}
	records := recordsFor(tasks)
	for {
		select {
		case s.pending <- records:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

// ReindexFrom loads the stored list and schedules a reindex. Called once at
// startup so the index reflects writes made while it was unreachable.
func (s *Service) ReindexFrom(ctx context.Context) {
	if s.index == nil {
		return
	}
	tasks, err := s.source.Read(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.Reindex(tasks)
}

func (s *Service) syncLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case records := <-s.pending:
			if !s.index.Healthy() {
				continue
			}
			if err := s.index.Sync(records); err != nil {
				log.Printf("search: sync %d tasks: %v", len(records), err)
			}
		}
	}
}

// Close stops the background indexer.
func (s *Service) Close() {
	if s.done == nil {
		return
	}
	close(s.done)
	s.wg.Wait()
}

func keepCurrent(results []Result, tasks []todo.Task, f todo.Filter) []Result {
	current := make(map[todo.ID]todo.Task, len(tasks))
	for _, t := range tasks {
		current[t.ID] = t
	}
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		t, ok := current[r.ID]
		if !ok || !f.Match(t) {
			continue
		}
		r.Text, r.Completed, r.Order = t.Text, t.Completed, t.Order
		kept = append(kept, r)
	}
	return kept
}
