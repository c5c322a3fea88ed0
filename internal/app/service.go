package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"todaytasks/api/internal/config"
	"todaytasks/api/internal/export"
	"todaytasks/api/internal/gitrepo"
	"todaytasks/api/internal/search"
	"todaytasks/api/internal/settings"
	"todaytasks/api/internal/store"
	"todaytasks/api/internal/todo"
	"todaytasks/api/internal/visitor"
)

type historyService interface {
	Record(body []byte, message string) (gitrepo.CommitInfo, bool, error)
	History(limit int) ([]gitrepo.CommitInfo, error)
	Content(hash string) ([]byte, gitrepo.CommitInfo, error)
}

type searchService interface {
	Search(ctx context.Context, q search.Query) (search.Response, error)
	Reindex(tasks []todo.Task)
}

type exportService interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type Service struct {
	cfg      config.Config
	docs     store.Documents
	todos    *todo.Store
	visitors *visitor.Log
	settings *settings.Store
	search   searchService
	history  historyService
	export   exportService
	now      func() time.Time
}

// New wires the application services over one document backend. index and
// history are optional; pass nil to run without Meilisearch or git history.
func New(cfg config.Config, docs store.Documents, index search.Index, history *gitrepo.Service) *Service {
	todos := todo.NewStore(docs)
	prefs := settings.NewStore(docs)

	visitors := visitor.NewLog(docs)
	if cfg.VisitorLogCap > 0 {
		visitors.Cap = cfg.VisitorLogCap
	}
	if cfg.VisitorMatchWindow > 0 {
		visitors.Window = cfg.VisitorMatchWindow
	}

	svc := &Service{
		cfg:      cfg,
		docs:     docs,
		todos:    todos,
		visitors: visitors,
		settings: prefs,
		search:   search.NewService(index, todos),
		export:   export.NewService(todos, prefs),
		now:      time.Now,
	}
	if history != nil {
		svc.history = history
	}
	return svc
}

// Bootstrap brings the search index in line with the stored list.
func (s *Service) Bootstrap(ctx context.Context) {
	if svc, ok := s.search.(*search.Service); ok {
		svc.ReindexFrom(ctx)
	}
}

// Close stops background work started by New.
func (s *Service) Close() {
	if svc, ok := s.search.(*search.Service); ok {
		svc.Close()
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.docs.Ping(ctx)
}

func (s *Service) ListTodos(ctx context.Context) ([]todo.Task, error) {
	tasks, err := s.todos.Read(ctx)
	if err != nil {
		log.Printf("todos: read failed: %v", err)
		return nil, serverError("Error reading todos")
	}
	return tasks, nil
}

// ReplaceTodos persists body, a bare JSON array of tasks, as the whole list.
func (s *Service) ReplaceTodos(ctx context.Context, body []byte) error {
	tasks, err := todo.DecodeTasks(body)
	if err != nil {
		return domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
	}
	written, err := s.todos.ReplaceDocument(ctx, tasks)
	if err != nil {
		log.Printf("todos: write failed: %v", err)
		return serverError("Error saving todos")
	}

	s.search.Reindex(tasks)
	if s.history != nil {
		if _, _, err := s.history.Record(written, historyMessage(tasks)); err != nil {
			log.Printf("history: record todos: %v", err)
		}
	}
	return nil
}

func historyMessage(tasks []todo.Task) string {
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	return fmt.Sprintf("Save %d tasks (%d completed)", len(tasks), done)
}

func (s *Service) SearchTodos(ctx context.Context, q search.Query) (search.Response, error) {
	resp, err := s.search.Search(ctx, q)
	if err != nil {
		log.Printf("search: %v", err)
		return search.Response{}, serverError("Error searching todos")
	}
	return resp, nil
}

func (s *Service) TodoHistory(limit int) ([]gitrepo.CommitInfo, error) {
	if s.history == nil {
		return nil, errHistoryDisabled
	}
	return s.history.History(limit)
}

// TodoRevision returns the task list as committed at hash.
func (s *Service) TodoRevision(hash string) (gitrepo.CommitInfo, []todo.Task, error) {
	if s.history == nil {
		return gitrepo.CommitInfo{}, nil, errHistoryDisabled
	}
	body, info, err := s.history.Content(hash)
	if err != nil {
		return gitrepo.CommitInfo{}, nil, err
	}
	doc, err := todo.DecodeDocument(body)
	if err != nil {
		return gitrepo.CommitInfo{}, nil, fmt.Errorf("decode revision %s: %w", hash, err)
	}
	return info, doc, nil
}

func (s *Service) ExportTodos(ctx context.Context, req export.Request) (*export.Result, error) {
	return s.export.Export(ctx, req)
}

// RecordVisit resolves and logs one page load.
func (s *Service) RecordVisit(ctx context.Context, req visitor.Request) (visitor.Resolution, error) {
	res, _, err := s.visitors.Record(ctx, req, s.now())
	if err != nil {
		log.Printf("visitors: record failed: %v", err)
		return visitor.Resolution{}, serverError("Error saving visit")
	}
	return res, nil
}

func (s *Service) ListVisits(ctx context.Context) ([]visitor.Visit, error) {
	visits, err := s.visitors.ReadAll(ctx)
	if err != nil {
		log.Printf("visitors: read failed: %v", err)
		return nil, serverError("Error reading visitors")
	}
	return visits, nil
}

func (s *Service) VisitorStats(ctx context.Context) (visitor.Report, error) {
	visits, err := s.ListVisits(ctx)
	if err != nil {
		return visitor.Report{}, err
	}
	return visitor.Summarize(visits), nil
}

func (s *Service) LoadSettings(ctx context.Context) (settings.Settings, error) {
	return s.settings.Load(ctx)
}

func (s *Service) SaveSettings(ctx context.Context, body []byte) (settings.Settings, error) {
	saved, err := s.settings.Save(ctx, body)
	if errors.Is(err, settings.ErrMalformed) {
		return settings.Settings{}, domainError(http.StatusBadRequest, "INVALID_BODY", "Invalid JSON data", nil)
	}
	if err != nil {
		log.Printf("settings: save failed: %v", err)
		return settings.Settings{}, serverError("Failed to save settings")
	}
	return saved, nil
}
