package visitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"todaytasks/api/internal/store"
)

// DefaultCap bounds the number of visits kept in the log.
const DefaultCap = 1000

// Log is the bounded visit log kept in a single document.
type Log struct {
	docs   store.Documents
	Cap    int
	Window time.Duration

	mu sync.Mutex
}

func NewLog(docs store.Documents) *Log {
	return &Log{docs: docs, Cap: DefaultCap, Window: MatchWindow}
}

// ReadAll returns every stored visit, oldest first.
func (l *Log) ReadAll(ctx context.Context) ([]Visit, error) {
	raw, err := l.docs.Get(ctx, store.VisitorsDocument)
	if errors.Is(err, store.ErrNotFound) {
		return []Visit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read visitor log: %w", err)
	}
	var visits []Visit
	if err := json.Unmarshal(raw, &visits); err != nil {
		return nil, fmt.Errorf("decode visitor log: %w", err)
	}
	if visits == nil {
		visits = []Visit{}
	}
	return visits, nil
}

// Append adds one visit, trims the oldest entries beyond Cap and returns the
// number of stored visits.
func (l *Log) Append(ctx context.Context, v Visit) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	visits, err := l.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	return l.appendLocked(ctx, visits, v)
}

// Record resolves the visitor behind a page load and appends exactly one
// visit for it.
func (l *Log) Record(ctx context.Context, req Request, now time.Time) (Resolution, Visit, error) {
	if req.IP == "" {
		req.IP = "unknown"
	}
	if req.UserAgent == "" {
		req.UserAgent = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	visits, err := l.ReadAll(ctx)
	if err != nil {
		return Resolution{}, Visit{}, err
	}
	res := Resolve(visits, req, now, l.Window)
	visit := Visit{
		ID:             uuid.NewString(),
		VisitorID:      res.VisitorID,
		IsNewVisitor:   res.IsNew,
		Timestamp:      Timestamp{now},
		IP:             req.IP,
		UserAgent:      req.UserAgent,
		Referer:        req.Referer,
		ScreenWidth:    req.ScreenWidth,
		ScreenHeight:   req.ScreenHeight,
		ViewportWidth:  req.ViewportWidth,
		ViewportHeight: req.ViewportHeight,
		PixelRatio:     req.PixelRatio,
		Language:       req.Language,
		Timezone:       req.Timezone,
		Platform:       req.Platform,
		TouchSupport:   req.TouchSupport,
		ConnectionType: req.ConnectionType,
	}
	if _, err := l.appendLocked(ctx, visits, visit); err != nil {
		return Resolution{}, Visit{}, err
	}
	return res, visit, nil
}

func (l *Log) appendLocked(ctx context.Context, visits []Visit, v Visit) (int, error) {
	visits = append(visits, v)
	limit := l.Cap
	if limit <= 0 {
		limit = DefaultCap
	}
	if len(visits) > limit {
		visits = visits[len(visits)-limit:]
	}
	body, err := json.MarshalIndent(visits, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode visitor log: %w", err)
	}
	if err := l.docs.Put(ctx, store.VisitorsDocument, append(body, '\n')); err != nil {
		return 0, fmt.Errorf("write visitor log: %w", err)
	}
	return len(visits), nil
}
