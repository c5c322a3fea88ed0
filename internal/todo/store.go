package todo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"todaytasks/api/internal/store"
)

// Backend is anything that can read and wholesale replace the task list:
// the server-side Store or a remote Client.
type Backend interface {
	Read(ctx context.Context) ([]Task, error)
	Replace(ctx context.Context, tasks []Task) error
}

// Store persists the task list as a single {"todos": [...]} document.
type Store struct {
	docs store.Documents
	name string
}

func NewStore(docs store.Documents) *Store {
	return &Store{docs: docs, name: store.TodosDocument}
}

// Read returns the persisted tasks, or an empty list when nothing has been
// written yet.
func (s *Store) Read(ctx context.Context) ([]Task, error) {
	raw, err := s.docs.Get(ctx, s.name)
	if errors.Is(err, store.ErrNotFound) {
		return []Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read todos: %w", err)
	}
	return DecodeDocument(raw)
}

// DecodeDocument parses the persisted {"todos": [...]} form.
func DecodeDocument(raw []byte) ([]Task, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode todos document: %w", err)
	}
	if doc.Todos == nil {
		doc.Todos = []Task{}
	}
	return doc.Todos, nil
}

func (s *Store) Replace(ctx context.Context, tasks []Task) error {
	_, err := s.ReplaceDocument(ctx, tasks)
	return err
}

// ReplaceDocument overwrites the whole document and returns the bytes written.
func (s *Store) ReplaceDocument(ctx context.Context, tasks []Task) ([]byte, error) {
	payload, err := EncodeDocument(tasks)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Put(ctx, s.name, payload); err != nil {
		return nil, fmt.Errorf("write todos: %w", err)
	}
	return payload, nil
}

// EncodeDocument renders the persisted form of tasks.
func EncodeDocument(tasks []Task) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	payload, err := json.MarshalIndent(Document{Todos: tasks}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode todos: %w", err)
	}
	return append(payload, '\n'), nil
}
