// Package todo holds the task list model, its whole-document store and the
// client-side list controller that produces canonical ordering.
package todo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ErrMalformed marks input that is not a structurally valid task list.
var ErrMalformed = errors.New("malformed task list")

// TimeLayout matches the browser's Date.toISOString output.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ID is an opaque task identity. Numeric JSON ids are accepted and kept as
// their decimal text so ids compare equal across writers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty id", ErrMalformed)
	}
	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: id: %v", ErrMalformed, err)
		}
		*id = ID(s)
		return nil
	case c == '-' || (c >= '0' && c <= '9'):
		num := json.Number(data)
		if i, err := num.Int64(); err == nil {
			*id = ID(strconv.FormatInt(i, 10))
			return nil
		}
		f, err := num.Float64()
		if err != nil {
			return fmt.Errorf("%w: id %s", ErrMalformed, data)
		}
		*id = ID(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	default:
		return fmt.Errorf("%w: id must be a string or number, got %s", ErrMalformed, data)
	}
}

type Task struct {
	ID        ID
	Text      string
	Completed bool
	Time      time.Time
	Order     float64
	// Extra carries fields this package does not know about so they survive
	// a read/replace cycle.
	Extra map[string]json.RawMessage
}

type Document struct {
	Todos []Task `json:"todos"`
}

var knownFields = []string{"id", "text", "completed", "time", "order"}

func (t *Task) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: task: %v", ErrMalformed, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: task must be an object", ErrMalformed)
	}

	var task Task
	if raw, ok := fields["id"]; ok {
		if err := task.ID.UnmarshalJSON(raw); err != nil {
			return err
		}
	}
	if err := decodeField(fields, "text", &task.Text); err != nil {
		return err
	}
	if err := decodeField(fields, "completed", &task.Completed); err != nil {
		return err
	}
	if err := decodeField(fields, "order", &task.Order); err != nil {
		return err
	}
	var stamp string
	if err := decodeField(fields, "time", &stamp); err != nil {
		return err
	}
	if stamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			return fmt.Errorf("%w: time %q", ErrMalformed, stamp)
		}
		task.Time = parsed
	}

	for _, key := range knownFields {
		delete(fields, key)
	}
	if len(fields) > 0 {
		task.Extra = fields
	}
	*t = task
	return nil
}

func decodeField(fields map[string]json.RawMessage, key string, target any) error {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: field %q: %v", ErrMalformed, key, err)
	}
	return nil
}

// MarshalJSON writes known fields first, in a fixed order, followed by any
// extra fields sorted by name, so identical tasks always encode identically.
func (t Task) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		encodedKey, _ := json.Marshal(key)
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		buf.Write(encoded)
		return nil
	}

	if err := write("id", string(t.ID)); err != nil {
		return nil, err
	}
	if err := write("text", t.Text); err != nil {
		return nil, err
	}
	if err := write("completed", t.Completed); err != nil {
		return nil, err
	}
	if !t.Time.IsZero() {
		if err := write("time", t.Time.UTC().Format(TimeLayout)); err != nil {
			return nil, err
		}
	}
	if err := write("order", t.Order); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(t.Extra))
	for key := range t.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := write(key, t.Extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeTasks parses a request body that must be a bare JSON array of tasks.
func DecodeTasks(body []byte) ([]Task, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformed)
	}
	var tasks []Task
	if err := json.Unmarshal(trimmed, &tasks); err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

func cloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}
