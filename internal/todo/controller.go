package todo

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"todaytasks/api/internal/util"
)

var (
	ErrEmptyText       = errors.New("task text is empty")
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidPosition = errors.New("position outside the visible list")
)

// Messages latched by the controller after a failed backend call.
const (
	LoadFailedMessage = "Failed to load todos. Please try again."
	SaveFailedMessage = "Failed to save changes. Please try again."
)

// Controller owns one session's view of the task list. Every mutation is
// applied locally first and then written through as a full replace. A failed
// write is not rolled back; it only latches an error message.
type Controller struct {
	mu      sync.Mutex
	backend Backend
	tasks   []Task
	filter  Filter
	errMsg  string

	now   func() time.Time
	newID func() string
}

func NewController(backend Backend) *Controller {
	return &Controller{
		backend: backend,
		tasks:   []Task{},
		filter:  FilterActive,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return util.NewID("") },
	}
}

func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tasks, err := c.backend.Read(ctx)
	if err != nil {
		c.errMsg = LoadFailedMessage
		return err
	}
	c.tasks = cloneTasks(tasks)
	sortByOrder(c.tasks)
	c.errMsg = ""
	return nil
}

func (c *Controller) Add(ctx context.Context, text string) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, ErrEmptyText
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	task := Task{
		ID:    ID(c.newID()),
		Text:  text,
		Time:  c.now(),
		Order: float64(len(c.tasks)),
	}
	c.tasks = append(c.tasks, task)
	return task, c.saveLocked(ctx)
}

func (c *Controller) Toggle(ctx context.Context, id ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	c.tasks[i].Completed = !c.tasks[i].Completed
	return c.saveLocked(ctx)
}

func (c *Controller) Edit(ctx context.Context, id ID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	c.tasks[i].Text = text
	return c.saveLocked(ctx)
}

// Delete removes the task. Remaining order values are left as they are.
func (c *Controller) Delete(ctx context.Context, id ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	c.tasks = slices.Delete(c.tasks, i, i+1)
	return c.saveLocked(ctx)
}

// Reorder moves the task at position from to position to, both counted in
// the currently visible (filtered, ordered) list. Visible tasks are then
// renumbered 0..k-1 by their new position; tasks hidden by the filter keep
// their order, even when that collides with a renumbered value.
func (c *Controller) Reorder(ctx context.Context, from, to int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	visible := visibleIndexes(c.tasks, c.filter)
	if from < 0 || from >= len(visible) || to < 0 || to >= len(visible) {
		return ErrInvalidPosition
	}

	moved := visible[from]
	visible = slices.Delete(visible, from, from+1)
	visible = slices.Insert(visible, to, moved)
	for position, i := range visible {
		c.tasks[i].Order = float64(position)
	}
	sortByOrder(c.tasks)
	return c.saveLocked(ctx)
}

func (c *Controller) SetFilter(f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = f
}

func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Visible returns the tasks shown under the current filter, ordered.
func (c *Controller) Visible() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Visible(c.tasks, c.filter)
}

// Tasks returns a copy of the full, unfiltered list.
func (c *Controller) Tasks() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneTasks(c.tasks)
}

// Err returns the latched user-facing error message, or "".
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Controller) indexLocked(id ID) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) saveLocked(ctx context.Context) error {
	if err := c.backend.Replace(ctx, cloneTasks(c.tasks)); err != nil {
		c.errMsg = SaveFailedMessage
		return err
	}
	c.errMsg = ""
	return nil
}

func sortByOrder(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Order < tasks[j].Order
	})
}
