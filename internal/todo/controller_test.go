package todo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todaytasks/api/internal/store"
)

// recordingBackend keeps the last replaced list and can be told to fail.
type recordingBackend struct {
	tasks    []Task
	replaces int
	readErr  error
	writeErr error
}

func (b *recordingBackend) Read(context.Context) ([]Task, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	return cloneTasks(b.tasks), nil
}

func (b *recordingBackend) Replace(_ context.Context, tasks []Task) error {
	b.replaces++
	if b.writeErr != nil {
		return b.writeErr
	}
	b.tasks = cloneTasks(tasks)
	return nil
}

func newTestController(backend Backend) *Controller {
	c := NewController(backend)
	seq := 0
	c.newID = func() string {
		seq++
		return fmt.Sprintf("t%d", seq)
	}
	base := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	return c
}

func texts(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Text
	}
	return out
}

func orders(tasks []Task) map[string]float64 {
	out := make(map[string]float64, len(tasks))
	for _, t := range tasks {
		out[t.Text] = t.Order
	}
	return out
}

func TestControllerScenario(t *testing.T) {
	backend := &recordingBackend{}
	c := newTestController(backend)
	ctx := context.Background()

	milk, err := c.Add(ctx, "  Buy milk ")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", milk.Text)
	assert.False(t, milk.Completed)
	assert.Equal(t, float64(0), milk.Order)
	require.Len(t, backend.tasks, 1)

	require.NoError(t, c.Toggle(ctx, milk.ID))
	assert.True(t, backend.tasks[0].Completed)

	dog, err := c.Add(ctx, "Walk dog")
	require.NoError(t, err)
	assert.Equal(t, float64(1), dog.Order)

	require.NoError(t, c.Delete(ctx, milk.ID))
	require.Len(t, backend.tasks, 1)
	assert.Equal(t, "Walk dog", backend.tasks[0].Text)
	assert.Equal(t, float64(1), backend.tasks[0].Order, "delete must not renumber")
	assert.Equal(t, 4, backend.replaces)
}

func TestControllerAddRejectsBlankText(t *testing.T) {
	backend := &recordingBackend{}
	c := newTestController(backend)

	_, err := c.Add(context.Background(), "   \t ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, c.Tasks())
	assert.Zero(t, backend.replaces)
}

func TestControllerEdit(t *testing.T) {
	backend := &recordingBackend{}
	c := newTestController(backend)
	ctx := context.Background()
	task, err := c.Add(ctx, "draft")
	require.NoError(t, err)

	require.NoError(t, c.Edit(ctx, task.ID, "  final  "))
	assert.Equal(t, "final", backend.tasks[0].Text)

	assert.ErrorIs(t, c.Edit(ctx, task.ID, "  "), ErrEmptyText)
	assert.Equal(t, "final", c.Tasks()[0].Text)

	assert.ErrorIs(t, c.Edit(ctx, "missing", "x"), ErrTaskNotFound)
	assert.ErrorIs(t, c.Toggle(ctx, "missing"), ErrTaskNotFound)
	assert.ErrorIs(t, c.Delete(ctx, "missing"), ErrTaskNotFound)
	assert.Equal(t, 2, backend.replaces)
}

func TestControllerVisibleFilters(t *testing.T) {
	backend := &recordingBackend{tasks: []Task{
		{ID: "c", Text: "C", Order: 2},
		{ID: "a", Text: "A", Order: 0, Completed: true},
		{ID: "b", Text: "B", Order: 1},
	}}
	c := newTestController(backend)
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, FilterActive, c.Filter())
	assert.Equal(t, []string{"B", "C"}, texts(c.Visible()))

	c.SetFilter(FilterCompleted)
	assert.Equal(t, []string{"A"}, texts(c.Visible()))

	c.SetFilter(FilterAll)
	assert.Equal(t, []string{"A", "B", "C"}, texts(c.Visible()))
	assert.Zero(t, backend.replaces, "filtering must not write")
}

func TestControllerReorderAll(t *testing.T) {
	backend := &recordingBackend{tasks: []Task{
		{ID: "a", Text: "A", Order: 0},
		{ID: "b", Text: "B", Order: 1},
		{ID: "c", Text: "C", Order: 2},
		{ID: "d", Text: "D", Order: 3},
	}}
	c := newTestController(backend)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	c.SetFilter(FilterAll)

	require.NoError(t, c.Reorder(ctx, 0, 2))
	assert.Equal(t, []string{"B", "C", "A", "D"}, texts(c.Visible()))
	assert.Equal(t, map[string]float64{"B": 0, "C": 1, "A": 2, "D": 3}, orders(backend.tasks))

	require.NoError(t, c.Reorder(ctx, 3, 0))
	assert.Equal(t, []string{"D", "B", "C", "A"}, texts(c.Visible()))
	assert.Equal(t, map[string]float64{"D": 0, "B": 1, "C": 2, "A": 3}, orders(backend.tasks))
}

func TestControllerReorderNormalizesFractionalOrders(t *testing.T) {
	backend := &recordingBackend{tasks: []Task{
		{ID: "a", Text: "A", Order: 0.5},
		{ID: "b", Text: "B", Order: -0.5},
		{ID: "c", Text: "C", Order: 7},
	}}
	c := newTestController(backend)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	c.SetFilter(FilterAll)

	require.NoError(t, c.Reorder(ctx, 1, 1))
	assert.Equal(t, map[string]float64{"B": 0, "A": 1, "C": 2}, orders(backend.tasks))
}

func TestControllerReorderWithinFilterLeavesHiddenOrders(t *testing.T) {
	backend := &recordingBackend{tasks: []Task{
		{ID: "a", Text: "A", Order: 0},
		{ID: "b", Text: "B", Order: 1, Completed: true},
		{ID: "c", Text: "C", Order: 2},
		{ID: "d", Text: "D", Order: 3},
	}}
	c := newTestController(backend)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	// Active view is A, C, D. Move D to the top.
	require.NoError(t, c.Reorder(ctx, 2, 0))
	assert.Equal(t, []string{"D", "A", "C"}, texts(c.Visible()))

	got := orders(backend.tasks)
	assert.Equal(t, float64(0), got["D"])
	assert.Equal(t, float64(1), got["A"])
	assert.Equal(t, float64(2), got["C"])
	// The hidden completed task keeps its order and now shares 1 with A.
	assert.Equal(t, float64(1), got["B"])

	// No duplicates among tasks that were in the reordered scope.
	seen := map[float64]string{}
	for _, task := range backend.tasks {
		if task.Completed {
			continue
		}
		if other, dup := seen[task.Order]; dup {
			t.Fatalf("duplicate order %v for %s and %s", task.Order, other, task.Text)
		}
		seen[task.Order] = task.Text
	}
}

func TestControllerReorderRejectsOutOfRange(t *testing.T) {
	backend := &recordingBackend{tasks: []Task{{ID: "a", Text: "A"}, {ID: "b", Text: "B", Order: 1}}}
	c := newTestController(backend)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	for _, pos := range [][2]int{{-1, 0}, {0, 2}, {2, 0}, {0, -1}} {
		assert.ErrorIs(t, c.Reorder(ctx, pos[0], pos[1]), ErrInvalidPosition)
	}
	assert.Zero(t, backend.replaces)
}

func TestControllerFailedSaveIsNotRolledBack(t *testing.T) {
	backend := &recordingBackend{writeErr: errors.New("offline")}
	c := newTestController(backend)
	ctx := context.Background()

	_, err := c.Add(ctx, "Buy milk")
	require.Error(t, err)
	assert.Equal(t, SaveFailedMessage, c.Err())
	require.Len(t, c.Tasks(), 1, "local state keeps the optimistic change")

	backend.writeErr = nil
	_, err = c.Add(ctx, "Walk dog")
	require.NoError(t, err)
	assert.Empty(t, c.Err(), "a successful save clears the latched error")
	assert.Len(t, backend.tasks, 2)
}

func TestControllerLoadFailureLatches(t *testing.T) {
	c := newTestController(&recordingBackend{readErr: errors.New("boom")})
	require.Error(t, c.Load(context.Background()))
	assert.Equal(t, LoadFailedMessage, c.Err())
}

func TestControllerAgainstStoreKeepsDenseOrder(t *testing.T) {
	s := NewStore(store.NewMemoryStore())
	c := newTestController(s)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	c.SetFilter(FilterAll)

	for _, text := range []string{"one", "two", "three", "four"} {
		_, err := c.Add(ctx, text)
		require.NoError(t, err)
	}
	require.NoError(t, c.Reorder(ctx, 3, 1))

	persisted, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "four", "two", "three"}, texts(Visible(persisted, FilterAll)))
	for i, task := range Visible(persisted, FilterAll) {
		assert.Equal(t, float64(i), task.Order)
	}
}
