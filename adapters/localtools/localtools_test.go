package localtools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := NewWorkspace(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return w
}

func TestSaveNoteAndReadBack(t *testing.T) {
	w := newWorkspace(t)

	require.NoError(t, w.SaveNote("groceries", "milk and eggs"))

	got, err := w.ReadResource(context.Background(), "groceries")
	require.NoError(t, err)
	assert.Contains(t, got, "# groceries")
	assert.Contains(t, got, "milk and eggs")
}

func TestSaveFileAndReadBack(t *testing.T) {
	w := newWorkspace(t)

	require.NoError(t, w.SaveFile("config.json", `{"a":1}`))

	got, err := w.ReadResource(context.Background(), "config.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)
}

func TestSanitizeRejectsTraversal(t *testing.T) {
	w := newWorkspace(t)

	assert.Error(t, w.SaveNote("../escape", "x"))
	assert.Error(t, w.SaveFile("a/b", "x"))
	assert.Error(t, w.SaveFile(".hidden", "x"))
	assert.Error(t, w.SaveNote("   ", "x"))

	_, err := w.ReadResource(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestTraversalWritesNothingOutside(t *testing.T) {
	root := t.TempDir()
	w, err := NewWorkspace(filepath.Join(root, "ws"), zap.NewNop())
	require.NoError(t, err)

	_ = w.SaveFile("../../leak.txt", "x")
	_, statErr := os.Stat(filepath.Join(root, "leak.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTaskList(t *testing.T) {
	w := newWorkspace(t)
	ctx := context.Background()

	got, err := w.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No open tasks.", got)

	_, err = w.AddTask(ctx, "water the plants")
	require.NoError(t, err)
	got, err = w.AddTask(ctx, "call the vet")
	require.NoError(t, err)
	assert.Equal(t, "Task added. 2 tasks open.", got)

	got, err = w.ListTasks(ctx)
	require.NoError(t, err)
	assert.Contains(t, got, "1. water the plants")
	assert.Contains(t, got, "2. call the vet")

	_, err = w.AddTask(ctx, "  ")
	assert.Error(t, err)
}

func TestReadMissingResource(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.ReadResource(context.Background(), "nothing-here")
	assert.Error(t, err)
}

func TestCapabilityBundles(t *testing.T) {
	w := newWorkspace(t)

	caps := w.Capabilities(nil)
	assert.Nil(t, caps.Search)
	assert.NotNil(t, caps.ReadResource)

	effects := w.SideEffects(nil)
	assert.NotNil(t, effects.SaveNote)
	assert.Nil(t, effects.PlayMedia)

	desktop := NewDesktop(zap.NewNop(), nil)
	effects = w.SideEffects(desktop)
	assert.NotNil(t, effects.PlayMedia)
	assert.Error(t, effects.SetExpression("happy"), "no expression surface attached")
}

func TestExpressionCallback(t *testing.T) {
	var got string
	desktop := NewDesktop(zap.NewNop(), func(name string) { got = name })

	require.NoError(t, desktop.SetExpression("thinking"))
	assert.Equal(t, "thinking", got)
}
