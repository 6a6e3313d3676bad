// Package localtools provides the filesystem and desktop-side capability
// implementations handed to the tool dispatcher.
package localtools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/repositories"
)

// Workspace stores notes and files under a root directory and keeps an
// in-memory task list.
type Workspace struct {
	root   string
	logger *zap.Logger

	mu    sync.Mutex
	tasks []string
}

func NewWorkspace(root string, logger *zap.Logger) (*Workspace, error) {
	for _, dir := range []string{root, filepath.Join(root, "notes"), filepath.Join(root, "files")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create workspace directory: %w", err)
		}
	}
	return &Workspace{root: root, logger: logger}, nil
}

// sanitize rejects names that would escape the workspace.
func sanitize(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name must not be empty")
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid name %q", name)
	}
	return name, nil
}

func (w *Workspace) SaveNote(title, body string) error {
	name, err := sanitize(title)
	if err != nil {
		return err
	}
	path := filepath.Join(w.root, "notes", name+".md")
	content := fmt.Sprintf("# %s\n\n%s\n\nSaved: %s\n", title, body, time.Now().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	w.logger.Info("Note saved", zap.String("path", path))
	return nil
}

func (w *Workspace) SaveFile(name, content string) error {
	base, err := sanitize(name)
	if err != nil {
		return err
	}
	path := filepath.Join(w.root, "files", base)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	w.logger.Info("File saved", zap.String("path", path))
	return nil
}

// ReadResource returns the contents of a saved note or file.
func (w *Workspace) ReadResource(ctx context.Context, name string) (string, error) {
	base, err := sanitize(name)
	if err != nil {
		return "", err
	}
	for _, candidate := range []string{
		filepath.Join(w.root, "notes", base+".md"),
		filepath.Join(w.root, "notes", base),
		filepath.Join(w.root, "files", base),
	} {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return string(data), nil
		}
	}
	return "", fmt.Errorf("no resource named %q", name)
}

func (w *Workspace) ListTasks(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.tasks) == 0 {
		return "No open tasks.", nil
	}
	var b strings.Builder
	for i, task := range w.tasks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, task)
	}
	return b.String(), nil
}

func (w *Workspace) AddTask(ctx context.Context, task string) (string, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return "", fmt.Errorf("task must not be empty")
	}
	w.mu.Lock()
	w.tasks = append(w.tasks, task)
	count := len(w.tasks)
	w.mu.Unlock()
	return fmt.Sprintf("Task added. %d tasks open.", count), nil
}

// Desktop shells out for media playback and notifications. Expressions
// are forwarded to a callback so the UI layer decides how to render them.
type Desktop struct {
	logger       *zap.Logger
	onExpression func(name string)
}

func NewDesktop(logger *zap.Logger, onExpression func(name string)) *Desktop {
	return &Desktop{logger: logger, onExpression: onExpression}
}

func (d *Desktop) PlayMedia(query string) error {
	cmd := exec.Command("xdg-open", "https://music.youtube.com/search?q="+strings.ReplaceAll(query, " ", "+"))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch media player: %w", err)
	}
	d.logger.Info("Media playback requested", zap.String("query", query))
	return nil
}

func (d *Desktop) SetExpression(name string) error {
	if d.onExpression == nil {
		return fmt.Errorf("no expression surface attached")
	}
	d.onExpression(name)
	return nil
}

func (d *Desktop) Notify(title, body string) error {
	cmd := exec.Command("notify-send", title, body)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// Capabilities bundles the workspace-backed read capabilities, wiring in
// the searcher when one is configured.
func (w *Workspace) Capabilities(search func(ctx context.Context, query string) (string, error)) repositories.Capabilities {
	return repositories.Capabilities{
		Search:       search,
		ReadResource: w.ReadResource,
		ListTasks:    w.ListTasks,
		AddTask:      w.AddTask,
	}
}

// SideEffects bundles the write-side capabilities.
func (w *Workspace) SideEffects(desktop *Desktop) repositories.SideEffects {
	effects := repositories.SideEffects{
		SaveNote: w.SaveNote,
		SaveFile: w.SaveFile,
	}
	if desktop != nil {
		effects.PlayMedia = desktop.PlayMedia
		effects.SetExpression = desktop.SetExpression
		effects.Notify = desktop.Notify
	}
	return effects
}
