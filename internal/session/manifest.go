package session

import (
	"context"
	"fmt"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/domain/repositories"
)

func stringSchema(props map[string]string, required ...string) map[string]any {
	properties := make(map[string]any, len(props))
	for name, desc := range props {
		properties[name] = map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

// RegisterCapabilities declares the full tool surface on the dispatcher.
// Every tool is always declared; a capability the deployment does not
// provide keeps its declaration and answers with the disabled result,
// so the agent learns the boundary instead of hallucinating around a
// missing tool.
func RegisterCapabilities(d *ToolDispatcher, caps repositories.Capabilities, effects repositories.SideEffects) {
	d.Register(entities.ToolDeclaration{
		Name:        "search_web",
		Description: "Search the web and return a short grounded summary.",
		Parameters:  stringSchema(map[string]string{"query": "What to search for."}, "query"),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		if caps.Search == nil {
			return entities.DisabledToolResult, nil
		}
		query, err := stringArg(args, "query")
		if err != nil {
			return "", err
		}
		return caps.Search(ctx, query)
	})

	d.Register(entities.ToolDeclaration{
		Name:        "read_resource",
		Description: "Read a named local resource such as a note or document.",
		Parameters:  stringSchema(map[string]string{"name": "Resource name to read."}, "name"),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		if caps.ReadResource == nil {
			return entities.DisabledToolResult, nil
		}
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		return caps.ReadResource(ctx, name)
	})

	d.Register(entities.ToolDeclaration{
		Name:        "list_tasks",
		Description: "List the user's open tasks.",
	}, func(ctx context.Context, args map[string]any) (string, error) {
		if caps.ListTasks == nil {
			return entities.DisabledToolResult, nil
		}
		return caps.ListTasks(ctx)
	})

	d.Register(entities.ToolDeclaration{
		Name:        "add_task",
		Description: "Add a task to the user's task list.",
		Parameters:  stringSchema(map[string]string{"task": "Task description."}, "task"),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		if caps.AddTask == nil {
			return entities.DisabledToolResult, nil
		}
		task, err := stringArg(args, "task")
		if err != nil {
			return "", err
		}
		return caps.AddTask(ctx, task)
	})

	d.Register(entities.ToolDeclaration{
		Name:        "save_note",
		Description: "Save a note with a title and body.",
		Parameters: stringSchema(map[string]string{
			"title": "Note title.",
			"body":  "Note contents.",
		}, "title", "body"),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		if effects.SaveNote == nil {
			return entities.DisabledToolResult, nil
		}
		title, err := stringArg(args, "title")
		if err != nil {
			return "", err
		}
		body, err := stringArg(args, "body")
		if err != nil {
			return "", err
		}
		if err := effects.SaveNote(title, body); err != nil {
			return "", err
		}
		return "note saved", nil
	})

	d.Register(entities.ToolDeclaration{
		Name:        "save_file",
		Description: "Write a file into the user's workspace.",
		Parameters: stringSchema(map[string]string{
			"name":    "File name.",
			"content": "File contents.",
		}, "name", "content"),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		if effects.SaveFile == nil {
			return entities.DisabledToolResult, nil
		}
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		content, err := stringArg(args, "content")
		if err != nil {
			return "", err
		}
		if err := effects.SaveFile(name, content); err != nil {
			return "", err
		}
		return "file saved", nil
	})

	d.Register(entities.ToolDeclaration{
		Name:        "play_media",
		Description: "Play music or other media matching a query.",
		Parameters:  stringSchema(map[string]string{"query": "What to play."}, "query"),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		if effects.PlayMedia == nil {
			return entities.DisabledToolResult, nil
		}
		query, err := stringArg(args, "query")
		if err != nil {
			return "", err
		}
		if err := effects.PlayMedia(query); err != nil {
			return "", err
		}
		return "playing", nil
	})

	d.Register(entities.ToolDeclaration{
		Name:        "set_expression",
		Description: "Set the companion's facial expression.",
		Parameters:  stringSchema(map[string]string{"name": "Expression name."}, "name"),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		if effects.SetExpression == nil {
			return entities.DisabledToolResult, nil
		}
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		if err := effects.SetExpression(name); err != nil {
			return "", err
		}
		return "expression set", nil
	})

	d.Register(entities.ToolDeclaration{
		Name:        "send_notification",
		Description: "Show a desktop notification to the user.",
		Parameters: stringSchema(map[string]string{
			"title": "Notification title.",
			"body":  "Notification body.",
		}, "title", "body"),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		if effects.Notify == nil {
			return entities.DisabledToolResult, nil
		}
		title, err := stringArg(args, "title")
		if err != nil {
			return "", err
		}
		body, err := stringArg(args, "body")
		if err != nil {
			return "", err
		}
		if err := effects.Notify(title, body); err != nil {
			return "", err
		}
		return "notification sent", nil
	})
}
