package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/domain/repositories"
	"github.com/leviathanch/Google-Companion/internal/telemetry"
)

// ToolHandler executes one tool call. Handlers may block on network I/O;
// the dispatcher runs them off the session loop.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// registeredTool pairs a declaration with its handler.
type registeredTool struct {
	decl    entities.ToolDeclaration
	handler ToolHandler
}

// ToolDispatcher routes tool-call batches to registered handlers and sends
// back exactly one correlated response batch per request batch. Handler
// failures of any kind become string results; nothing a tool does can
// abort the batch or touch session state.
type ToolDispatcher struct {
	metrics *telemetry.Metrics
	logger  *zap.Logger

	mu    sync.RWMutex
	tools map[string]registeredTool
	order []string
}

func NewToolDispatcher(metrics *telemetry.Metrics, logger *zap.Logger) *ToolDispatcher {
	return &ToolDispatcher{
		metrics: metrics,
		logger:  logger,
		tools:   make(map[string]registeredTool),
	}
}

// Register adds one tool to the manifest. A nil handler degrades to the
// disabled result at call time rather than erroring.
func (d *ToolDispatcher) Register(decl entities.ToolDeclaration, handler ToolHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tools[decl.Name]; !exists {
		d.order = append(d.order, decl.Name)
	}
	d.tools[decl.Name] = registeredTool{decl: decl, handler: handler}
}

// Manifest lists the declared tools in registration order, for the
// connect-time session setup.
func (d *ToolDispatcher) Manifest() []entities.ToolDeclaration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]entities.ToolDeclaration, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.tools[name].decl)
	}
	return out
}

// Dispatch resolves one batch against the given transport. Handlers run
// concurrently; the response batch is sent only once every call has a
// result. Response order within the batch is free, ids are not.
func (d *ToolDispatcher) Dispatch(ctx context.Context, transport repositories.AgentTransport, calls []entities.ToolCall) {
	if len(calls) == 0 {
		return
	}
	d.metrics.ToolCalls.Add(ctx, int64(len(calls)))

	responses := make([]entities.ToolResponse, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call entities.ToolCall) {
			defer wg.Done()
			responses[i] = entities.ToolResponse{
				ID:     call.ID,
				Name:   call.Name,
				Result: d.execute(ctx, call),
			}
		}(i, call)
	}
	wg.Wait()

	if err := transport.SendToolResponses(responses); err != nil {
		// Session is gone; the results have nowhere to go.
		d.logger.Warn("Dropping tool response batch", zap.Int("size", len(responses)), zap.Error(err))
	}
}

func (d *ToolDispatcher) execute(ctx context.Context, call entities.ToolCall) (result string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool handler panicked",
				zap.String("tool", call.Name),
				zap.Any("panic", r))
			result = fmt.Sprintf("Error: %v", r)
		}
	}()

	d.mu.RLock()
	tool, ok := d.tools[call.Name]
	d.mu.RUnlock()

	if !ok || tool.handler == nil {
		d.logger.Info("Call to unavailable tool", zap.String("tool", call.Name))
		return entities.DisabledToolResult
	}

	if err := validateArgs(tool.decl, call.Args); err != nil {
		d.logger.Warn("Tool arguments rejected",
			zap.String("tool", call.Name),
			zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}

	out, err := tool.handler(ctx, call.Args)
	if err != nil {
		d.logger.Warn("Tool handler failed",
			zap.String("tool", call.Name),
			zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

// validateArgs checks the call arguments against the declared parameter
// schema, when one was declared.
func validateArgs(decl entities.ToolDeclaration, args map[string]any) error {
	if decl.Parameters == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(decl.Parameters),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			return fmt.Errorf("invalid arguments: %s", desc)
		}
	}
	return nil
}
