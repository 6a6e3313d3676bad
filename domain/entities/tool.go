package entities

// DisabledToolResult is returned for tool calls whose capability is not
// wired up. The agent receives it as an ordinary result, never an error.
const DisabledToolResult = "capability disabled"

// ToolDeclaration describes one callable tool in the session manifest.
// Parameters is a JSON-Schema-like object describing named typed arguments.
type ToolDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameterSchema,omitempty"`
}

// ToolCall is a single request issued by the remote agent. Calls arrive in
// batches, one batch per reasoning step.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResponse correlates a result back to its call by id. Result is always
// a string; structured results are serialized before they get here.
type ToolResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Result string `json:"result"`
}
