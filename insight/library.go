package insight

import (
	"context"
	"log"
	"slices"

	"google.golang.org/genai"
)

// Library answers the function calls of a model.
type Library func(context.Context, *genai.FunctionCall) *genai.FunctionResponse

// Tool is a function the model may call while writing.
type Tool interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Toolbox holds the tools offered to a model, by name.
type Toolbox map[string]Tool

// NewToolbox returns a Toolbox of tools.
func NewToolbox(tools ...Tool) Toolbox {
	t := make(Toolbox, len(tools))
	for _, tool := range tools {
		t[tool.Declaration().Name] = tool
	}
	return t
}

// Tools declares the tools to the model, sorted by name.
func (t Toolbox) Tools() []*genai.Tool {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	decls := make([]*genai.FunctionDeclaration, 0, len(names))
	for _, name := range names {
		decls = append(decls, t[name].Declaration())
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// Answer runs a function call. Unknown functions and failures are reported
// to the model as an "error" response.
func (t Toolbox) Answer(ctx context.Context, call *genai.FunctionCall) *genai.FunctionResponse {
	resp := &genai.FunctionResponse{ID: call.ID, Name: call.Name}
	tool, ok := t[call.Name]
	if !ok {
		resp.Response = map[string]any{"error": "unknown function " + call.Name}
		return resp
	}
	out, err := tool.Call(ctx, call.Args)
	if err != nil {
		log.Printf("insight-tool-failed name=%s err=%v", call.Name, err)
		resp.Response = map[string]any{"error": err.Error()}
		return resp
	}
	resp.Response = out
	return resp
}
