package docqa

import (
	"context"
	"encoding/json"
	"fmt"

	"docchat-server/internal/utils/platformerrors"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool names exposed to the model. These are part of the wire contract with
// the browser client, which selects a renderer by name.
const (
	ToolGenerateDocumentSummary          = "generateDocumentSummary"
	ToolGenerateDocumentAnswer           = "generateDocumentAnswer"
	ToolGenerateDocumentRelatedQuestions = "generateDocumentRelatedQuestions"
	ToolGenerateDocumentReference        = "generateDocumentReference"
)

// Toolset adapts the document operations into callable completion tools.
type Toolset struct {
	service *Service
}

func NewToolset(service *Service) *Toolset {
	return &Toolset{service: service}
}

// Definitions returns the tool declarations sent with every completion
// request.
func (t *Toolset) Definitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolGenerateDocumentSummary,
				Description: "Generate a concise summary for a school document",
				Parameters: objectSchema(map[string]jsonschema.Definition{
					"documentTitle": {Type: jsonschema.String, Description: "Title of the document"},
					"schoolName":    {Type: jsonschema.String, Description: "Name of the school"},
				}, []string{"documentTitle", "schoolName"}),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolGenerateDocumentAnswer,
				Description: "Answer a question based on the document content",
				Parameters: objectSchema(map[string]jsonschema.Definition{
					"documentTitle": {Type: jsonschema.String, Description: "Title of the document"},
					"question":      {Type: jsonschema.String, Description: "Question related to the document"},
				}, []string{"documentTitle", "question"}),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolGenerateDocumentRelatedQuestions,
				Description: "Provide follow-up questions to clarify document details",
				Parameters: objectSchema(map[string]jsonschema.Definition{
					"documentTitle": {Type: jsonschema.String, Description: "Title of the document"},
				}, []string{"documentTitle"}),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolGenerateDocumentReference,
				Description: "Provide reference details for a document",
				Parameters: objectSchema(map[string]jsonschema.Definition{
					"documentTitle": {Type: jsonschema.String, Description: "Title of the document"},
					"schoolName":    {Type: jsonschema.String, Description: "Name of the school"},
				}, []string{"documentTitle", "schoolName"}),
			},
		},
	}
}

// Execute dispatches a tool call by name. The result is the operation's typed
// value, ready for JSON serialization back to the model and the browser.
func (t *Toolset) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case ToolGenerateDocumentSummary:
		var params struct {
			DocumentTitle string `json:"documentTitle"`
			SchoolName    string `json:"schoolName"`
		}
		if err := t.decodeArgs(ctx, name, args, &params); err != nil {
			return nil, err
		}
		return t.service.GenerateDocumentSummary(ctx, params.DocumentTitle, params.SchoolName)

	case ToolGenerateDocumentAnswer:
		var params struct {
			DocumentTitle string `json:"documentTitle"`
			Question      string `json:"question"`
		}
		if err := t.decodeArgs(ctx, name, args, &params); err != nil {
			return nil, err
		}
		return t.service.GenerateDocumentAnswer(ctx, params.DocumentTitle, params.Question)

	case ToolGenerateDocumentRelatedQuestions:
		var params struct {
			DocumentTitle string `json:"documentTitle"`
		}
		if err := t.decodeArgs(ctx, name, args, &params); err != nil {
			return nil, err
		}
		return t.service.GenerateDocumentRelatedQuestions(ctx, params.DocumentTitle)

	case ToolGenerateDocumentReference:
		var params struct {
			DocumentTitle string `json:"documentTitle"`
			SchoolName    string `json:"schoolName"`
		}
		if err := t.decodeArgs(ctx, name, args, &params); err != nil {
			return nil, err
		}
		return t.service.GenerateDocumentReference(ctx, params.DocumentTitle, params.SchoolName)

	default:
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("unknown tool: %s", name), nil, "41e8c2b6-0f5d-4a1c-9e73-6b8a2f4d1c09")
	}
}

func (t *Toolset) decodeArgs(ctx context.Context, name string, args json.RawMessage, out any) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(args, out); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("invalid arguments for tool %s", name), err, "9d2f7a34-8c16-4e5b-a0d9-3f61b8e24c70")
	}
	return nil
}
