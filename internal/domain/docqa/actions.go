package docqa

import (
	"context"
	"encoding/json"
	"fmt"

	"docchat-server/internal/utils/platformerrors"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// CompletionClient is the LLM surface the document operations need. The
// concrete implementation lives in the httpclients package.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, apiKey string, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

// DocumentSummary is the structured result of a summary generation.
type DocumentSummary struct {
	Title      string `json:"title"`
	SchoolName string `json:"schoolName"`
	Summary    string `json:"summary"`
}

// DocumentAnswer is the structured result of answering a question about a
// document.
type DocumentAnswer struct {
	Title    string `json:"title"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RelatedQuestion is one suggested follow-up question.
type RelatedQuestion struct {
	Question string `json:"question"`
}

// RelatedQuestions wraps the generated follow-up questions.
type RelatedQuestions struct {
	Questions []RelatedQuestion `json:"questions"`
}

// DocumentReference is structured citation information for a document.
type DocumentReference struct {
	Title      string `json:"title"`
	SchoolName string `json:"schoolName"`
	Reference  string `json:"reference"`
}

// Service generates structured document insights through an LLM. Every
// operation requests a JSON-schema constrained response and decodes it into
// its typed result.
type Service struct {
	client CompletionClient
	apiKey string
	model  string
}

func NewService(client CompletionClient, apiKey, model string) *Service {
	return &Service{
		client: client,
		apiKey: apiKey,
		model:  model,
	}
}

func (s *Service) GenerateDocumentSummary(ctx context.Context, documentTitle, schoolName string) (*DocumentSummary, error) {
	prompt := fmt.Sprintf(`As an expert academic analyst, provide a comprehensive yet concise summary of the document %q from %s.

Key aspects to cover:
1. Main objectives and core concepts
2. Key findings or arguments
3. Significant methodologies or approaches used
4. Important conclusions or recommendations
5. Practical implications or applications

Format your response with clear structure and emphasize the most critical points. Use professional academic language while maintaining clarity.`, documentTitle, schoolName)

	schema := objectSchema(map[string]jsonschema.Definition{
		"title":      {Type: jsonschema.String, Description: "Title of the document"},
		"schoolName": {Type: jsonschema.String, Description: "Name of the school"},
		"summary":    {Type: jsonschema.String, Description: "Detailed, well-structured summary of the document"},
	}, []string{"title", "schoolName", "summary"})

	var result DocumentSummary
	if err := s.generateObject(ctx, prompt, "document_summary", schema, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) GenerateDocumentAnswer(ctx context.Context, documentTitle, question string) (*DocumentAnswer, error) {
	prompt := fmt.Sprintf(`As an expert academic advisor, provide a detailed and accurate answer to the following question about %q:

Question: %q

Please ensure your response:
1. Directly addresses the specific question asked
2. Provides relevant context from the document
3. Cites specific sections or examples where applicable
4. Explains complex concepts in clear terms
5. Maintains academic rigor while being accessible
6. Includes relevant supporting details or examples

If any part of the question cannot be fully answered based on the document content, explicitly state this and explain what information is available.`, documentTitle, question)

	schema := objectSchema(map[string]jsonschema.Definition{
		"title":    {Type: jsonschema.String, Description: "Title of the document"},
		"question": {Type: jsonschema.String, Description: "The posed question"},
		"answer":   {Type: jsonschema.String, Description: "Comprehensive, well-reasoned answer based on document content"},
	}, []string{"title", "question", "answer"})

	var result DocumentAnswer
	if err := s.generateObject(ctx, prompt, "document_answer", schema, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) GenerateDocumentRelatedQuestions(ctx context.Context, documentTitle string) (*RelatedQuestions, error) {
	prompt := fmt.Sprintf(`As an experienced academic researcher, generate insightful follow-up questions about %q.

Generate questions that:
1. Probe deeper into key concepts and findings
2. Explore practical applications and implications
3. Challenge assumptions or methodologies
4. Connect ideas to broader academic contexts
5. Encourage critical thinking and analysis
6. Address potential gaps or areas for further research

Each question should be:
- Clear and specific
- Academically relevant
- Thought-provoking
- Connected to the document's core themes`, documentTitle)

	schema := objectSchema(map[string]jsonschema.Definition{
		"questions": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"question": {Type: jsonschema.String, Description: "A thought-provoking, academically-focused follow-up question"},
				},
				Required: []string{"question"},
			},
		},
	}, []string{"questions"})

	var result RelatedQuestions
	if err := s.generateObject(ctx, prompt, "related_questions", schema, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) GenerateDocumentReference(ctx context.Context, documentTitle, schoolName string) (*DocumentReference, error) {
	prompt := fmt.Sprintf(`As an academic librarian, provide detailed reference information for %q from %s.

Include comprehensive details about:
1. Full document title and subtitle
2. Institution and department affiliation
3. Document type and classification
4. Version information or edition details
5. Publication or last update date
6. Any unique identifiers or reference numbers
7. Related documentation or companion materials
8. Access classification or restrictions

Format the reference details in a clear, structured manner following academic standards.`, documentTitle, schoolName)

	schema := objectSchema(map[string]jsonschema.Definition{
		"title":      {Type: jsonschema.String, Description: "Complete title of the document"},
		"schoolName": {Type: jsonschema.String, Description: "Name of the school and relevant department"},
		"reference":  {Type: jsonschema.String, Description: "Comprehensive reference details following academic standards"},
	}, []string{"title", "schoolName", "reference"})

	var result DocumentReference
	if err := s.generateObject(ctx, prompt, "document_reference", schema, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// generateObject runs a single non-streaming completion constrained to the
// given JSON schema and decodes the model's output into out.
func (s *Service) generateObject(ctx context.Context, prompt, schemaName string, schema jsonschema.Definition, out any) error {
	request := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: &schema,
				Strict: true,
			},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, s.apiKey, request)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "document generation request failed")
	}
	if len(resp.Choices) == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "document generation returned no choices", nil, "f0a7d2e1-9c35-4b8a-b1f6-2d4e8a901c37")
	}

	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "document generation returned malformed JSON", err, "5b9e3d70-61af-4f0c-a8d2-7c3541e9ab82")
	}
	return nil
}

func objectSchema(properties map[string]jsonschema.Definition, required []string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: properties,
		Required:   required,
	}
}
