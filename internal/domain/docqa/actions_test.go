package docqa

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat-server/internal/utils/platformerrors"
)

type mockCompletionClient struct {
	lastRequest openai.ChatCompletionRequest
	response    *openai.ChatCompletionResponse
	err         error
}

func (m *mockCompletionClient) CreateChatCompletion(ctx context.Context, apiKey string, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	m.lastRequest = request
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func completionWith(content string) *openai.ChatCompletionResponse {
	return &openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func TestGenerateDocumentSummary(t *testing.T) {
	client := &mockCompletionClient{
		response: completionWith(`{"title":"Enrollment Handbook","schoolName":"Springfield High","summary":"Covers enrollment."}`),
	}
	svc := NewService(client, "test-key", "test-model")

	summary, err := svc.GenerateDocumentSummary(context.Background(), "Enrollment Handbook", "Springfield High")
	require.NoError(t, err)

	assert.Equal(t, "Enrollment Handbook", summary.Title)
	assert.Equal(t, "Springfield High", summary.SchoolName)
	assert.Equal(t, "Covers enrollment.", summary.Summary)

	assert.Equal(t, "test-model", client.lastRequest.Model)
	require.NotNil(t, client.lastRequest.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, client.lastRequest.ResponseFormat.Type)
	require.Len(t, client.lastRequest.Messages, 1)
	assert.Contains(t, client.lastRequest.Messages[0].Content, `"Enrollment Handbook"`)
	assert.Contains(t, client.lastRequest.Messages[0].Content, "Springfield High")
}

func TestGenerateDocumentAnswer(t *testing.T) {
	client := &mockCompletionClient{
		response: completionWith(`{"title":"Handbook","question":"What is the deadline?","answer":"June 1."}`),
	}
	svc := NewService(client, "test-key", "test-model")

	answer, err := svc.GenerateDocumentAnswer(context.Background(), "Handbook", "What is the deadline?")
	require.NoError(t, err)

	assert.Equal(t, "What is the deadline?", answer.Question)
	assert.Equal(t, "June 1.", answer.Answer)
	assert.Contains(t, client.lastRequest.Messages[0].Content, "What is the deadline?")
}

func TestGenerateDocumentRelatedQuestions(t *testing.T) {
	client := &mockCompletionClient{
		response: completionWith(`{"questions":[{"question":"How does enrollment differ by grade?"},{"question":"What documents are required?"}]}`),
	}
	svc := NewService(client, "test-key", "test-model")

	questions, err := svc.GenerateDocumentRelatedQuestions(context.Background(), "Handbook")
	require.NoError(t, err)

	require.Len(t, questions.Questions, 2)
	assert.Equal(t, "How does enrollment differ by grade?", questions.Questions[0].Question)
}

func TestGenerateDocumentReference(t *testing.T) {
	client := &mockCompletionClient{
		response: completionWith(`{"title":"Handbook","schoolName":"Springfield High","reference":"Springfield High (2026). Handbook."}`),
	}
	svc := NewService(client, "test-key", "test-model")

	ref, err := svc.GenerateDocumentReference(context.Background(), "Handbook", "Springfield High")
	require.NoError(t, err)

	assert.Equal(t, "Springfield High (2026). Handbook.", ref.Reference)
}

func TestGenerateObjectErrors(t *testing.T) {
	tests := []struct {
		name      string
		client    *mockCompletionClient
		errorType platformerrors.ErrorType
	}{
		{
			name:      "provider error",
			client:    &mockCompletionClient{err: errors.New("connection refused")},
			errorType: platformerrors.ErrorTypeInternal,
		},
		{
			name:      "no choices",
			client:    &mockCompletionClient{response: &openai.ChatCompletionResponse{}},
			errorType: platformerrors.ErrorTypeExternal,
		},
		{
			name:      "malformed json",
			client:    &mockCompletionClient{response: completionWith(`not json`)},
			errorType: platformerrors.ErrorTypeExternal,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(tc.client, "test-key", "test-model")
			_, err := svc.GenerateDocumentSummary(context.Background(), "Handbook", "Springfield High")
			require.Error(t, err)
			assert.True(t, platformerrors.IsErrorType(err, tc.errorType))
		})
	}
}

func TestToolsetDefinitions(t *testing.T) {
	toolset := NewToolset(NewService(&mockCompletionClient{}, "", ""))

	defs := toolset.Definitions()
	require.Len(t, defs, 4)

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		assert.Equal(t, openai.ToolTypeFunction, def.Type)
		names = append(names, def.Function.Name)
	}
	assert.Equal(t, []string{
		ToolGenerateDocumentSummary,
		ToolGenerateDocumentAnswer,
		ToolGenerateDocumentRelatedQuestions,
		ToolGenerateDocumentReference,
	}, names)
}

func TestToolsetExecute(t *testing.T) {
	client := &mockCompletionClient{
		response: completionWith(`{"title":"Handbook","schoolName":"Springfield High","summary":"A summary."}`),
	}
	toolset := NewToolset(NewService(client, "test-key", "test-model"))

	result, err := toolset.Execute(context.Background(), ToolGenerateDocumentSummary, json.RawMessage(`{"documentTitle":"Handbook","schoolName":"Springfield High"}`))
	require.NoError(t, err)

	summary, ok := result.(*DocumentSummary)
	require.True(t, ok)
	assert.Equal(t, "A summary.", summary.Summary)
}

func TestToolsetExecuteUnknownTool(t *testing.T) {
	toolset := NewToolset(NewService(&mockCompletionClient{}, "", ""))

	_, err := toolset.Execute(context.Background(), "bookFlight", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestToolsetExecuteInvalidArgs(t *testing.T) {
	toolset := NewToolset(NewService(&mockCompletionClient{}, "", ""))

	_, err := toolset.Execute(context.Background(), ToolGenerateDocumentAnswer, json.RawMessage(`not json`))
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}
