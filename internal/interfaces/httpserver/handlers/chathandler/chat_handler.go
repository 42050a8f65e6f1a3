package chathandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"docchat-server/internal/config"
	"docchat-server/internal/domain/chat"
	"docchat-server/internal/infrastructure/auth"
	"docchat-server/internal/infrastructure/logger"
	"docchat-server/internal/infrastructure/metrics"
	"docchat-server/internal/infrastructure/observability"
	chatrequests "docchat-server/internal/interfaces/httpserver/requests/chat"
	"docchat-server/internal/interfaces/httpserver/responses"
	"docchat-server/internal/utils/functional"
	chatclient "docchat-server/internal/utils/httpclients/chat"
	"docchat-server/internal/utils/platformerrors"
)

const persistTimeout = 10 * time.Second

// Streamer streams one completion round to the client connection and returns
// the accumulated assistant turn.
type Streamer interface {
	SetupSSEHeaders(reqCtx *gin.Context)
	StreamChatCompletionToContext(reqCtx *gin.Context, apiKey string, request openai.ChatCompletionRequest, opts ...chatclient.StreamOption) (*openai.ChatCompletionResponse, error)
}

// ToolExecutor exposes the callable tools advertised to the model.
type ToolExecutor interface {
	Definitions() []openai.Tool
	Execute(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// toolResultEvent is the synthesized stream event carrying a finished tool
// execution to the browser between completion rounds.
type toolResultEvent struct {
	Type       string          `json:"type"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Result     json.RawMessage `json:"result"`
}

// ChatHandler orchestrates chat turns: it relays model output to the
// browser, executes requested tools, and persists the finished transcript.
type ChatHandler struct {
	chatService *chat.ChatService
	streamer    Streamer
	toolset     ToolExecutor
	cfg         *config.Config
}

func NewChatHandler(chatService *chat.ChatService, streamer Streamer, toolset ToolExecutor, cfg *config.Config) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		streamer:    streamer,
		toolset:     toolset,
		cfg:         cfg,
	}
}

// CreateChat handles POST /api/chat: one conversation turn. The model may
// request tool calls; each finished tool feeds the next completion round
// until the model produces a plain answer or the round budget runs out. The
// transcript is persisted best-effort after the response has been streamed.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	log := logger.GetLogger()

	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "unauthorized")
		return
	}

	var req chatrequests.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "invalid chat request")
		return
	}

	transcript := filterEmptyMessages(req.Messages)
	if len(transcript) == 0 {
		platformerrors.WriteValidationError(c, "chat request has no messages")
		return
	}

	convo := append([]openai.ChatCompletionMessage{systemMessage()}, toCompletionMessages(transcript)...)

	h.streamer.SetupSSEHeaders(c)

	start := time.Now()
	for round := 0; round < h.cfg.MaxToolRounds; round++ {
		request := openai.ChatCompletionRequest{
			Model:    h.cfg.ChatModel,
			Messages: convo,
			Tools:    h.toolset.Definitions(),
			Stream:   true,
		}

		resp, err := h.streamer.StreamChatCompletionToContext(c, h.cfg.ProviderAPIKey, request)
		if err != nil {
			metrics.RecordProviderError("stream")
			observability.RecordError(c.Request.Context(), err)
			log.Error().Err(err).
				Str("chat_id", req.ID).
				Str("trace_id", observability.GetTraceID(c.Request.Context())).
				Msg("completion stream failed")
			_ = chatclient.WriteDone(c)
			return
		}
		metrics.RecordTokens(h.cfg.ChatModel, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

		if len(resp.Choices) == 0 {
			break
		}
		choice := resp.Choices[0]

		assistant := chat.Message{
			Role:    chat.RoleAssistant,
			Content: choice.Message.Content,
		}
		for _, call := range choice.Message.ToolCalls {
			assistant.ToolInvocations = append(assistant.ToolInvocations, chat.ToolInvocation{
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				State:      chat.InvocationStateCall,
				Args:       json.RawMessage(call.Function.Arguments),
			})
		}
		transcript = append(transcript, assistant)
		convo = append(convo, choice.Message)

		if choice.FinishReason != openai.FinishReasonToolCalls {
			break
		}

		for _, call := range choice.Message.ToolCalls {
			payload := h.executeTool(c, call)

			transcript = append(transcript, chat.Message{
				Role:       chat.RoleTool,
				ToolCallID: call.ID,
				Content:    string(payload),
			})
			convo = append(convo, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(payload),
				ToolCallID: call.ID,
			})
		}
	}
	metrics.RecordLLMDuration(h.cfg.ChatModel, true, time.Since(start).Seconds())

	if err := chatclient.WriteDone(c); err != nil {
		log.Warn().Err(err).Str("chat_id", req.ID).Msg("unable to terminate stream")
	}

	// The response has already been delivered; a failed save must not
	// surface to the client.
	h.persistTranscript(req.ID, principal.ID, transcript)
}

// executeTool runs one tool call and relays its result to the browser. Tool
// failures become error payloads so the model can recover in the next round.
func (h *ChatHandler) executeTool(c *gin.Context, call openai.ToolCall) json.RawMessage {
	log := logger.GetLogger()
	ctx := c.Request.Context()

	result, err := h.toolset.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
	if err != nil {
		metrics.RecordToolCall(call.Function.Name, "error")
		log.Error().Err(err).Str("tool", call.Function.Name).Msg("tool execution failed")
		return json.RawMessage(fmt.Sprintf(`{"error":%q}`, "tool execution failed"))
	}
	metrics.RecordToolCall(call.Function.Name, "ok")

	payload, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Str("tool", call.Function.Name).Msg("tool result not serializable")
		return json.RawMessage(`{"error":"tool execution failed"}`)
	}

	event := toolResultEvent{
		Type:       "tool_result",
		ToolCallID: call.ID,
		ToolName:   call.Function.Name,
		Result:     payload,
	}
	if err := chatclient.WriteSSEData(c, event); err != nil {
		log.Warn().Err(err).Str("tool", call.Function.Name).Msg("unable to relay tool result")
	}

	return payload
}

func (h *ChatHandler) persistTranscript(publicID, userID string, transcript []chat.Message) {
	log := logger.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	saved, err := h.chatService.SaveTranscript(ctx, publicID, userID, transcript)
	if err != nil {
		log.Error().Err(err).Str("chat_id", publicID).Msg("failed to save chat")
		return
	}
	if saved.CreatedAt.Equal(saved.UpdatedAt) {
		metrics.ChatsCreatedTotal.Inc()
	}
}

// GetChat handles GET /api/chat?id=: returns one conversation for rendering.
func (h *ChatHandler) GetChat(c *gin.Context) {
	log := logger.GetLogger()

	id := c.Query("id")
	if id == "" {
		platformerrors.WriteNotFound(c, "Not Found")
		return
	}

	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "unauthorized")
		return
	}

	found, err := h.chatService.GetChatByPublicIDAndUserID(c.Request.Context(), id, principal.ID)
	if err != nil {
		platformerrors.WriteError(c, err, log)
		return
	}

	c.JSON(http.StatusOK, responses.NewChatResponse(found))
}

// DeleteChat handles DELETE /api/chat?id=. A missing id parameter is a 404
// before any datastore access; non-owners and absent chats both answer 401.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	log := logger.GetLogger()

	id := c.Query("id")
	if id == "" {
		platformerrors.WriteNotFound(c, "Not Found")
		return
	}

	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "unauthorized")
		return
	}

	if err := h.chatService.DeleteChatByID(c.Request.Context(), principal.ID, id); err != nil {
		platformerrors.WriteError(c, err, log)
		return
	}

	c.String(http.StatusOK, "Chat deleted")
}

// GetHistory handles GET /api/history: the caller's conversations, newest
// first.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	log := logger.GetLogger()

	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "unauthorized")
		return
	}

	chats, err := h.chatService.ListChatsByUserID(c.Request.Context(), principal.ID)
	if err != nil {
		platformerrors.WriteError(c, err, log)
		return
	}

	c.JSON(http.StatusOK, responses.NewHistoryResponse(chats))
}

func systemMessage() openai.ChatCompletionMessage {
	content := fmt.Sprintf(`
        - You are a document question-answer bot for school documents.
        - Provide clear, concise, and accurate answers based on the document content.
        - Limit your responses to a sentence.
        - Ask clarifying questions if details are missing (e.g., document type, section).
        - Do not output lists.
        - Today is %s.
        - Tailor responses for a SaaS app serving schools.
    `, time.Now().Format("1/2/2006"))

	return openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: content,
	}
}

// filterEmptyMessages drops messages the model has nothing to do with.
func filterEmptyMessages(messages []chat.Message) []chat.Message {
	return functional.Filter(messages, func(msg chat.Message) bool {
		return msg.HasContent()
	})
}

// toCompletionMessages converts the stored transcript into provider wire
// messages. Attachment URLs are appended to the user text so the model can
// reference the uploaded documents.
func toCompletionMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}

		for _, att := range msg.Attachments {
			m.Content += fmt.Sprintf("\n\nAttachment: %s (%s) %s", att.Name, att.ContentType, att.URL)
		}

		var results []openai.ChatCompletionMessage
		for _, inv := range msg.ToolInvocations {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   inv.ToolCallID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      inv.ToolName,
					Arguments: string(inv.Args),
				},
			})
			if inv.State == chat.InvocationStateResult {
				results = append(results, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    string(inv.Result),
					ToolCallID: inv.ToolCallID,
				})
			}
		}

		out = append(out, m)
		out = append(out, results...)
	}
	return out
}
