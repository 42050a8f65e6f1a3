package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"docchat-server/internal/infrastructure/logger"
	"docchat-server/internal/utils/platformerrors"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"
)

const (
	requestTimeout       = 120 * time.Second
	channelBufferSize    = 100
	errorBufferSize      = 10
	dataPrefix           = "data: "
	doneMarker           = "[DONE]"
	newlineChar          = "\n"
	scannerInitialBuffer = 12 * 1024        // 12KB
	scannerMaxBuffer     = 10 * 1024 * 1024 // 10MB
)

type StreamOption func(*resty.Request)

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChoiceDelta struct {
	Content   string            `json:"content"`
	ToolCalls []openai.ToolCall `json:"tool_calls,omitempty"`
}

type StreamChoice struct {
	Delta ChoiceDelta `json:"delta"`
}

func WithHeader(key, value string) StreamOption {
	return func(r *resty.Request) {
		if strings.TrimSpace(key) == "" {
			return
		}
		r.SetHeader(key, value)
	}
}

// CompletionClient talks to an OpenAI-compatible chat completions endpoint.
// The provider's stream is relayed to the browser line by line while content
// and tool calls are accumulated, so the caller gets back the complete
// assistant turn once the provider finishes.
type CompletionClient struct {
	client  *resty.Client
	baseURL string
	name    string
}

type toolCallAccumulator struct {
	ID       string
	Type     string
	Index    int
	Function struct {
		Name      string
		Arguments string
	}
	Complete bool
}

func NewCompletionClient(client *resty.Client, name, baseURL string) *CompletionClient {
	return &CompletionClient{
		client:  client,
		baseURL: normalizeBaseURL(baseURL),
		name:    name,
	}
}

func (c *CompletionClient) CreateChatCompletion(ctx context.Context, apiKey string, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	var respBody openai.ChatCompletionResponse
	resp, err := c.prepareRequest(ctx, apiKey).
		SetBody(request).
		SetResult(&respBody).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "request failed")
	}
	return &respBody, nil
}

// StreamChatCompletionToContext streams one completion round to the client
// connection. Provider chunks are relayed as-is except the provider's [DONE]
// marker, which is swallowed: the orchestrator may run further tool rounds on
// the same connection and terminates the stream itself with WriteDone.
func (c *CompletionClient) StreamChatCompletionToContext(reqCtx *gin.Context, apiKey string, request openai.ChatCompletionRequest, opts ...StreamOption) (*openai.ChatCompletionResponse, error) {
	request.StreamOptions = &openai.StreamOptions{
		IncludeUsage: true,
	}

	ctx, cancel := context.WithTimeout(reqCtx.Request.Context(), requestTimeout)
	defer cancel()

	dataChan := make(chan string, channelBufferSize)
	errChan := make(chan error, errorBufferSize)

	var wg sync.WaitGroup
	wg.Add(1)

	go c.streamResponseToChannel(ctx, apiKey, request, dataChan, errChan, &wg, opts)

	var contentBuilder strings.Builder
	accumulator := make(map[int]*toolCallAccumulator)

	streamingComplete := false

	for !streamingComplete {
		select {
		case line, ok := <-dataChan:
			if !ok {
				streamingComplete = true
				break
			}

			data, found := strings.CutPrefix(line, dataPrefix)
			if found && data == doneMarker {
				streamingComplete = true
				cancel()
				break
			}

			if err := c.writeSSELine(reqCtx, line); err != nil {
				cancel()
				wg.Wait()
				return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "unable to write SSE line")
			}

			if found {
				choice, _ := c.processStreamChunk(data)
				if choice != nil {
					if choice.Delta.Content != "" {
						contentBuilder.WriteString(choice.Delta.Content)
					}
					for i := range choice.Delta.ToolCalls {
						c.handleStreamingToolCall(&choice.Delta.ToolCalls[i], accumulator)
					}
				}
			}

		case err, ok := <-errChan:
			if ok && err != nil {
				cancel()
				wg.Wait()
				return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "streaming error")
			}

		case <-ctx.Done():
			wg.Wait()
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, ctx.Err(), "streaming context cancelled")

		case <-reqCtx.Request.Context().Done():
			cancel()
			wg.Wait()
			return nil, platformerrors.AsError(reqCtx.Request.Context(), platformerrors.LayerDomain, reqCtx.Request.Context().Err(), "client request cancelled")
		}
	}

	cancel()
	wg.Wait()

	close(dataChan)
	close(errChan)

	response := c.buildCompleteResponse(contentBuilder.String(), accumulator, request)

	return &response, nil
}

func (c *CompletionClient) SetupSSEHeaders(reqCtx *gin.Context) {
	if reqCtx == nil {
		return
	}

	reqCtx.Header("Content-Type", "text/event-stream")
	reqCtx.Header("Cache-Control", "no-cache")
	reqCtx.Header("Connection", "keep-alive")
	reqCtx.Header("Access-Control-Allow-Origin", "*")
	reqCtx.Header("Access-Control-Allow-Headers", "Cache-Control")
	reqCtx.Header("Transfer-Encoding", "chunked")
	reqCtx.Writer.WriteHeaderNow()
}

// WriteSSEData writes one data event to the client connection.
func WriteSSEData(reqCtx *gin.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = reqCtx.Writer.Write([]byte(dataPrefix + string(body) + newlineChar + newlineChar))
	if err != nil {
		return err
	}
	reqCtx.Writer.Flush()
	return nil
}

// WriteDone terminates the SSE stream with the [DONE] marker.
func WriteDone(reqCtx *gin.Context) error {
	_, err := reqCtx.Writer.Write([]byte(dataPrefix + doneMarker + newlineChar + newlineChar))
	if err != nil {
		return err
	}
	reqCtx.Writer.Flush()
	return nil
}

func (c *CompletionClient) prepareRequest(ctx context.Context, apiKey string) *resty.Request {
	req := c.client.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	if strings.TrimSpace(apiKey) != "" {
		req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}
	return req
}

func (c *CompletionClient) endpoint(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if c.baseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

func (c *CompletionClient) errorFromResponse(ctx context.Context, resp *resty.Response, message string) error {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, message, nil, "6a3f9c01-2b44-49c6-8a57-10b2dd4febc1")
	}
	defer resp.RawResponse.Body.Close()
	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, message, nil, "97b5b2a8-0da4-4df3-86a4-4f7c2ef13a02")
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, message, nil, "e4d40f5b-6ea9-4c6e-b1dc-8b91d3c977d4")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s: %s", message, trimmed), nil, "2c8178fe-0f8f-4650-9f62-5f3f33ab6070")
}

func (c *CompletionClient) doStreamingRequest(ctx context.Context, apiKey string, request openai.ChatCompletionRequest, opts ...StreamOption) (*resty.Response, error) {
	req := c.prepareRequest(ctx, apiKey).
		SetBody(request).
		SetDoNotParseResponse(true)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(req)
	}

	if req.Header.Get("Accept-Encoding") == "" {
		req.SetHeader("Accept-Encoding", "identity")
	}

	resp, err := req.Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "streaming request failed")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "streaming request failed: empty response body", nil, "0d1de0cf-4f83-4a41-9f0e-3f9b8b4d3a55")
	}

	return resp, nil
}

func (c *CompletionClient) streamResponseToChannel(ctx context.Context, apiKey string, request openai.ChatCompletionRequest, dataChan chan<- string, errChan chan<- error, wg *sync.WaitGroup, opts []StreamOption) {
	defer wg.Done()

	resp, err := c.doStreamingRequest(ctx, apiKey, request, opts...)
	if err != nil {
		c.sendAsyncError(errChan, err)
		return
	}

	defer func() {
		if closeErr := resp.RawResponse.Body.Close(); closeErr != nil {
			log := logger.GetLogger()
			log.Error().Err(closeErr).Str("client", c.name).Msg("unable to close response body")
		}
	}()

	scanner := bufio.NewScanner(resp.RawResponse.Body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			c.sendAsyncError(errChan, ctx.Err())
			return
		default:
		}

		line := scanner.Text()

		select {
		case dataChan <- line:
		case <-ctx.Done():
			c.sendAsyncError(errChan, ctx.Err())
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.sendAsyncError(errChan, err)
	}
}

func (c *CompletionClient) writeSSELine(reqCtx *gin.Context, line string) error {
	if reqCtx == nil {
		return platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "nil gin context provided", nil, "b7c4a2fa-24d1-40c7-bf74-5a0b459d6f13")
	}
	_, err := reqCtx.Writer.Write([]byte(line + newlineChar))
	if err != nil {
		return err
	}
	reqCtx.Writer.Flush()
	return nil
}

func (c *CompletionClient) processStreamChunk(data string) (*StreamChoice, *TokenUsage) {
	var streamData struct {
		Choices []StreamChoice `json:"choices"`
		Usage   *TokenUsage    `json:"usage"`
	}

	if err := json.Unmarshal([]byte(data), &streamData); err != nil {
		log := logger.GetLogger()
		log.Error().Err(err).Str("client", c.name).Str("data", data).Msg("failed to parse stream chunk JSON")
		return nil, nil
	}

	result := &StreamChoice{}

	for _, choice := range streamData.Choices {
		if choice.Delta.Content != "" {
			result.Delta.Content += choice.Delta.Content
		}
		if len(choice.Delta.ToolCalls) > 0 {
			result.Delta.ToolCalls = append(result.Delta.ToolCalls, choice.Delta.ToolCalls...)
		}
	}

	return result, streamData.Usage
}

func (c *CompletionClient) handleStreamingToolCall(toolCall *openai.ToolCall, accumulator map[int]*toolCallAccumulator) {
	if toolCall == nil || toolCall.Index == nil {
		return
	}

	index := *toolCall.Index
	if accumulator[index] == nil {
		accumulator[index] = &toolCallAccumulator{
			ID:    toolCall.ID,
			Type:  string(toolCall.Type),
			Index: index,
		}
	}

	if toolCall.Function.Name != "" {
		accumulator[index].Function.Name = toolCall.Function.Name
	}
	if toolCall.Function.Arguments != "" {
		accumulator[index].Function.Arguments += toolCall.Function.Arguments
	}

	if accumulator[index].Function.Name != "" && accumulator[index].Function.Arguments != "" && strings.HasSuffix(accumulator[index].Function.Arguments, "}") {
		accumulator[index].Complete = true
	}
}

func (c *CompletionClient) buildCompleteResponse(content string, accumulator map[int]*toolCallAccumulator, request openai.ChatCompletionRequest) openai.ChatCompletionResponse {
	message := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: content,
	}

	finishReason := openai.FinishReasonStop

	if len(accumulator) > 0 {
		var toolCalls []openai.ToolCall
		for _, acc := range accumulator {
			if acc != nil && acc.Complete {
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   acc.ID,
					Type: openai.ToolType(acc.Type),
					Function: openai.FunctionCall{
						Name:      acc.Function.Name,
						Arguments: acc.Function.Arguments,
					},
				})
			}
		}

		if len(toolCalls) > 0 {
			message.ToolCalls = toolCalls
			finishReason = openai.FinishReasonToolCalls
		}
	}

	choices := []openai.ChatCompletionChoice{
		{
			Index:        0,
			Message:      message,
			FinishReason: finishReason,
		},
	}

	promptTokens := c.estimateTokens(request.Messages)
	completionTokens := c.estimateTokens([]openai.ChatCompletionMessage{message})

	return openai.ChatCompletionResponse{
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   request.Model,
		Choices: choices,
		Usage: openai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}

func (c *CompletionClient) estimateTokens(messages []openai.ChatCompletionMessage) int {
	var allText strings.Builder

	for _, msg := range messages {
		allText.WriteString(msg.Content)
		allText.WriteString(" ")

		for _, toolCall := range msg.ToolCalls {
			allText.WriteString(toolCall.ID)
			allText.WriteString(" ")
			allText.WriteString(toolCall.Function.Name)
			allText.WriteString(" ")
			allText.WriteString(toolCall.Function.Arguments)
			allText.WriteString(" ")
		}
	}

	normalized := strings.Join(strings.Fields(allText.String()), " ")
	return len(strings.Fields(normalized))
}

func (c *CompletionClient) sendAsyncError(errChan chan<- error, err error) {
	if err == nil {
		return
	}

	select {
	case errChan <- err:
	default:
	}
}

func (c *CompletionClient) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}
