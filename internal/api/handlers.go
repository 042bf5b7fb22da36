package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ycho/redmine-mcp/internal/mcp"
)

// @title Redmine MCP Server API
// @version 1.0
// @description JSON gateway to the Redmine MCP tools
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Redmine-API-Key

const maxArgumentsBytes = 32 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ToolCallResponse is the gateway's rendering of a tool result.
type ToolCallResponse struct {
	Tool    string `json:"tool"`
	IsError bool   `json:"is_error"`
	Content any    `json:"content"`
}

// @Summary List tools
// @Description Returns every tool definition with its input schema and annotations
// @Tags Tools
// @Produce json
// @Success 200 {object} map[string]any
// @Router /tools [get]
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.dispatcher.ListTools()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":     tools,
		"count":     len(tools),
		"read_only": s.dispatcher.ReadOnly(),
	})
}

// @Summary Call tool
// @Description Invokes a tool with the JSON object in the body as its arguments. Tool failures are reported in-band with is_error set
// @Tags Tools
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "Tool name"
// @Param arguments body object false "Tool arguments"
// @Success 200 {object} ToolCallResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tools/{name} [post]
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.dispatcher.HasTool(name) {
		writeError(w, http.StatusNotFound, "Unknown tool: "+name)
		return
	}

	args, err := decodeArguments(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.dispatcher.CallTool(r.Context(), name, args)
	writeJSON(w, http.StatusOK, ToolCallResponse{
		Tool:    name,
		IsError: res.IsError,
		Content: res.Content,
	})
}

// decodeArguments reads a JSON object. An empty body means no arguments.
func decodeArguments(body io.Reader) (map[string]any, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxArgumentsBytes))
	if err != nil {
		return nil, err
	}
	args := map[string]any{}
	if strings.TrimSpace(string(raw)) == "" {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errors.New("request body must be a JSON object of tool arguments")
	}
	return args, nil
}

// sseContext carries the caller's credentials into tool calls arriving on
// the SSE message endpoint.
func (s *Server) sseContext(ctx context.Context, r *http.Request) context.Context {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return mcp.WithClient(ctx, s.client.WithAPIKey(key))
	}
	return ctx
}
