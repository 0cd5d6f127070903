package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"imagebot/internal/domain"
	"imagebot/internal/imagegen"
)

// JSON-RPC 2.0 request
type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSON-RPC 2.0 response
type jsonRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolsListResult struct {
	Tools      []tool  `json:"tools"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

type tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema inputSchema `json:"inputSchema"`
}

type inputSchema struct {
	Type       string                `json:"type"`
	Properties map[string]schemaProp `json:"properties"`
	Required   []string              `json:"required,omitempty"`
}

type schemaProp struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type toolsCallResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Pipeline is the image pipeline the tools drive.
type Pipeline interface {
	Generate(ctx context.Context, prompt, aspectRatio, resolution string) (*imagegen.Result, error)
	Edit(ctx context.Context, sourceArg string, attached []string, prompt, aspectRatio, resolution string) (*imagegen.Result, error)
}

// Server exposes the image pipeline as LLM-callable tools over JSON-RPC 2.0
// (tools/list and tools/call).
type Server struct {
	svc Pipeline
}

// NewServer returns a tool server backed by the given pipeline.
func NewServer(svc Pipeline) *Server {
	return &Server{svc: svc}
}

// Handler returns the HTTP handler for JSON-RPC requests.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveJSONRPC)
}

func (s *Server) serveJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req jsonRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, nil, -32700, "Parse error")
		return
	}
	if req.JSONRPC != "2.0" {
		writeRPCError(w, req.ID, -32600, "Invalid Request")
		return
	}

	var result interface{}
	var rpcErr *rpcError
	switch req.Method {
	case "tools/list":
		result, rpcErr = s.handleToolsList()
	case "tools/call":
		result, rpcErr = s.handleToolsCall(r.Context(), req.Params)
	default:
		writeRPCError(w, req.ID, -32601, "Method not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if rpcErr != nil {
		_ = json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
		return
	}
	_ = json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (s *Server) handleToolsList() (interface{}, *rpcError) {
	return &toolsListResult{
		Tools: []tool{
			{
				Name:        "generate_image",
				Description: "Generate an image from a text prompt using the Grok image API",
				InputSchema: inputSchema{
					Type: "object",
					Properties: map[string]schemaProp{
						"prompt":       {Type: "string", Description: "Image generation prompt"},
						"aspect_ratio": {Type: "string", Description: "One of 1:1, 16:9, 9:16, 4:3, 3:4, 2:1, 1:2, 19.5:9, 9:19.5, 20:9, 9:20, auto"},
						"resolution":   {Type: "string", Description: "One of 1k, 2k"},
					},
					Required: []string{"prompt"},
				},
			},
			{
				Name:        "edit_image",
				Description: "Edit an existing image according to a text prompt using the Grok image API",
				InputSchema: inputSchema{
					Type: "object",
					Properties: map[string]schemaProp{
						"prompt":       {Type: "string", Description: "Edit instruction describing the desired change"},
						"image_url":    {Type: "string", Description: "Source image URL or local file path"},
						"aspect_ratio": {Type: "string", Description: "One of 1:1, 16:9, 9:16, 4:3, 3:4, 2:1, 1:2, 19.5:9, 9:19.5, 20:9, 9:20, auto"},
						"resolution":   {Type: "string", Description: "One of 1k, 2k"},
					},
					Required: []string{"prompt", "image_url"},
				},
			},
		},
	}, nil
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) handleToolsCall(ctx context.Context, paramsRaw json.RawMessage) (interface{}, *rpcError) {
	var params toolsCallParams
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return nil, &rpcError{Code: -32602, Message: "Invalid params"}
	}
	switch params.Name {
	case "generate_image":
		return s.callGenerateImage(ctx, params.Arguments)
	case "edit_image":
		return s.callEditImage(ctx, params.Arguments)
	default:
		return nil, &rpcError{Code: -32602, Message: "Unknown tool: " + params.Name}
	}
}

func getStr(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

type toolResult struct {
	SavedPath string `json:"saved_path"`
	RemoteURL string `json:"remote_url"`
}

func (s *Server) callGenerateImage(ctx context.Context, args map[string]interface{}) (interface{}, *rpcError) {
	result, err := s.svc.Generate(ctx, getStr(args, "prompt"), getStr(args, "aspect_ratio"), getStr(args, "resolution"))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result), nil
}

func (s *Server) callEditImage(ctx context.Context, args map[string]interface{}) (interface{}, *rpcError) {
	result, err := s.svc.Edit(ctx, getStr(args, "image_url"), nil, getStr(args, "prompt"), getStr(args, "aspect_ratio"), getStr(args, "resolution"))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result), nil
}

func successResult(result *imagegen.Result) *toolsCallResult {
	raw, _ := json.Marshal(toolResult{SavedPath: result.SavedPath, RemoteURL: result.RemoteURL})
	return &toolsCallResult{
		Content: []contentItem{{Type: "text", Text: string(raw)}},
	}
}

func errorResult(err error) *toolsCallResult {
	return &toolsCallResult{
		Content: []contentItem{{Type: "text", Text: domain.Kind(err) + ": " + err.Error()}},
		IsError: true,
	}
}

func writeRPCError(w http.ResponseWriter, id interface{}, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(jsonRPCResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}
