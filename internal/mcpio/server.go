package mcpio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/logging"
)

const ProtocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Handler runs a tool call. The returned value is rendered as JSON text content.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	Handler     Handler                `json:"-"`
}

// Server answers initialize, ping, tools/list and tools/call.
type Server struct {
	Name    string
	Version string

	tools map[string]Tool
	log   *slog.Logger
}

func NewServer(name, version string, log *slog.Logger) *Server {
	return &Server{Name: name, Version: version, tools: map[string]Tool{}, log: logging.OrDiscard(log)}
}

// AddTool registers t, replacing a tool of the same name.
func (s *Server) AddTool(t Tool) {
	if t.InputSchema == nil {
		t.InputSchema = ObjectSchema(nil)
	}
	s.tools[t.Name] = t
}

// Tools returns the registered tools sorted by name.
func (s *Server) Tools() []Tool {
	out := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Serve reads requests from r until EOF or ctx is cancelled, writing responses to w.
// Requests are handled one at a time.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	conn := NewConn(r, w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := conn.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("mcp read: %w", err)
		}
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			if werr := s.send(conn, Response{Error: &RPCError{Code: CodeParseError, Message: "Parse error", Data: err.Error()}}); werr != nil {
				return werr
			}
			continue
		}
		resp, ok := s.Handle(ctx, &req)
		if !ok {
			continue
		}
		if err := s.send(conn, resp); err != nil {
			return err
		}
	}
}

// Handle dispatches one request. ok is false for notifications, which get no response.
func (s *Server) Handle(ctx context.Context, req *Request) (Response, bool) {
	switch req.Method {
	case "initialize":
		return result(req.ID, map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{"listChanged": false},
			},
			"serverInfo": map[string]interface{}{"name": s.Name, "version": s.Version},
		}), true
	case "initialized", "notifications/initialized":
		return Response{}, false
	case "ping":
		return result(req.ID, map[string]interface{}{}), true
	case "tools/list":
		return result(req.ID, map[string]interface{}{"tools": s.Tools()}), true
	case "tools/call":
		return s.call(ctx, req), true
	}
	return failure(req.ID, CodeMethodNotFound, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method)), true
}

func (s *Server) call(ctx context.Context, req *Request) Response {
	var params struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}
	tool, ok := s.tools[params.Name]
	if !ok {
		return failure(req.ID, CodeMethodNotFound, "Method not found", fmt.Sprintf("Unknown tool: %s", params.Name))
	}
	if params.Arguments == nil {
		params.Arguments = map[string]interface{}{}
	}
	out, err := auditerr.SafeValue(func() (interface{}, error) { return tool.Handler(ctx, params.Arguments) })
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "err", err)
		return result(req.ID, map[string]interface{}{
			"isError": true,
			"content": []map[string]interface{}{{"type": "text", "text": err.Error()}},
		})
	}
	text, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return failure(req.ID, CodeInternalError, "Internal error", err.Error())
	}
	return result(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{{"type": "text", "text": string(text)}},
	})
}

func (s *Server) send(conn *Conn, resp Response) error {
	resp.JSONRPC = "2.0"
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := conn.Write(data); err != nil {
		return fmt.Errorf("mcp write: %w", err)
	}
	return nil
}

func result(id, v interface{}) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: v}
}

func failure(id interface{}, code int, msg string, data interface{}) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg, Data: data}}
}

// ObjectSchema builds a JSON schema for an object whose properties are all strings, keyed by
// name with their descriptions.
func ObjectSchema(props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for name, desc := range props {
		properties[name] = map[string]interface{}{"type": "string", "description": desc}
	}
	return map[string]interface{}{"type": "object", "properties": properties}
}

// StringArg returns args[key] if it is a string.
func StringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// BoolArg returns args[key] if it is a boolean, accepting "true" and "false" strings.
func BoolArg(args map[string]interface{}, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
