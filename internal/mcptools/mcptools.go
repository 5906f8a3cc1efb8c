// Package mcptools exposes every dispatcher action as an MCP tool so agents
// can drive the desktop without speaking the WebSocket protocol.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"deskrelay/internal/dispatch"
	"deskrelay/internal/types"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

type Server struct {
	dispatcher *dispatch.Dispatcher
	mcp        *mcpserver.MCPServer
	log        *zap.Logger
	handlers   map[string]mcpserver.ToolHandlerFunc
}

func New(d *dispatch.Dispatcher, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		dispatcher: d,
		mcp:        mcpserver.NewMCPServer("deskrelay", version),
		log:        log,
		handlers:   make(map[string]mcpserver.ToolHandlerFunc),
	}
	s.registerTools()
	return s
}

// ServeStdio serves MCP over stdin/stdout until the client goes away.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcp)
}

// HTTPHandler serves the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcp)
}

func (s *Server) add(tool mcp.Tool) {
	h := s.handler(tool.Name)
	s.handlers[tool.Name] = h
	s.mcp.AddTool(tool, h)
}

func (s *Server) handler(action string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := requestFrom(action, request.GetArguments())

		var out collector
		if err := s.dispatcher.Invoke(ctx, &out, req); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return out.result(), nil
	}
}

func requestFrom(action string, params map[string]any) types.Request {
	req := types.Request{
		Action:    action,
		X:         intParam(params, "x", 0),
		Y:         intParam(params, "y", 0),
		X1:        intParam(params, "x1", 0),
		Y1:        intParam(params, "y1", 0),
		X2:        intParam(params, "x2", 0),
		Y2:        intParam(params, "y2", 0),
		Button:    stringParam(params, "button", ""),
		Direction: stringParam(params, "direction", ""),
		Amount:    intParam(params, "amount", 0),
		Key:       stringParam(params, "key", ""),
		Text:      stringParam(params, "text", ""),
		Message:   stringParam(params, "message", ""),
		Label:     stringParam(params, "label", ""),
		Monitor:   intParam(params, "monitor", 0),
		Quality:   intParam(params, "quality", 0),
	}
	if m, ok := params["settings"].(map[string]any); ok {
		req.Settings = m
	}
	return req
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

// collector gathers everything the dispatcher sends for one call.
type collector struct {
	mu   sync.Mutex
	msgs []types.Message
}

func (c *collector) Send(msg types.Message) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
	return nil
}

func (c *collector) result() *mcp.CallToolResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var chunks []string
	var content []mcp.Content
	for _, m := range c.msgs {
		switch v := m.(type) {
		case types.Chunk:
			chunks = append(chunks, v.Content)
		case types.StreamEnd:
			if v.Error != "" {
				return mcp.NewToolResultError(fmt.Sprintf("%s: %s", v.Code, v.Error))
			}
			content = append(content, mcp.TextContent{Type: "text", Text: strings.Join(chunks, "")})
		case types.ShortcutUpdate:
			content = append(content, mcp.TextContent{Type: "text", Text: "shortcut: " + v.Shortcut})
		case types.Response:
			if !v.Success {
				return mcp.NewToolResultError(fmt.Sprintf("%s: %s", v.Code, v.Error))
			}
			content = append(content, responseContent(v)...)
		}
	}
	if len(content) == 0 {
		content = append(content, mcp.TextContent{Type: "text", Text: "ok"})
	}
	return &mcp.CallToolResult{Content: content}
}

func responseContent(r types.Response) []mcp.Content {
	if r.Image != "" {
		return []mcp.Content{
			mcp.TextContent{Type: "text", Text: fmt.Sprintf("%dx%d canvas image", r.Width, r.Height)},
			mcp.ImageContent{Type: "image", Data: r.Image, MIMEType: "image/jpeg"},
		}
	}
	r.Type = ""
	b, err := json.Marshal(r)
	if err != nil {
		return []mcp.Content{mcp.TextContent{Type: "text", Text: "ok"}}
	}
	return []mcp.Content{mcp.TextContent{Type: "text", Text: string(b)}}
}
