package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shaiso/Amplicore/internal/domain"
	"github.com/shaiso/Amplicore/internal/service"
)

const (
	serverName   = "amplicore"
	instructions = "FROGS amplicon metagenomics pipeline manager. " +
		"Create a project, then follow get_pipeline_recommendations step by step."
)

// Server — MCP сервер поверх service.Service.
type Server struct {
	svc    *service.Service
	mcp    *server.MCPServer
	logger *slog.Logger

	// handlers — зарегистрированные инструменты по имени.
	handlers map[string]handler
}

// New создаёт сервер и регистрирует все инструменты.
func New(svc *service.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		svc: svc,
		mcp: server.NewMCPServer(serverName, version,
			server.WithToolCapabilities(false),
			server.WithInstructions(instructions),
			server.WithRecovery(),
		),
		logger: logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// MCP возвращает нижележащий сервер mcp-go.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ToolNames возвращает имена зарегистрированных инструментов.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServeStdio обслуживает протокол на stdin/stdout до закрытия stdin.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// jsonResult кодирует значение в текстовый результат.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult превращает ошибку сервиса в ошибочный результат инструмента.
// Ошибка протокола не возвращается: одна плохая команда не рвёт сессию.
func (s *Server) errorResult(tool string, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		s.logger.Error("tool failed", "tool", tool, "error", err)
	} else {
		s.logger.Debug("tool rejected", "tool", tool, "error", err)
	}
	return mcp.NewToolResultError(err.Error()), nil
}

// call выполняет операцию и кодирует её результат.
func call[T any](s *Server, tool string, fn func() (T, error)) (*mcp.CallToolResult, error) {
	v, err := fn()
	if err != nil {
		return s.errorResult(tool, err)
	}
	return jsonResult(v)
}

// text выполняет операцию с текстовым результатом.
func text(s *Server, tool string, fn func() (string, error)) (*mcp.CallToolResult, error) {
	v, err := fn()
	if err != nil {
		return s.errorResult(tool, err)
	}
	return mcp.NewToolResultText(v), nil
}

// objectArg читает аргумент-объект; отсутствие даёт пустую карту.
func objectArg(req mcp.CallToolRequest, name string) (map[string]any, error) {
	raw, ok := req.GetArguments()[name]
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an object", service.ErrInvalidArgument, name)
	}
	return m, nil
}

type handler = func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
