// Package server exposes the session manager as an MCP server over stdio:
// it maps inbound tool invocations onto session controllers, validates
// arguments before any session work begins, and forwards progress notices
// as MCP logging notifications.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/aibridge-dev/aibridge/internal/logging"
	"github.com/aibridge-dev/aibridge/internal/session"
	"github.com/aibridge-dev/aibridge/pkg/types"
)

const (
	// Name identifies this server to MCP clients and is the tool component
	// of every composite session key.
	Name    = "aibridge"
	Version = "0.1.0"

	// defaultSessionID is used when the caller does not name a session.
	defaultSessionID = "default"
)

// Server wires the MCP tool surface onto the session registry.
type Server struct {
	mcp      *server.MCPServer
	registry *session.Registry
	cfg      *types.Config
	log      zerolog.Logger
}

// New creates the MCP server and registers its tools.
func New(cfg *types.Config, registry *session.Registry) *Server {
	s := &Server{
		registry: registry,
		cfg:      cfg,
		log:      logging.Component("server"),
	}

	s.mcp = server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Send a prompt to a named, resumable AI session and return the accumulated answer"),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The prompt text. @path tokens are resolved against project_path and reported as file references"),
		),
		mcp.WithString("project_path",
			mcp.Description("Project root used to resolve @path file references"),
		),
		mcp.WithString("session_id",
			mcp.Description("Caller session identifier; reuse it to continue a conversation. Defaults to \"default\""),
		),
		mcp.WithString("model",
			mcp.Description("Model override as provider/model, e.g. anthropic/claude-sonnet-4-20250514"),
		),
	)
	s.mcp.AddTool(askTool, s.handleAsk)

	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Liveness check; echoes the optional message"),
		mcp.WithString("message",
			mcp.Description("Text to echo back"),
		),
	)
	s.mcp.AddTool(pingTool, s.handlePing)

	helpTool := mcp.NewTool("help",
		mcp.WithDescription("Describe the available tools"),
	)
	s.mcp.AddTool(helpTool, s.handleHelp)

	listTool := mcp.NewTool("list-sessions",
		mcp.WithDescription("List known sessions and their status"),
	)
	s.mcp.AddTool(listTool, s.handleListSessions)

	closeTool := mcp.NewTool("close-session",
		mcp.WithDescription("Stop a session and discard its record"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Caller session identifier to close"),
		),
	)
	s.mcp.AddTool(closeTool, s.handleCloseSession)

	return s
}

// MCP returns the underlying MCP server, for serving and for tests.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving MCP over stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	s.log.Info().Str("version", Version).Msg("serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

// askMetadata is attached to every successful ask response.
type askMetadata struct {
	SessionID        string   `json:"session_id"`
	Tool             string   `json:"tool"`
	Model            string   `json:"model"`
	Timestamp        string   `json:"timestamp"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
	FileReferences   []string `json:"file_references,omitempty"`
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	prompt, verr := requiredString(args, "prompt")
	if verr != nil {
		return mcp.NewToolResultError(verr.Error()), nil
	}
	projectPath := optionalString(args, "project_path")
	sessionID := optionalString(args, "session_id")
	model := optionalString(args, "model")
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	key := session.Key(Name, sessionID)
	ctrl, err := s.registry.GetOrCreate(ctx, key, Name, projectPath, model)
	if err != nil {
		return mcp.NewToolResultError(renderError(err)), nil
	}

	if !ctrl.IsActive() {
		if err := ctrl.Start(ctx, ""); err != nil {
			return mcp.NewToolResultError(renderError(err)), nil
		}
	}

	fileRefs := ExpandFileRefs(prompt, projectPath)

	started := time.Now()
	answer, err := ctrl.SendPrompt(ctx, prompt, 0, s.progressNotifier(ctx, sessionID))
	if err != nil {
		return mcp.NewToolResultError(renderError(err)), nil
	}

	info := ctrl.Info()
	meta := askMetadata{
		SessionID:        sessionID,
		Tool:             Name,
		Model:            info.Model,
		Timestamp:        started.UTC().Format(time.RFC3339),
		ProcessingTimeMS: time.Since(started).Milliseconds(),
		FileReferences:   fileRefs,
	}
	metaJSON, _ := json.Marshal(meta)

	result := mcp.NewToolResultText(answer)
	result.Content = append(result.Content, mcp.NewTextContent(string(metaJSON)))
	return result, nil
}

func (s *Server) handlePing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := optionalString(request.GetArguments(), "message")
	if message == "" {
		message = "pong"
	}
	return mcp.NewToolResultText(message), nil
}

func (s *Server) handleHelp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(helpText), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.registry.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(renderError(err)), nil
	}

	if len(sessions) == 0 {
		return mcp.NewToolResultText("No sessions."), nil
	}

	var b strings.Builder
	for _, sess := range sessions {
		state := "inactive"
		if sess.Active {
			state = "active"
		}
		fmt.Fprintf(&b, "%s  %s  model=%s  last-active=%s\n",
			sess.ID, state, sess.Model, formatMillis(sess.Time.LastActive))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, verr := requiredString(request.GetArguments(), "session_id")
	if verr != nil {
		return mcp.NewToolResultError(verr.Error()), nil
	}

	key := session.Key(Name, sessionID)
	if err := s.registry.Remove(ctx, key); err != nil {
		return mcp.NewToolResultError(renderError(err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %q closed.", sessionID)), nil
}

// progressNotifier forwards progress notices to the connected client as MCP
// logging notifications. Failures are logged and swallowed; progress is
// observational only.
func (s *Server) progressNotifier(ctx context.Context, sessionID string) session.ProgressFunc {
	srv := server.ServerFromContext(ctx)
	return func(notice string) {
		if srv == nil {
			return
		}
		err := srv.SendNotificationToClient(ctx, "notifications/message", map[string]any{
			"level": "info",
			"data":  fmt.Sprintf("[%s] %s", sessionID, notice),
		})
		if err != nil {
			s.log.Debug().Err(err).Msg("progress notification dropped")
		}
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

const helpText = `Tools:
  ask            Send a prompt to a named, resumable AI session. Arguments:
                 prompt (required), project_path, session_id, model.
                 Reuse session_id to continue a conversation. @path tokens
                 in the prompt are resolved against project_path.
  ping           Liveness check; echoes the optional message argument.
  help           This text.
  list-sessions  List known sessions and their status.
  close-session  Stop a session and discard its record (session_id required).`
