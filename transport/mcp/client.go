package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/dual-screen-racer/game/service"
	"github.com/wricardo/dual-screen-racer/game/session"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Dual Screen Racer",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Dual Screen Racer - MCP Interface

This is a thin client that proxies all requests to the REST API server.

The game runs on two screens: a display (usually a TV or desktop browser)
renders the race, and each player steers from their phone. Sessions are
identified by a 6-digit code shown on the display.

AVAILABLE TOOLS:
- list_sessions: List all live sessions
- get_session: Get one session's details including its full roster
- open_sessions: List sessions currently accepting new controllers
- delete_session: Force-delete a session

Gameplay itself happens over WebSocket; these tools are for inspecting and
administering the session registry.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all live game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session, including its roster",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_code": map[string]interface{}{
					"type":        "string",
					"description": "6-digit session code",
				},
			},
			Required: []string{"session_code"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "open_sessions",
		Description: "List sessions that are in the lobby and accepting controllers",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleOpenSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Force-delete a session, disconnecting nobody but removing the registry entry",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_code": map[string]interface{}{
					"type":        "string",
					"description": "6-digit session code",
				},
			},
			Required: []string{"session_code"},
		},
	}, c.handleDeleteSession)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (State: %s, Players: %d, Created: %s)\n",
			s.Code, s.State, s.PlayerCount, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionCode, _ := args["session_code"].(string)

	var info service.SessionInfo
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s", sessionCode), nil, &info)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatSessionInfo(&info)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleOpenSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Sessions []session.OpenSession `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions/open", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(response.Sessions) == 0 {
		return mcp.NewToolResultText("No sessions are accepting controllers right now."), nil
	}

	result := fmt.Sprintf("Joinable Sessions (%d):\n\n", len(response.Sessions))
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (%d players)\n", s.SessionCode, s.PlayerCount)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionCode, _ := args["session_code"].(string)

	err := c.apiCall("DELETE", fmt.Sprintf("/api/sessions/%s", sessionCode), nil, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted session %s", sessionCode)), nil
}

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Session: %s\nState: %s\nCreated: %s\nPlayers: %d\n",
		info.Code, info.State,
		info.CreatedAt.Format("2006-01-02 15:04:05"),
		info.PlayerCount))

	if len(info.Players) == 0 {
		b.WriteString("\n(no players connected)")
		return b.String()
	}

	b.WriteString("\nRoster:\n")
	for _, p := range info.Players {
		b.WriteString(fmt.Sprintf("- %s (%s)%s%s\n",
			p.Name, p.Color, flag(p.IsReady, " [ready]"), flag(p.WantsReplay, " [replay]")))
	}
	return b.String()
}

func flag(on bool, label string) string {
	if on {
		return label
	}
	return ""
}
