//go:build integration

// Package tools_test exercises the tool surface over in-memory MCP
// transports. Tests that need SurrealDB or an LLM provider live in
// internal/db and internal/cli.
package tools_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkaufhold/factgraph/internal/tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestToolRegistry(t *testing.T) {
	logger := testLogger()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-factgraph",
		Version: "0.0.1-test",
	}, nil)

	// Nil services: only registration and validation paths are exercised.
	deps := &tools.Dependencies{Logger: logger}
	tools.RegisterAll(server, deps)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run(ctx, serverTransport)
	}()

	time.Sleep(50 * time.Millisecond)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err, "client should connect successfully")
	defer session.Close()

	t.Run("tools/list returns all tools", func(t *testing.T) {
		result, err := session.ListTools(ctx, nil)
		require.NoError(t, err)
		require.Len(t, result.Tools, 5) // ping + remember + search + job_status + reextract

		names := make(map[string]bool, len(result.Tools))
		for _, tool := range result.Tools {
			names[tool.Name] = true
		}
		for _, want := range []string{"ping", "remember", "search", "job_status", "reextract"} {
			assert.True(t, names[want], "tool %s should be registered", want)
		}
	})

	t.Run("ping returns pong", func(t *testing.T) {
		result, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "ping",
			Arguments: map[string]any{},
		})
		require.NoError(t, err)
		require.Len(t, result.Content, 1)

		textContent, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok, "content should be TextContent")
		assert.Equal(t, "pong", textContent.Text)
		assert.False(t, result.IsError)
	})

	t.Run("remember rejects missing text", func(t *testing.T) {
		result, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "remember",
			Arguments: map[string]any{"content_id": "doc-1"},
		})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("reextract rejects missing revision", func(t *testing.T) {
		result, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "reextract",
			Arguments: map[string]any{"content_id": "doc-1"},
		})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	cancel()

	select {
	case err := <-serverErr:
		if err != nil {
			t.Logf("server stopped with: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("server did not stop within timeout")
	}
}
