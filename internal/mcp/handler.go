package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Alexsuad/cuentix/pkg/database"
	"github.com/Alexsuad/cuentix/pkg/tools/narrative"

	mcp "github.com/mark3labs/mcp-go/mcp"
	mcp_server "github.com/mark3labs/mcp-go/server"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Generator starts background story generation. Satisfied by
// workflow.Pipeline.
type Generator interface {
	StartGeneration(storyID string, params map[string]string)
}

// Handler registers the story tools and serves their calls.
type Handler struct {
	server    *mcp_server.MCPServer
	store     database.StoryStore
	pipeline  Generator
	logger    *zap.Logger
	toolNames []string
}

func NewHandler(server *mcp_server.MCPServer, store database.StoryStore, pipeline Generator, logger *zap.Logger) *Handler {
	return &Handler{
		server:   server,
		store:    store,
		pipeline: pipeline,
		logger:   logger,
	}
}

// RegisterTools registers all tools with the MCP server.
func (h *Handler) RegisterTools() {
	generateStoryTool := mcp.NewTool("generate_story",
		mcp.WithDescription("Start generating a children's story video from wizard parameters"),
		mcp.WithString("nombre", mcp.Required(), mcp.Description("Child's name")),
		mcp.WithString("edad", mcp.Required(), mcp.Description("Child's age")),
		mcp.WithString("personaje_principal", mcp.Required(), mcp.Description("Main character")),
		mcp.WithString("lugar", mcp.Required(), mcp.Description("Story setting")),
		mcp.WithString("villano", mcp.Required(), mcp.Description("Villain")),
		mcp.WithString("objeto_magico", mcp.Required(), mcp.Description("Magic object")),
		mcp.WithString("tipo_final", mcp.Required(), mcp.Description("Kind of ending")),
		mcp.WithString("acompanante", mcp.Description("Companion")),
		mcp.WithString("color_favorito", mcp.Description("Favorite color")),
		mcp.WithString("desafio", mcp.Description("Challenge to overcome")),
	)
	h.server.AddTool(generateStoryTool, h.handleGenerateStory)
	h.toolNames = append(h.toolNames, "generate_story")

	storyStatusTool := mcp.NewTool("story_status",
		mcp.WithDescription("Look up the status and assets of a story by id"),
		mcp.WithString("story_id", mcp.Required(), mcp.Description("The story id returned by generate_story")),
	)
	h.server.AddTool(storyStatusTool, h.handleStoryStatus)
	h.toolNames = append(h.toolNames, "story_status")

	h.logger.Info("MCP tools registered",
		zap.Int("tool_count", len(h.toolNames)))
}

func (h *Handler) GetToolNames() []string {
	return h.toolNames
}

// handleGenerateStory accepts wizard parameters, persists a pending story
// and starts the pipeline. It returns the new id immediately; progress is
// queried with story_status.
func (h *Handler) handleGenerateStory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := map[string]string{}
	for _, field := range narrative.RequiredFields {
		value, err := request.RequireString(field)
		if err != nil {
			h.logger.Error("Missing story parameter", zap.String("field", field))
			return mcp.NewToolResultError("Missing required parameter: " + field), nil
		}
		params[field] = value
	}
	for _, field := range []string{"acompanante", "color_favorito", "desafio"} {
		if value := request.GetString(field, ""); value != "" {
			params[field] = value
		}
	}

	story := &database.Story{
		ID:     uuid.NewString(),
		Status: database.StatusPending,
	}
	if err := h.store.CreateStory(story); err != nil {
		h.logger.Error("Could not persist story", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Could not create story: %v", err)), nil
	}

	h.pipeline.StartGeneration(story.ID, params)

	response, err := json.MarshalIndent(map[string]interface{}{
		"id":     story.ID,
		"status": story.Status,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(response)), nil
}

func (h *Handler) handleStoryStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	storyID, err := request.RequireString("story_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: story_id"), nil
	}

	story, err := h.store.GetStoryByID(storyID)
	if err != nil {
		if errors.Is(err, database.ErrStoryNotFound) {
			return mcp.NewToolResultError("Story not found: " + storyID), nil
		}
		h.logger.Error("Story lookup failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Lookup failed: %v", err)), nil
	}

	response, err := json.MarshalIndent(story, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize story: %v", err)), nil
	}
	return mcp.NewToolResultText(string(response)), nil
}
