package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dkaufhold/factgraph/internal/models"
	"github.com/dkaufhold/factgraph/internal/search"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query           string   `json:"query" jsonschema:"required,Natural language search query"`
	Limit           int      `json:"limit,omitempty" jsonschema:"Maximum primary results (default 10)"`
	Expand          bool     `json:"expand,omitempty" jsonschema:"Follow shared entities to related events"`
	IncludeEntities bool     `json:"include_entities,omitempty" jsonschema:"Include an entity summary in the response"`
	GraphBudget     int      `json:"graph_budget,omitempty" jsonschema:"Maximum related events from expansion (default 20)"`
	Categories      []string `json:"categories,omitempty" jsonschema:"Restrict related events to these categories"`
}

// NewSearchHandler creates the search tool handler.
func NewSearchHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
		categories := make([]models.Category, 0, len(input.Categories))
		for _, raw := range input.Categories {
			cat, err := models.ParseCategory(strings.TrimSpace(raw))
			if err != nil {
				return ErrorResult(
					fmt.Sprintf("Unknown category %q", raw),
					"Valid categories: decision, commitment, execution, collaboration, quality_risk, feedback, change, stakeholder",
				), nil, nil
			}
			categories = append(categories, cat)
		}

		resp, err := deps.Engine.Search(ctx, search.Request{
			Query:           input.Query,
			Limit:           input.Limit,
			Expand:          input.Expand,
			IncludeEntities: input.IncludeEntities,
			GraphBudget:     input.GraphBudget,
			Categories:      categories,
		})
		if err != nil {
			switch {
			case errors.Is(err, search.ErrInvalidInput):
				return ErrorResult("Invalid search request", err.Error()), nil, nil
			case errors.Is(err, search.ErrTimeout):
				return ErrorResult("Search timed out", "Try a lower limit or disable expansion"), nil, nil
			case errors.Is(err, search.ErrRetrieval):
				return ErrorResult("Search backend unavailable", "Both vector and fulltext retrieval failed; check the database"), nil, nil
			default:
				deps.Logger.Error("search failed", "query", input.Query, "error", err)
				return ErrorResult("Search failed", err.Error()), nil, nil
			}
		}

		jsonBytes, _ := json.MarshalIndent(resp, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
