package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/unicornlens/server/internal/agent/model"
)

// ===================================
// Search Entity Tool
// ===================================

type SearchEntityInput struct {
	Description string `json:"description"`
}

func createSearchEntityTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchEntity,
			Desc: "Resolve which dataset table a question refers to. Returns the matching table name and a confidence score. Use this tool before writing SQL when the question mentions companies, startups, unicorns, investors, valuations, industries, countries, or funding dates.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"description": {
					Type:     schema.String,
					Desc:     "The subject of the question to resolve. Examples: unicorn companies, fintech startups, investors, valuations by country.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *SearchEntityInput) (*model.EntityMatch, error) {
			if in.Description == "" {
				return nil, fmt.Errorf("description is required")
			}

			subject := strings.ToLower(in.Description)
			for _, keyword := range unicornKeywords {
				if strings.Contains(subject, keyword) {
					return &model.EntityMatch{TableName: "unicorns", Confidence: 0.95}, nil
				}
			}

			// The dataset has a single table, so unmatched subjects still
			// resolve to it, just with less certainty.
			return &model.EntityMatch{TableName: "unicorns", Confidence: 0.5}, nil
		},
	)
}

var unicornKeywords = []string{
	"unicorn", "company", "companies", "startup", "startups",
	"valuation", "investor", "investors", "industry", "industries",
	"country", "countries", "city", "cities", "funding", "fintech",
	"joined", "founded",
}
