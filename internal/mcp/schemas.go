package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// documentSchema describes one document in an ingest payload.
func documentSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type":        "string",
				"description": "Stable document identifier; chunks of the same document deduplicate together",
			},
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Display title surfaced with every chunk of this document",
			},
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Full document text; it is split into chunks automatically",
			},
		},
		"required": []string{"id", "text"},
	}
}

func indexCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_collection",
		Description: "Ingest documents into a collection and rebuild its index. The collection is created if it does not exist.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection name",
				},
				"documents": map[string]interface{}{
					"type":        "array",
					"description": "Documents to ingest before rebuilding",
					"items":       documentSchema(),
				},
			},
			Required: []string{"collection"},
		},
	}
}

func updateCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_collection",
		Description: "Apply an incremental change to a collection: add or replace documents and remove others, updating the index without a full rebuild.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection name",
				},
				"documents": map[string]interface{}{
					"type":        "array",
					"description": "Documents to add or replace",
					"items":       documentSchema(),
				},
				"remove_documents": map[string]interface{}{
					"type":        "array",
					"description": "Document IDs to remove entirely",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"collection"},
		},
	}
}

func retrieveTool() mcp.Tool {
	return mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the most relevant chunks for one or more queries, fused across keyword and vector scoring and trimmed to a token budget.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Single query shorthand; ignored when queries is given",
				},
				"queries": map[string]interface{}{
					"type":        "array",
					"description": "Sub-queries evaluated together and merged into one list",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"query": map[string]interface{}{
								"type":        "string",
								"description": "Query text",
							},
							"importance": map[string]interface{}{
								"type":        "string",
								"description": "must_have results rank before all nice_to_have results",
								"enum":        []string{"must_have", "nice_to_have"},
								"default":     "nice_to_have",
							},
							"collections": map[string]interface{}{
								"type":        "array",
								"description": "Restrict this sub-query to these collections",
								"items":       map[string]interface{}{"type": "string"},
							},
						},
						"required": []string{"query"},
					},
				},
				"collections": map[string]interface{}{
					"type":        "array",
					"description": "Collections to search; all collections when omitted",
					"items":       map[string]interface{}{"type": "string"},
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Retrieval mode",
					"enum":        []string{"hybrid", "vector_only", "keyword_only"},
					"default":     "hybrid",
				},
				"fusion_method": map[string]interface{}{
					"type":        "string",
					"description": "Rank fusion strategy for hybrid mode",
					"enum":        []string{"rrf", "weighted", "cascade"},
				},
				"token_budget": map[string]interface{}{
					"type":        "number",
					"description": "Cap on the estimated token total of returned text",
				},
			},
		},
	}
}

func listCollectionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_collections",
		Description: "List all collections with their chunk counts and index freshness.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

func deleteCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_collection",
		Description: "Delete a collection and all its chunks, embeddings, and indexes.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection name or ID",
				},
			},
			Required: []string{"collection"},
		},
	}
}

func getStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stats",
		Description: "Report storage statistics: collections, document and chunk counts, vectorization coverage, and database size.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
