package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/retriever"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/storage"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams       = -32602 // Invalid method parameters
	ErrorCodeInternalError       = -32603 // Internal JSON-RPC error
	ErrorCodeCollectionNotFound  = -32001 // Named collection does not exist
	ErrorCodeIndexingInProgress  = -32002 // Another indexing operation is already running
	ErrorCodeEmptyQuery          = -32004 // No usable query in the request
	ErrorCodeEmptyDocument       = -32005 // Document missing id or text
	ErrorCodeCollectionConflict  = -32006 // Collection already exists
)

// ingestDocument is one document parsed from a tool payload.
type ingestDocument struct {
	ID    string
	Title string
	Text  string
}

// handleIndexCollection handles the index_collection tool invocation
func (s *Server) handleIndexCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["collection"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "collection parameter is required", map[string]interface{}{
			"param":  "collection",
			"reason": "missing or empty",
		})
	}

	docs, err := parseDocuments(args)
	if err != nil {
		return nil, err
	}

	coll, err := s.ensureCollection(ctx, name)
	if err != nil {
		return nil, err
	}

	chunksCreated := 0
	for _, doc := range docs {
		// Re-ingesting a document replaces its chunks wholesale.
		if err := s.store.DeleteChunksByDoc(ctx, coll.ID, doc.ID); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to replace document", map[string]interface{}{
				"document": doc.ID,
				"error":    err.Error(),
			})
		}
		chunks := s.chunker.ChunkDocument(doc.ID, doc.Title, doc.Text)
		if err := s.store.UpsertChunks(ctx, coll.ID, chunks); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to store document", map[string]interface{}{
				"document": doc.ID,
				"error":    err.Error(),
			})
		}
		chunksCreated += len(chunks)
	}

	report, err := s.retriever.IndexCollection(ctx, coll.ID, nil)
	if err != nil {
		return nil, indexingError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"collection":         report.CollectionName,
		"collection_id":      report.CollectionID,
		"documents_ingested": len(docs),
		"chunks_created":     chunksCreated,
		"chunks_total":       report.ChunkCount,
		"chunks_vectorized":  report.Vectorized,
		"index_terms":        report.Terms,
		"duration_ms":        report.Duration.Milliseconds(),
	})), nil
}

// handleUpdateCollection handles the update_collection tool invocation
func (s *Server) handleUpdateCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["collection"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "collection parameter is required", map[string]interface{}{
			"param":  "collection",
			"reason": "missing or empty",
		})
	}

	docs, err := parseDocuments(args)
	if err != nil {
		return nil, err
	}
	removeDocs := stringSlice(args, "remove_documents")
	if len(docs) == 0 && len(removeDocs) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "nothing to update", map[string]interface{}{
			"reason": "documents and remove_documents are both empty",
		})
	}

	coll, err := s.store.GetCollectionByName(ctx, name)
	if errors.Is(err, types.ErrCollectionNotFound) {
		return nil, newMCPError(ErrorCodeCollectionNotFound, "collection not found", map[string]interface{}{
			"collection": name,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to resolve collection", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Replaced and removed documents both contribute their existing
	// chunk IDs to the removal set.
	var removedIDs []string
	var added []types.Chunk
	for _, doc := range docs {
		existing, err := s.store.ListChunksByDoc(ctx, coll.ID, doc.ID)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to list document chunks", map[string]interface{}{
				"document": doc.ID,
				"error":    err.Error(),
			})
		}
		for _, c := range existing {
			removedIDs = append(removedIDs, c.ID)
		}
		added = append(added, s.chunker.ChunkDocument(doc.ID, doc.Title, doc.Text)...)
	}
	for _, docID := range removeDocs {
		existing, err := s.store.ListChunksByDoc(ctx, coll.ID, docID)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to list document chunks", map[string]interface{}{
				"document": docID,
				"error":    err.Error(),
			})
		}
		for _, c := range existing {
			removedIDs = append(removedIDs, c.ID)
		}
	}

	report, err := s.retriever.UpdateCollection(ctx, coll.ID, added, removedIDs)
	if err != nil {
		return nil, indexingError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"collection":        report.CollectionName,
		"chunks_added":      len(added),
		"chunks_removed":    len(removedIDs),
		"chunks_total":      report.ChunkCount,
		"chunks_vectorized": report.Vectorized,
		"index_terms":       report.Terms,
		"duration_ms":       report.Duration.Milliseconds(),
	})), nil
}

// handleRetrieve handles the retrieve tool invocation
func (s *Server) handleRetrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	queries := parseQueries(args)
	if len(queries) == 0 {
		return nil, newMCPError(ErrorCodeEmptyQuery, "request carries no usable query", map[string]interface{}{
			"reason": "provide query or a non-empty queries array",
		})
	}

	req := retriever.Request{
		Queries:      queries,
		Collections:  stringSlice(args, "collections"),
		Mode:         getStringDefault(args, "mode", ""),
		FusionMethod: getStringDefault(args, "fusion_method", ""),
		TokenBudget:  getIntDefault(args, "token_budget", 0),
	}

	resp, err := s.retriever.Retrieve(ctx, req)
	if errors.Is(err, types.ErrCollectionNotFound) {
		return nil, newMCPError(ErrorCodeCollectionNotFound, "no collections in scope", map[string]interface{}{
			"collections": req.Collections,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for i := range resp.Results {
		results = append(results, formatResult(&resp.Results[i]))
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": results,
		"stats": map[string]interface{}{
			"mode":            resp.Stats.Mode,
			"queries":         resp.Stats.Queries,
			"collections":     resp.Stats.Collections,
			"keyword_matches": resp.Stats.KeywordMatches,
			"vector_matches":  resp.Stats.VectorMatches,
			"candidates":      resp.Stats.Candidates,
			"returned":        resp.Stats.Returned,
			"total_tokens":    resp.Stats.TotalTokens,
			"truncated":       resp.Stats.Truncated,
			"cache_hit":       resp.Stats.CacheHit,
			"duration_ms":     resp.Stats.Duration.Milliseconds(),
		},
	})), nil
}

// formatResult flattens one ranked result for the wire.
func formatResult(res *types.RankedResult) map[string]interface{} {
	out := map[string]interface{}{
		"chunk_id":         res.ChunkID(),
		"text":             res.Text,
		"estimated_tokens": res.EstimatedTokens,
		"truncated":        res.Truncated,
		"score":            res.Score,
		"collection":       res.CollectionName,
		"collection_id":    res.CollectionID,
		"query":            res.QueryText,
		"importance":       string(res.Importance),
	}
	if res.Chunk != nil {
		out["doc_id"] = res.Chunk.DocID
		out["doc_title"] = res.Chunk.Metadata.DocTitle
	}
	switch res.Kind {
	case types.KindFused:
		out["source"] = "fused"
		if res.Fused.Vector != nil {
			out["vector_similarity"] = res.Fused.Vector.Similarity
			out["vector_rank"] = res.Fused.Vector.Rank
		}
		if res.Fused.Keyword != nil {
			out["keyword_score"] = res.Fused.Keyword.Score
			out["keyword_rank"] = res.Fused.Keyword.Rank
			out["matched_terms"] = res.Fused.Keyword.MatchedTerms
		}
	case types.KindVector:
		out["source"] = "vector"
	case types.KindKeyword:
		out["source"] = "keyword"
		out["matched_terms"] = res.Keyword.MatchedTerms
	}
	return out
}

// handleListCollections handles the list_collections tool invocation
func (s *Server) handleListCollections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list collections", map[string]interface{}{
			"error": err.Error(),
		})
	}

	out := make([]map[string]interface{}, 0, len(collections))
	for _, coll := range collections {
		entry := map[string]interface{}{
			"id":          coll.ID,
			"name":        coll.Name,
			"chunk_count": coll.ChunkCount,
		}
		if !coll.IndexedAt.IsZero() {
			entry["indexed_at"] = coll.IndexedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, entry)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"collections": out,
		"count":       len(out),
	})), nil
}

// handleDeleteCollection handles the delete_collection tool invocation
func (s *Server) handleDeleteCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["collection"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "collection parameter is required", map[string]interface{}{
			"param":  "collection",
			"reason": "missing or empty",
		})
	}

	if err := s.retriever.RemoveCollection(ctx, name); err != nil {
		if errors.Is(err, types.ErrCollectionNotFound) {
			return nil, newMCPError(ErrorCodeCollectionNotFound, "collection not found", map[string]interface{}{
				"collection": name,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to delete collection", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted":    true,
		"collection": name,
	})), nil
}

// handleGetStats handles the get_stats tool invocation
func (s *Server) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	collections := make([]map[string]interface{}, 0, len(stats.Collections))
	for _, cs := range stats.Collections {
		collections = append(collections, map[string]interface{}{
			"name":              cs.Collection.Name,
			"documents":         cs.DocCount,
			"chunks":            cs.Collection.ChunkCount,
			"chunks_vectorized": cs.Vectorized,
			"indexed":           cs.HasIndex,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"collections":  collections,
		"total_chunks": stats.TotalChunks,
		"size_mb":      fmt.Sprintf("%.2f", float64(stats.SizeBytes)/(1024*1024)),
		"build_mode":   storage.BuildMode,
	})), nil
}

// Helper functions

// ensureCollection resolves a collection by name, creating it if absent.
func (s *Server) ensureCollection(ctx context.Context, name string) (*storage.Collection, error) {
	coll, err := s.store.GetCollectionByName(ctx, name)
	if err == nil {
		return coll, nil
	}
	if !errors.Is(err, types.ErrCollectionNotFound) {
		return nil, newMCPError(ErrorCodeInternalError, "failed to resolve collection", map[string]interface{}{
			"error": err.Error(),
		})
	}
	coll, err = s.store.CreateCollection(ctx, name)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to create collection", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return coll, nil
}

// parseDocuments extracts the documents array from a tool payload.
func parseDocuments(args map[string]interface{}) ([]ingestDocument, error) {
	raw, ok := args["documents"].([]interface{})
	if !ok {
		return nil, nil
	}

	docs := make([]ingestDocument, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid document entry", map[string]interface{}{
				"index": i,
			})
		}
		doc := ingestDocument{
			ID:    getStringDefault(m, "id", ""),
			Title: getStringDefault(m, "title", ""),
			Text:  getStringDefault(m, "text", ""),
		}
		if doc.ID == "" || doc.Text == "" {
			return nil, newMCPError(ErrorCodeEmptyDocument, "document requires id and text", map[string]interface{}{
				"index": i,
			})
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// parseQueries accepts either the single-query shorthand or the full
// queries array.
func parseQueries(args map[string]interface{}) []types.Query {
	if raw, ok := args["queries"].([]interface{}); ok && len(raw) > 0 {
		queries := make([]types.Query, 0, len(raw))
		for _, entry := range raw {
			m, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			q := types.Query{
				Text:        getStringDefault(m, "query", ""),
				Importance:  types.Importance(getStringDefault(m, "importance", "")),
				Collections: stringSlice(m, "collections"),
			}
			if q.Text != "" {
				queries = append(queries, q)
			}
		}
		return queries
	}

	if text, ok := args["query"].(string); ok && text != "" {
		return []types.Query{{Text: text}}
	}
	return nil
}

// indexingError maps retriever indexing failures to MCP errors.
func indexingError(err error) error {
	if errors.Is(err, retriever.ErrIndexingInProgress) {
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if errors.Is(err, types.ErrCollectionNotFound) {
		return newMCPError(ErrorCodeCollectionNotFound, "collection not found", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// stringSlice extracts a string array parameter.
func stringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
