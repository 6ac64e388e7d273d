package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/chunker"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/config"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/embedder"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/retriever"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "charaengine"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	store     storage.Store
	retriever *retriever.Retriever
	chunker   *chunker.Chunker
	cfg       *config.Config
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if result := config.Validate(cfg); !result.Valid {
		for _, msg := range result.Errors {
			log.Printf("config: %s", msg)
		}
	}

	dbPath := cfg.Storage.Path
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewWithCache(cfg.Embedding.Provider, cfg.Cache.EmbeddingCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		store:     store,
		retriever: retriever.New(store, emb, cfg),
		chunker: chunker.New(chunker.Options{
			MaxChars:     cfg.Chunker.MaxChars,
			OverlapChars: cfg.Chunker.OverlapChars,
		}),
		cfg: cfg,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCollectionTool(), s.handleIndexCollection)
	s.mcp.AddTool(updateCollectionTool(), s.handleUpdateCollection)
	s.mcp.AddTool(retrieveTool(), s.handleRetrieve)
	s.mcp.AddTool(listCollectionsTool(), s.handleListCollections)
	s.mcp.AddTool(deleteCollectionTool(), s.handleDeleteCollection)
	s.mcp.AddTool(getStatsTool(), s.handleGetStats)
}
