// Package mcp exposes the retrieval engine over the Model Context
// Protocol. The server speaks MCP on stdio and registers six tools:
// index_collection, update_collection, retrieve, list_collections,
// delete_collection, and get_stats. Tool payloads are plain JSON
// objects; responses are indented JSON rendered as text content.
package mcp
