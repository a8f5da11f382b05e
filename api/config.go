// Package api provides the HTTP API of the aikefu question-answering service.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// DisableMCP leaves the /mcp endpoint unmounted.
	DisableMCP bool
}
