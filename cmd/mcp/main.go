// Aegis MCP Server - Exposes wallet protection capabilities as MCP tools for LLMs
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/aegis-guard/aegis/internal/mcpserver"
)

func main() {
	cfg := mcpserver.Config{
		APIURL:        envOrDefault("AEGIS_API_URL", "http://localhost:8080"),
		APIKey:        os.Getenv("AEGIS_API_KEY"),
		WalletAddress: os.Getenv("AEGIS_WALLET_ADDRESS"),
	}

	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "AEGIS_API_KEY is required")
		os.Exit(1)
	}
	if cfg.WalletAddress == "" {
		fmt.Fprintln(os.Stderr, "AEGIS_WALLET_ADDRESS is required")
		os.Exit(1)
	}

	s := mcpserver.NewMCPServer(cfg)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
