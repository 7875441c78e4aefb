package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/webstash/internal/adapters/driving/mcp"
	"github.com/custodia-labs/webstash/internal/adapters/driving/rpc"
)

// defaultServeAddr is used when neither --addr nor server.addr is set.
const defaultServeAddr = "127.0.0.1:7777"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background dispatcher as a daemon",
	Long: `Run the background dispatcher and accept messages over HTTP.

Other webstash processes send their mutations here when server.addr points
at this daemon, so the library has a single writer. Browser extensions may
post to /v1/messages from the origins listed in server.allowed_origins.

Use --mcp-port to also serve MCP over HTTP from the same process.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr    string
	serveMCPPort int
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr or "+defaultServeAddr+")")
	serveCmd.Flags().IntVar(&serveMCPPort, "mcp-port", 0, "Also serve MCP over HTTP on this port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if background == nil {
		return errors.New("background dispatcher not configured")
	}

	addr := serveAddr
	var origins []string
	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to read settings: %w", err)
		}
		if addr == "" {
			addr = settings.Server.Addr
		}
		origins = settings.Server.AllowedOrigins
	}
	if addr == "" {
		addr = defaultServeAddr
	}

	g, ctx := errgroup.WithContext(commandContext(cmd))

	server := rpc.NewServer(background, origins)
	g.Go(func() error {
		return server.ListenAndServe(ctx, addr)
	})
	cmd.Printf("webstash daemon listening on http://%s\n", addr)

	if serveMCPPort > 0 {
		mcpServer, err := mcp.NewServer(mcpPorts())
		if err != nil {
			return err
		}
		mcpAddr := fmt.Sprintf(":%d", serveMCPPort)
		g.Go(func() error {
			return mcpServer.RunHTTP(ctx, mcpAddr)
		})
		cmd.Printf("MCP server listening on http://localhost%s\n", mcpAddr)
	}

	return g.Wait()
}
