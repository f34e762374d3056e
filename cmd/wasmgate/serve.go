package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wasmgate/wasmgate/endpoint"
)

var serveCmd = &cobra.Command{
	Use:   "serve <module.wasm>",
	Short: "Serve HTTP requests with a guest module",
	Long: `Start an HTTP server that runs the given WASM module once per request.

The module is compiled at startup; each request gets an isolated instance
with its own request/response state.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "Per-request guest timeout (0 disables)")
	serveCmd.Flags().Uint32("memory-limit", 1024, "Guest memory limit in 64KB pages (0 = wazero default)")
	serveCmd.Flags().Int("inbound-cap", 0, "Inbound body buffer cap in bytes (0 = default, negative = unbounded)")
	serveCmd.Flags().String("cache-dir", "", "Persistent compilation cache directory")
	serveCmd.Flags().Bool("guest-stderr", false, "Relay guest stderr to the server's stderr")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	memoryLimit, _ := cmd.Flags().GetUint32("memory-limit")
	inboundCap, _ := cmd.Flags().GetInt("inbound-cap")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	guestStderr, _ := cmd.Flags().GetBool("guest-stderr")
	verbose, _ := cmd.Flags().GetBool("verbose")

	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	guest, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	opts := []endpoint.Option{
		endpoint.WithTimeout(timeout),
		endpoint.WithMemoryLimit(memoryLimit),
		endpoint.WithInboundBufferCap(inboundCap),
		endpoint.WithLogger(logger),
	}
	if cacheDir != "" {
		opts = append(opts, endpoint.WithDiskCache(cacheDir))
	}
	if guestStderr {
		opts = append(opts, endpoint.WithGuestStderr(os.Stderr))
	}

	exec, err := endpoint.New(cmd.Context(), guest, opts...)
	if err != nil {
		return err
	}
	defer exec.Close()

	addr := fmt.Sprintf(":%d", port)
	logger.Info("serving", zap.String("addr", addr), zap.String("module", args[0]))
	return http.ListenAndServe(addr, exec)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
