package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wasmgate",
	Short: "Serve HTTP with sandboxed WASM handler modules",
	Long: `wasmgate - Run an untrusted WebAssembly module as an HTTP request handler.

The guest module has no network or filesystem access. It reads the request
and writes its response exclusively through the wasmgate host functions,
with bounded buffers and explicit backpressure on both body directions.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging (includes per-call ABI tracing)")
}
