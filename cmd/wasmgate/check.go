package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"

	"github.com/wasmgate/wasmgate/abi"
)

var checkCmd = &cobra.Command{
	Use:   "check <module.wasm>",
	Short: "Validate a guest module against the wasmgate ABI",
	Long: `Compile a WASM module and report which wasmgate host functions it imports.

Imports outside the wasmgate and WASI namespaces are flagged, since the
server provides nothing else.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	guest, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, guest)
	if err != nil {
		return fmt.Errorf("compile module: %w", err)
	}
	defer compiled.Close(ctx)

	unknown := 0
	for _, fn := range compiled.ImportedFunctions() {
		module, name, _ := fn.Import()
		switch module {
		case abi.Namespace:
			fmt.Fprintf(cmd.OutOrStdout(), "  %s.%s\n", module, name)
		case "wasi_snapshot_preview1":
			// provided by the server, not worth listing
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "  %s.%s (unsupported)\n", module, name)
			unknown++
		}
	}

	if unknown > 0 {
		return fmt.Errorf("%d imports outside the wasmgate and WASI namespaces", unknown)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
