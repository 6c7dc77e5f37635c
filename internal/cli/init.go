package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "schema2ts.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample schema2ts configuration file",
		Long:  "Scaffold a commented schema2ts configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	// Atomic write via temp + rename
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# schema2ts configuration (YAML)
# All fields are optional. SCHEMA2TS_* environment variables override config
# values, and command-line flags override both.

# Path or URL to a schema graph or OpenAPI/Swagger document (http/https or local file).
# input: ./petstore.graph.yaml

# Input format (auto|graph|openapi). auto inspects the document's top-level keys.
# format: auto

# Output directory for output.d.ts.
# out: ./schema2ts-output

# Qualified namespaces to emit. Defaults to the namespaces the input registers.
# namespaces: [PetStore]

# Wrap each emitted namespace in a declared module instead of flattening.
# wrapNamespaces: false

# OpenAPI input only: namespace name (derived from info.title when omitted).
# apiNamespace: PetStore

# OpenAPI input only: operation filters (comma-separated or list).
# includeTags: [public,read]
# excludeTags: [internal]
# methods: [get,post]
# paths: ['^/pets']

# HTTP timeout when fetching a remote input.
# timeout: 30s

# Log level (debug|info|warn|error).
# logLevel: warn

# Preview planned outputs without writing files.
# dryRun: false

# Run the emission pass for its errors only.
# noEmit: false

# Overwrite non-empty output directory.
# force: false

# Enable verbose logging.
# verbose: false
`
