package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mark3labs/schema2ts/internal/emitter/tsemitter"
	genspec "github.com/mark3labs/schema2ts/internal/spec"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// envPrefix scopes environment overrides, e.g. SCHEMA2TS_INPUT or
// SCHEMA2TS_INCLUDE_TAGS.
const envPrefix = "schema2ts"

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, environment and CLI overrides.
type GenerateConfig struct {
	Input          string        `split_words:"true"`
	Format         string        `split_words:"true"`
	Out            string        `split_words:"true"`
	Namespaces     []string      `split_words:"true"`
	APINamespace   string        `split_words:"true"`
	IncludeTags    []string      `split_words:"true"`
	ExcludeTags    []string      `split_words:"true"`
	Methods        []string      `split_words:"true"`
	Paths          []string      `split_words:"true"`
	WrapNamespaces bool          `split_words:"true"`
	Timeout        time.Duration `split_words:"true"`
	LogLevel       string        `split_words:"true"`
	ConfigPath     string        `ignored:"true"`
	DryRun         bool          `split_words:"true"`
	Force          bool          `split_words:"true"`
	NoEmit         bool          `split_words:"true"`
	Verbose        bool          `split_words:"true"`
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Format: string(genspec.FormatAuto), Out: "schema2ts-output"}
}

var generateRunner = runGenerate

// logOutput receives the structured log stream of generate.
var logOutput io.Writer = os.Stderr

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate TypeScript declarations from a schema graph or OpenAPI document",
		Long: "Generate output.d.ts from a schema graph document or an OpenAPI/Swagger document. " +
			"Options can be provided via flags, SCHEMA2TS_* environment variables, config files, or defaults.",
		Example: strings.TrimSpace(`  schema2ts generate --input petstore.graph.yaml --out ./types
  schema2ts generate --input https://example.com/openapi.json --include-tags pets --dry-run
  schema2ts --config schema2ts.yaml generate --namespace Store.V1 --wrap-namespaces --force`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the schema graph or OpenAPI/Swagger document")
	flags.String("format", "", "Input format (auto|graph|openapi); defaults to auto")
	flags.String("out", "", "Output directory for output.d.ts")
	flags.StringSlice("namespace", nil, "Qualified namespace to emit (repeatable); defaults to the input's registrations")
	flags.String("api-namespace", "", "Namespace name for OpenAPI input (derived from info.title when omitted)")
	flags.StringSlice("include-tags", nil, "Only include OpenAPI operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude OpenAPI operations with these tags")
	flags.StringSlice("methods", nil, "Only include OpenAPI operations with these methods")
	flags.StringSlice("paths", nil, "Only include OpenAPI paths matching these regular expressions")
	flags.Bool("wrap-namespaces", false, "Wrap each emitted namespace in a declared module")
	flags.Duration("timeout", 0, "HTTP timeout when fetching a remote input")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")
	flags.Bool("no-emit", false, "Run the emission pass for its errors only")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, newUsageError(fmt.Sprintf("generate: environment: %v", err))
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"input":         &cfg.Input,
		"format":        &cfg.Format,
		"out":           &cfg.Out,
		"api-namespace": &cfg.APINamespace,
		"log-level":     &cfg.LogLevel,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	lists := map[string]*[]string{
		"namespace":    &cfg.Namespaces,
		"include-tags": &cfg.IncludeTags,
		"exclude-tags": &cfg.ExcludeTags,
		"methods":      &cfg.Methods,
		"paths":        &cfg.Paths,
	}
	for name, dst := range lists {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeList(value)
	}

	bools := map[string]*bool{
		"wrap-namespaces": &cfg.WrapNamespaces,
		"dry-run":         &cfg.DryRun,
		"force":           &cfg.Force,
		"no-emit":         &cfg.NoEmit,
		"verbose":         &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("timeout") {
		value, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Out = strings.TrimSpace(c.Out)
	c.APINamespace = strings.TrimSpace(c.APINamespace)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Namespaces = sanitizeList(c.Namespaces)
	c.IncludeTags = sanitizeList(c.IncludeTags)
	c.ExcludeTags = sanitizeList(c.ExcludeTags)
	c.Methods = sanitizeList(c.Methods)
	for i, m := range c.Methods {
		c.Methods[i] = strings.ToLower(m)
	}
	c.Paths = sanitizeList(c.Paths)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag, environment or config file)")
	}

	switch genspec.Format(c.Format) {
	case "":
		c.Format = string(genspec.FormatAuto)
	case genspec.FormatAuto, genspec.FormatGraph, genspec.FormatOpenAPI:
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --format %q (allowed: auto, graph, openapi)", c.Format))
	}

	for _, m := range c.Methods {
		switch genspec.HttpVerb(m) {
		case genspec.GET, genspec.PUT, genspec.POST, genspec.PATCH, genspec.DELETE, genspec.HEAD:
		default:
			return newUsageError(fmt.Sprintf("generate: unsupported method %q (allowed: get, put, post, patch, delete, head)", m))
		}
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --log-level %q (allowed: debug, info, warn, error)", c.LogLevel))
	}

	if c.Timeout < 0 {
		return newUsageError("generate: --timeout must not be negative")
	}

	if c.Out == "" && !c.DryRun && !c.NoEmit {
		return newUsageError("generate: --out is required unless --dry-run or --no-emit is set")
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

// newLogger builds the text logger for one run. Output stays quiet (warnings
// and errors only) unless --verbose or --log-level asks for more.
func newLogger(w io.Writer, cfg *GenerateConfig) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := newLogger(logOutput, cfg)
	log := logger.With("component", "cli")

	// 1) Load the input (file or http/https URL) into a schema graph
	loadOpts := []genspec.Option{genspec.WithLogger(logger)}
	if cfg.Timeout > 0 {
		loadOpts = append(loadOpts, genspec.WithHTTPTimeout(cfg.Timeout))
	}
	buildOpts := []genspec.BuildOption{
		genspec.WithIncludeTags(cfg.IncludeTags),
		genspec.WithExcludeTags(cfg.ExcludeTags),
		genspec.WithPathPatterns(cfg.Paths),
		genspec.WithBuildLogger(logger),
	}
	if len(cfg.Methods) > 0 {
		verbs := make([]genspec.HttpVerb, 0, len(cfg.Methods))
		for _, m := range cfg.Methods {
			verbs = append(verbs, genspec.HttpVerb(m))
		}
		buildOpts = append(buildOpts, genspec.WithMethods(verbs))
	}
	if cfg.APINamespace != "" {
		buildOpts = append(buildOpts, genspec.WithNamespace(cfg.APINamespace))
	}

	prog, err := genspec.LoadProgram(ctx, cfg.Input, genspec.Format(cfg.Format), loadOpts, buildOpts...)
	if err != nil {
		return mapSpecError(err)
	}

	// 2) Emit; nothing is written unless the whole pass succeeds
	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil && cfg.Out != "" {
		absOut = ap
	}
	res, err := tsemitter.Emit(ctx, prog, tsemitter.Options{
		OutDir:         cfg.Out,
		Namespaces:     cfg.Namespaces,
		WrapNamespaces: cfg.WrapNamespaces,
		Force:          cfg.Force,
		DryRun:         cfg.DryRun,
		NoEmit:         cfg.NoEmit,
		Logger:         logger,
	})
	if err != nil {
		return mapEmitError(err, absOut)
	}

	switch {
	case cfg.DryRun:
		paths := make([]string, 0, len(res.Planned))
		for _, p := range res.Planned {
			paths = append(paths, p.RelPath)
		}
		printPlan(absOut, len(res.Planned), paths)
	case cfg.NoEmit:
		fmt.Fprintf(os.Stdout, "No errors in %s\n", strings.Join(res.Namespaces, ", "))
	default:
		log.Info("generated declarations", slog.String("out", absOut), slog.Any("namespaces", res.Namespaces))
	}
	return nil
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

// mapSpecError turns structured loader errors into friendly messages.
func mapSpecError(err error) error {
	var se *genspec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return wrapUsageError(msg, err)
}

func mapEmitError(err error, outDir string) error {
	var (
		diags     *tsemitter.DiagnosticsError
		badType   *tsemitter.UnsupportedTypeError
		badScalar *tsemitter.UnsupportedScalarError
	)
	switch {
	case errors.As(err, &diags):
		return wrapUsageError(fmt.Sprintf("generate: %v", err), err)
	case errors.As(err, &badType), errors.As(err, &badScalar):
		return wrapUsageError(fmt.Sprintf("generate: %v\nHint: the input uses a type with no TypeScript declaration.", err), err)
	case errors.Is(err, tsemitter.ErrNoNamespaces):
		return wrapUsageError("generate: no namespaces selected for emission\nHint: pass --namespace or mark a namespace for emission in the input.", err)
	case errors.Is(err, tsemitter.ErrUnknownNamespace):
		return wrapUsageError(fmt.Sprintf("generate: %v", err), err)
	}
	return wrapOutputError(err, outDir)
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return wrapUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg), err)
	}
	return err
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strs := map[string]*string{
		"input":        &cfg.Input,
		"format":       &cfg.Format,
		"out":          &cfg.Out,
		"apinamespace": &cfg.APINamespace,
		"loglevel":     &cfg.LogLevel,
	}
	lists := map[string]*[]string{
		"namespaces":  &cfg.Namespaces,
		"namespace":   &cfg.Namespaces,
		"includetags": &cfg.IncludeTags,
		"excludetags": &cfg.ExcludeTags,
		"methods":     &cfg.Methods,
		"paths":       &cfg.Paths,
	}
	bools := map[string]*bool{
		"wrapnamespaces": &cfg.WrapNamespaces,
		"dryrun":         &cfg.DryRun,
		"force":          &cfg.Force,
		"noemit":         &cfg.NoEmit,
		"verbose":        &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := lists[normalized]; ok {
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = sanitizeList(list)
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		if normalized == "timeout" {
			d, err := valueAsDuration(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Timeout = d
			continue
		}
		return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

// valueAsDuration accepts a Go duration string ("30s") or a number of seconds.
func valueAsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", val)
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
