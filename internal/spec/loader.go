package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Format names an input document format.
type Format string

const (
	FormatAuto    Format = "auto"
	FormatGraph   Format = "graph"
	FormatOpenAPI Format = "openapi"
)

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// AllowFileRefs controls whether file:// refs are allowed for external references.
	// Always allowed when the root input is a local file.
	AllowFileRefs bool
	Logger        *slog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option    { return func(s *Settings) { s.AllowFileRefs = allow } }
func WithLogger(l *slog.Logger) Option       { return func(s *Settings) { s.Logger = l } }

func resolveSettings(opts []Option) Settings {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Logger == nil {
		settings.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	settings.Logger = settings.Logger.With("component", "spec")
	return settings
}

// source is raw input bytes together with where they came from.
type source struct {
	raw      []byte
	location string
	uri      *url.URL // set for http(s) inputs
}

// readInput fetches input from an http(s) URL or reads it from the local
// filesystem. file:// URLs and other schemes are rejected.
func readInput(ctx context.Context, input string, settings Settings) (*source, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	u, uerr := url.Parse(input)
	if uerr == nil && u.Scheme != "" && u.Host != "" {
		scheme := strings.ToLower(u.Scheme)
		if scheme == "file" {
			return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked by default", Location: input}
		}
		if scheme != "http" && scheme != "https" {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return &source{raw: raw, location: input, uri: u}, nil
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return &source{raw: raw, location: abs}, nil
}

// DetectFormat inspects the top-level keys of a YAML or JSON document.
// Graph documents carry "namespaces"; OpenAPI documents carry "openapi" or
// "swagger".
func DetectFormat(data []byte) (Format, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return "", fmt.Errorf("parse input: %w", err)
	}
	if _, ok := root["namespaces"]; ok {
		return FormatGraph, nil
	}
	if _, ok := root["openapi"]; ok {
		return FormatOpenAPI, nil
	}
	if _, ok := root["swagger"]; ok {
		return FormatOpenAPI, nil
	}
	return "", fmt.Errorf("input is neither a schema graph document (namespaces) nor an OpenAPI document (openapi/swagger)")
}

// LoadProgram reads input and builds a Program from it, choosing the loader
// by format. FormatAuto detects the format from the document's top-level keys.
func LoadProgram(ctx context.Context, input string, format Format, loadOpts []Option, buildOpts ...BuildOption) (*Program, error) {
	settings := resolveSettings(loadOpts)
	src, err := readInput(ctx, input, settings)
	if err != nil {
		return nil, err
	}
	if format == "" || format == FormatAuto {
		detected, derr := DetectFormat(src.raw)
		if derr != nil {
			return nil, &SpecError{Code: ParseError, Message: derr.Error(), Location: src.location, Cause: derr}
		}
		format = detected
		settings.Logger.Debug("detected input format", slog.String("format", string(format)), slog.String("location", src.location))
	}
	switch format {
	case FormatGraph:
		return parseGraph(src, settings)
	case FormatOpenAPI:
		doc, err := loadOpenAPI(ctx, src, settings)
		if err != nil {
			return nil, err
		}
		return BuildProgram(ctx, doc, append([]BuildOption{WithSourceOrder(src.raw)}, buildOpts...)...)
	default:
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unknown input format %q", format), Location: src.location}
	}
}

// Load reads, validates, and returns an OpenAPI v3 document. If the input
// is Swagger v2.0, it converts it to v3 via kin-openapi openapi2conv.
//
// input may be a filesystem path or an http/https URL. file:// URLs are blocked
// by default.
func Load(ctx context.Context, input string, opts ...Option) (*openapi3.T, error) {
	settings := resolveSettings(opts)
	src, err := readInput(ctx, input, settings)
	if err != nil {
		return nil, err
	}
	return loadOpenAPI(ctx, src, settings)
}

func loadOpenAPI(ctx context.Context, src *source, settings Settings) (*openapi3.T, error) {
	version, err := detectSpecVersion(src.raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: src.location, Cause: err}
	}

	var doc *openapi3.T
	switch version {
	case 3:
		loader := newLoader(settings, src.uri == nil)
		if src.uri != nil {
			doc, err = loader.LoadFromURI(src.uri)
		} else {
			doc, err = loader.LoadFromFile(src.location)
		}
		if err != nil {
			return nil, mapValidateOrParseErr(err, src.location)
		}
	case 2:
		raw := src.raw
		if fixed, changed, _ := rewriteV2Parameters(raw); changed {
			settings.Logger.Debug("rewrote swagger 2.0 parameters for conversion", slog.String("location", src.location))
			raw = fixed
		}
		doc, err = convertV2ToV3(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: src.location, Cause: err}
		}
		if err := newLoader(settings, src.uri == nil).ResolveRefsIn(doc, nil); err != nil {
			settings.Logger.Warn("failed to resolve refs after conversion", slog.String("location", src.location), slog.Any("error", err))
		}
	default:
		return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: src.location}
	}

	if err := doc.Validate(ctx); err != nil {
		if !canProceedDespiteValidation(err) {
			return nil, mapValidateOrParseErr(err, src.location)
		}
		settings.Logger.Warn("proceeding despite validation error", slog.Any("error", err))
	}
	return doc, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	allowFile := settings.AllowFileRefs || rootIsFile
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !allowFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return 3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var v2 openapi2.T
	if err := yaml.Unmarshal(data, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		body, retry, err := fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		settings.Logger.Debug("retrying fetch", slog.String("url", rawURL), slog.Int("attempt", i+1), slog.Any("error", err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

// fetchOnce performs a single GET. retry reports whether the failure is
// transient (network error, 5xx or 429).
func fetchOnce(ctx context.Context, client *http.Client, rawURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		return body, false, err
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	// Some loader errors are parse errors.
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}

// canProceedDespiteValidation returns true for validation errors where a
// best-effort build can still proceed (unresolved $ref entries).
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref") || strings.Contains(s, "found unresolved ref")
}
