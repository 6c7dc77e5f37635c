// Package tsemitter turns a schema graph into TypeScript declarations: one
// declaration per standalone model, an operation table ($operations) and a
// route table ($paths) that references the operation table by name.
package tsemitter

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

	genspec "github.com/mark3labs/schema2ts/internal/spec"
	"github.com/mark3labs/schema2ts/internal/tsdecl"
)

// OutputFile is the name of the emitted declaration file.
const OutputFile = "output.d.ts"

const generatedHeader = "// Code generated by schema2ts. DO NOT EDIT.\n\n"

// ErrNoNamespaces is returned when nothing is registered for emission.
var ErrNoNamespaces = errors.New("tsemitter: no namespaces registered for emission")

// ErrUnknownNamespace is returned when a registered name matches no namespace.
var ErrUnknownNamespace = errors.New("tsemitter: registered namespace not found")

// Options controls how the TypeScript emitter renders and writes output.
type Options struct {
	OutDir string // required unless DryRun or NoEmit; target directory for output.d.ts
	// Namespaces lists qualified namespace names to emit. When empty, the
	// program's own registrations are used.
	Namespaces     []string
	WrapNamespaces bool
	Force          bool // overwrite a non-empty directory
	DryRun         bool // don't write, only plan
	NoEmit         bool // run the pass for its errors only
	Logger         *slog.Logger
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and what was emitted.
type Result struct {
	Namespaces []string
	Planned    []PlannedFile
	// Content is the rendered declaration file.
	Content []byte
}

// Emit runs one emission pass over prog and writes output.d.ts into
// opts.OutDir. Nothing is written when the pass fails.
func Emit(ctx context.Context, prog *genspec.Program, opts Options) (*Result, error) {
	_ = ctx
	if prog == nil {
		return nil, fmt.Errorf("tsemitter: nil Program")
	}
	if !opts.DryRun && !opts.NoEmit && strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("tsemitter: OutDir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	registered := registeredNamespaces(prog, opts.Namespaces)
	if len(registered) == 0 {
		return nil, ErrNoNamespaces
	}
	logger.Debug("starting emission pass", slog.Any("namespaces", registered))

	decls, err := EmitProgram(prog, registered, PassOptions{WrapNamespaces: opts.WrapNamespaces, Logger: logger})
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(generatedHeader)
	if err := tsdecl.Print(&b, decls); err != nil {
		return nil, fmt.Errorf("print declarations: %w", err)
	}
	content := []byte(b.String())

	res := &Result{
		Namespaces: registered,
		Planned:    []PlannedFile{{RelPath: OutputFile, Size: len(content), Mode: 0o644}},
		Content:    content,
	}
	if opts.DryRun || opts.NoEmit {
		return res, nil
	}
	if err := writeFiles(opts.OutDir, map[string][]byte{OutputFile: content}, opts.Force); err != nil {
		return nil, err
	}
	logger.Info("wrote declarations", slog.String("dir", opts.OutDir), slog.Int("bytes", len(content)))
	return res, nil
}

// registeredNamespaces picks the explicit selection when given, else the
// program's registrations, dropping blanks and duplicates.
func registeredNamespaces(prog *genspec.Program, explicit []string) []string {
	src := explicit
	if len(src) == 0 {
		src = prog.Registered
	}
	seen := make(map[string]struct{}, len(src))
	out := make([]string, 0, len(src))
	for _, name := range src {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	// Pre-flight: a directory holding anything but our own output needs force.
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil {
			for _, entry := range entries {
				if _, ours := files[entry.Name()]; !ours {
					return fmt.Errorf("tsemitter: output directory %q is not empty (use --force to overwrite)", abs)
				}
			}
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
