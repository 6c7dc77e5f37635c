package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/schema2ts/internal/emitter/tsemitter"
)

const minimalSpecYAML = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: Test API\n" +
	"  version: '1.0.0'\n" +
	"paths:\n" +
	"  /hello:\n" +
	"    get:\n" +
	"      operationId: hello\n" +
	"      summary: Hello\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n"

const minimalGraphYAML = "" +
	"namespaces:\n" +
	"  - name: Hello\n" +
	"    emit: true\n" +
	"    operations:\n" +
	"      - name: hello\n" +
	"        route: { path: /hello, verb: get }\n" +
	"        responses:\n" +
	"          - status: 200\n" +
	"            contents:\n" +
	"              - body: string\n"

const diagnosticGraphYAML = "" +
	"namespaces:\n" +
	"  - name: Broken\n" +
	"    emit: true\n" +
	"    operations:\n" +
	"      - name: login\n" +
	"        diagnostics:\n" +
	"          - { code: parameter-unsupported-location, message: cookie parameter session }\n"

func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()
	fn()
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return p
}

func runRoot(args ...string) error {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	return root.Execute()
}

func TestGeneratePipeline_DryRun_OpenAPI(t *testing.T) {
	dir := t.TempDir()
	specPath := writeInput(t, dir, "spec.yaml", minimalSpecYAML)
	outDir := filepath.Join(dir, "out-openapi")

	out := captureStdout(func() {
		if err := runRoot("generate", "--input", specPath, "--out", outDir, "--dry-run"); err != nil {
			t.Fatalf("execute: %v", err)
		}
	})
	if !strings.Contains(out, "Planned writes to") || !strings.Contains(out, "- output.d.ts") {
		t.Fatalf("expected dry-run plan output, got: %s", out)
	}
	// Dry-run should not create the directory
	if _, err := os.Stat(outDir); err == nil {
		t.Fatalf("expected no writes on dry-run")
	}
}

func TestGeneratePipeline_WritesGraphOutput(t *testing.T) {
	dir := t.TempDir()
	specPath := writeInput(t, dir, "hello.graph.yaml", minimalGraphYAML)
	outDir := filepath.Join(dir, "out-graph")

	if err := runRoot("generate", "--input", specPath, "--out", outDir); err != nil {
		t.Fatalf("execute: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, tsemitter.OutputFile))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		"export interface $operations {",
		"hello(): {",
		"$body: string;",
		`get: $operations["hello"];`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestGeneratePipeline_NoEmit(t *testing.T) {
	dir := t.TempDir()
	specPath := writeInput(t, dir, "spec.yaml", minimalSpecYAML)

	out := captureStdout(func() {
		if err := runRoot("generate", "--input", specPath, "--no-emit", "--api-namespace", "Greeter"); err != nil {
			t.Fatalf("execute: %v", err)
		}
	})
	if !strings.Contains(out, "No errors in Greeter") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestGeneratePipeline_DiagnosticsAbort(t *testing.T) {
	dir := t.TempDir()
	specPath := writeInput(t, dir, "broken.yaml", diagnosticGraphYAML)
	outDir := filepath.Join(dir, "out")

	err := runRoot("generate", "--input", specPath, "--out", outDir)
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	var de *tsemitter.DiagnosticsError
	if !errors.As(err, &de) || len(de.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %v", err)
	}
	if _, err := os.Stat(outDir); err == nil {
		t.Fatalf("expected no output after diagnostics")
	}
}

func TestGeneratePipeline_SpecErrorsAreUsageErrors(t *testing.T) {
	dir := t.TempDir()
	specPath := writeInput(t, dir, "bad.yaml", "namespaces:\n  - name: 'not valid'\n")

	err := runRoot("generate", "--input", specPath, "--dry-run")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Location: "+specPath) || !strings.Contains(err.Error(), "Pointer: #/namespaces/0/name") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestGeneratePipeline_UnknownNamespace(t *testing.T) {
	dir := t.TempDir()
	specPath := writeInput(t, dir, "hello.graph.yaml", minimalGraphYAML)

	err := runRoot("generate", "--input", specPath, "--dry-run", "--namespace", "Missing")
	if !errors.Is(err, ErrUsage) || !errors.Is(err, tsemitter.ErrUnknownNamespace) {
		t.Fatalf("expected unknown namespace usage error, got %v", err)
	}
}
