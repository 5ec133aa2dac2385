package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	agenterrors "github.com/devagent/orchestrator/errors"
)

// Builder produces a tool's Executor scoped to one session's working
// directory. The toolregistry looks a tool's Builder up by Ident and calls
// it with the requesting agent's ToolContext.Cwd when binding a catalog spec
// to a real session, rather than the catalog spec carrying a live Execute
// closure itself.
type Builder func(cwd string) Executor

// DefaultBashTimeout bounds a Bash invocation when BuiltinBuilders is called
// with a zero timeout.
const DefaultBashTimeout = 2 * time.Minute

// BuiltinCatalog returns the metadata-only ToolSpec catalog for the
// filesystem, bash, and web-fetch tools declared in this package's Ident
// constants. Every spec's Execute is left nil; the toolregistry binds a real
// Executor per request via BuiltinBuilders. PlanRead/PlanWrite are
// registered separately by the host that owns a plan.ImplementationPlan,
// since this package cannot import plan without an import cycle.
func BuiltinCatalog() []ToolSpec {
	return []ToolSpec{
		{Name: ReadFile, Toolset: "fs", Description: "Read the full contents of a file within the session's working directory.", Permission: PermissionReadOnly, Payload: TypeSpec{Name: "ReadFileInput"}},
		{Name: WriteFile, Toolset: "fs", Description: "Create or overwrite a file within the session's working directory.", Permission: PermissionRequiresWrite, Payload: TypeSpec{Name: "WriteFileInput"}},
		{Name: EditFile, Toolset: "fs", Description: "Replace the first occurrence of a string in a file within the session's working directory.", Permission: PermissionRequiresWrite, Payload: TypeSpec{Name: "EditFileInput"}},
		{Name: Grep, Toolset: "fs", Description: "Search files under the session's working directory for lines matching a literal substring.", Permission: PermissionReadOnly, Payload: TypeSpec{Name: "GrepInput"}},
		{Name: Glob, Toolset: "fs", Description: "List files under the session's working directory matching a glob pattern.", Permission: PermissionReadOnly, Payload: TypeSpec{Name: "GlobInput"}},
		{Name: Bash, Toolset: "bash", Description: "Run a shell command in the session's working directory.", Permission: PermissionRequiresWrite, Payload: TypeSpec{Name: "BashInput"}},
		{Name: WebFetch, Toolset: "web", Description: "Fetch a URL over HTTP(S) and return its response body, truncated to 64KB.", Tags: []string{"network"}, Permission: PermissionReadOnly, Payload: TypeSpec{Name: "WebFetchInput"}},
	}
}

// BuiltinBuilders returns the Builder for every ToolSpec in BuiltinCatalog,
// keyed by Ident. bashTimeout bounds how long a single Bash invocation may
// run before its process group is killed; zero means DefaultBashTimeout.
func BuiltinBuilders(bashTimeout time.Duration) map[Ident]Builder {
	if bashTimeout <= 0 {
		bashTimeout = DefaultBashTimeout
	}
	return map[Ident]Builder{
		ReadFile:  readFileExecutor,
		WriteFile: writeFileExecutor,
		EditFile:  editFileExecutor,
		Grep:      grepExecutor,
		Glob:      globExecutor,
		Bash:      bashExecutor(bashTimeout),
		WebFetch:  func(cwd string) Executor { return webFetchExecutor },
	}
}

func resolvePath(cwd, path string) (string, error) {
	if path == "" {
		return "", agenterrors.New(agenterrors.KindValidation, "path is required")
	}
	joined := path
	if !filepath.IsAbs(path) {
		joined = filepath.Join(cwd, path)
	}
	cleanCwd := filepath.Clean(cwd)
	cleanJoined := filepath.Clean(joined)
	if cleanCwd != "" && cleanJoined != cleanCwd && !strings.HasPrefix(cleanJoined, cleanCwd+string(filepath.Separator)) {
		return "", agenterrors.Errorf(agenterrors.KindValidation, "path %q escapes the session working directory", path)
	}
	return cleanJoined, nil
}

func readFileExecutor(cwd string) Executor {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var in struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindValidation, "fs.read_file: invalid payload", err)
		}
		path, err := resolvePath(cwd, in.Path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindTransient, "fs.read_file: read failed", err)
		}
		return json.Marshal(map[string]string{"content": string(data)})
	}
}

func writeFileExecutor(cwd string) Executor {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var in struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindValidation, "fs.write_file: invalid payload", err)
		}
		path, err := resolvePath(cwd, in.Path)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindTransient, "fs.write_file: mkdir failed", err)
		}
		if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindTransient, "fs.write_file: write failed", err)
		}
		return json.Marshal(map[string]bool{"ok": true})
	}
}

func editFileExecutor(cwd string) Executor {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var in struct {
			Path      string `json:"path"`
			OldString string `json:"old_string"`
			NewString string `json:"new_string"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindValidation, "fs.edit_file: invalid payload", err)
		}
		path, err := resolvePath(cwd, in.Path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindTransient, "fs.edit_file: read failed", err)
		}
		original := string(data)
		if !strings.Contains(original, in.OldString) {
			return nil, agenterrors.New(agenterrors.KindValidation, "fs.edit_file: old_string not found in file")
		}
		updated := strings.Replace(original, in.OldString, in.NewString, 1)
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindTransient, "fs.edit_file: write failed", err)
		}
		return json.Marshal(map[string]bool{"ok": true})
	}
}

func grepExecutor(cwd string) Executor {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var in struct {
			Pattern string `json:"pattern"`
			Path    string `json:"path"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindValidation, "fs.grep: invalid payload", err)
		}
		root := cwd
		if in.Path != "" {
			var err error
			root, err = resolvePath(cwd, in.Path)
			if err != nil {
				return nil, err
			}
		}
		var matches []string
		err := filepath.WalkDir(root, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f, openErr := os.Open(p)
			if openErr != nil {
				return nil
			}
			defer f.Close()
			scanner := bufio.NewScanner(f)
			line := 0
			for scanner.Scan() {
				line++
				if strings.Contains(scanner.Text(), in.Pattern) {
					rel, _ := filepath.Rel(cwd, p)
					matches = append(matches, fmt.Sprintf("%s:%d:%s", rel, line, scanner.Text()))
				}
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			return nil, agenterrors.Wrap(agenterrors.KindTransient, "fs.grep: walk failed", err)
		}
		return json.Marshal(map[string][]string{"matches": matches})
	}
}

func globExecutor(cwd string) Executor {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var in struct {
			Pattern string `json:"pattern"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindValidation, "fs.glob: invalid payload", err)
		}
		matches, err := filepath.Glob(filepath.Join(cwd, in.Pattern))
		if err != nil {
			return nil, agenterrors.Wrap(agenterrors.KindValidation, "fs.glob: invalid pattern", err)
		}
		rel := make([]string, 0, len(matches))
		for _, m := range matches {
			r, err := filepath.Rel(cwd, m)
			if err != nil {
				r = m
			}
			rel = append(rel, r)
		}
		return json.Marshal(map[string][]string{"matches": rel})
	}
}

// bashExecutor runs a shell command in its own process group so the whole
// tree is killed on timeout or cancellation, not just the immediate child.
// A command killed by the timeout yields an error rather than an exit code.
func bashExecutor(timeout time.Duration) Builder {
	return func(cwd string) Executor {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			var in struct {
				Command string `json:"command"`
			}
			if err := json.Unmarshal(payload, &in); err != nil {
				return nil, agenterrors.Wrap(agenterrors.KindValidation, "bash.run: invalid payload", err)
			}
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(runCtx, "bash", "-c", in.Command)
			cmd.Dir = cwd
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
			cmd.Cancel = func() error {
				return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			cmd.WaitDelay = 3 * time.Second

			out, runErr := cmd.CombinedOutput()
			if runCtx.Err() == context.DeadlineExceeded {
				return nil, agenterrors.Wrap(agenterrors.KindTransient, "bash.run: command timed out", runCtx.Err())
			}
			exitCode := 0
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else if runErr != nil {
				return nil, agenterrors.Wrap(agenterrors.KindTransient, "bash.run: exec failed", runErr)
			}
			return json.Marshal(map[string]any{"stdout": string(out), "exit_code": exitCode})
		}
	}
}

// webFetchExecutor performs a plain HTTP GET and returns the truncated body.
// It ignores cwd: WebFetch has no filesystem footprint. WebSearch and
// Browser are left to a host that has a search API key or a
// browser-automation backend configured; their RequiresCapability tag lets
// the toolregistry drop them cleanly when absent.
func webFetchExecutor(ctx context.Context, payload []byte) ([]byte, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, agenterrors.Wrap(agenterrors.KindValidation, "web.fetch: invalid payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return nil, agenterrors.Wrap(agenterrors.KindValidation, "web.fetch: invalid url", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, agenterrors.Wrap(agenterrors.KindTransient, "web.fetch: request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, agenterrors.Wrap(agenterrors.KindTransient, "web.fetch: read body failed", err)
	}
	return json.Marshal(map[string]any{"status": resp.StatusCode, "body": string(body)})
}
