package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
)

// MockFS implements FileSystem for testing.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
	seq   int

	// Error injection
	MkdirTempErr error
	RemoveAllErr error
	OpenErr      error
	CreateErr    error

	// Removed records every path passed to RemoveAll, in order.
	Removed []string
}

// NewMockFS creates a new MockFS with an empty filesystem.
func NewMockFS() *MockFS {
	return &MockFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFS) AddFile(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	dir := filepath.Dir(path)
	for dir != "." && dir != "/" {
		m.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

// GetFile returns the contents of a file in the mock filesystem.
func (m *MockFS) GetFile(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	return data, ok
}

// Exists returns true if path is a file or directory in the mock filesystem.
func (m *MockFS) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, fileOk := m.files[path]
	return fileOk || m.dirs[path]
}

func (m *MockFS) MkdirTemp(dir, pattern string) (string, error) {
	if m.MkdirTempErr != nil {
		return "", m.MkdirTempErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir == "" {
		dir = "/tmp"
	}
	m.seq++
	name := pattern + fmt.Sprint(m.seq)
	if i := strings.LastIndex(pattern, "*"); i >= 0 {
		name = pattern[:i] + fmt.Sprint(m.seq) + pattern[i+1:]
	}
	path := filepath.Join(dir, name)
	m.dirs[path] = true
	return path, nil
}

func (m *MockFS) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, path)
	if m.RemoveAllErr != nil {
		return m.RemoveAllErr
	}

	for p := range m.files {
		if p == path || hasPathPrefix(p, path) {
			delete(m.files, p)
		}
	}
	for p := range m.dirs {
		if p == path || hasPathPrefix(p, path) {
			delete(m.dirs, p)
		}
	}
	return nil
}

func (m *MockFS) Open(path string) (io.ReadCloser, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockFS) Create(path string) (io.WriteCloser, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if dir := filepath.Dir(path); dir != "/" && !m.dirs[dir] {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	m.files[path] = nil
	return &mockWriter{fs: m, path: path}, nil
}

// mockWriter stores its contents in the MockFS on Close.
type mockWriter struct {
	bytes.Buffer
	fs   *MockFS
	path string
}

func (w *mockWriter) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.files[w.path] = append([]byte(nil), w.Bytes()...)
	return nil
}

// hasPathPrefix checks if path has the given prefix as a path component.
func hasPathPrefix(path, prefix string) bool {
	if len(path) <= len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed commands for verification.
	Commands []MockCommand

	// Responses maps argv prefixes to responses.
	// Key format: "command arg1 arg2..."; the longest matching prefix wins.
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse
}

// MockCommand records an executed command.
type MockCommand struct {
	Argv  []string
	Stdin string
	Env   []string

	// ExitStatus is the status the command was answered with, -1 if it
	// failed to run.
	ExitStatus int
}

// String returns the argv joined by spaces.
func (c MockCommand) String() string {
	return strings.Join(c.Argv, " ")
}

// MockResponse defines the response for a command.
type MockResponse struct {
	// Output is written to the process's Stdout, if any.
	Output []byte
	// Stderr is written to the process's Stderr, if any.
	Stderr     []byte
	ExitStatus int
	Err        error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:  make([]MockCommand, 0),
		Responses: make(map[string]MockResponse),
	}
}

// AddResponse sets the output and exit status for commands starting with pattern.
func (m *MockExecutor) AddResponse(pattern string, output []byte, exitStatus int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = MockResponse{Output: output, ExitStatus: exitStatus}
}

// AddError makes commands starting with pattern fail to run.
func (m *MockExecutor) AddError(pattern string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = MockResponse{ExitStatus: -1, Err: err}
}

func (m *MockExecutor) record(p *Process) (MockResponse, error) {
	cmd := MockCommand{
		Argv: append([]string(nil), p.Argv...),
		Env:  append([]string(nil), p.Env...),
	}
	if p.Stdin != nil {
		data, err := io.ReadAll(p.Stdin)
		if err != nil {
			return MockResponse{}, err
		}
		cmd.Stdin = string(data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	resp := m.lookup(p.Argv)
	cmd.ExitStatus = resp.ExitStatus
	if resp.Err != nil {
		cmd.ExitStatus = -1
	}
	m.Commands = append(m.Commands, cmd)
	return resp, nil
}

func (m *MockExecutor) lookup(argv []string) MockResponse {
	best, bestLen := m.DefaultResponse, -1
	for pattern, resp := range m.Responses {
		fields := strings.Fields(pattern)
		if len(fields) > len(argv) || len(fields) <= bestLen {
			continue
		}
		match := true
		for i, f := range fields {
			if argv[i] != f {
				match = false
				break
			}
		}
		if match {
			best, bestLen = resp, len(fields)
		}
	}
	return best
}

func (m *MockExecutor) Run(ctx context.Context, p *Process) (int, error) {
	if len(p.Argv) == 0 {
		return -1, errors.New("empty argv")
	}
	resp, err := m.record(p)
	if err != nil {
		return -1, err
	}
	if resp.Err != nil {
		return -1, resp.Err
	}
	if p.Stdout != nil && len(resp.Output) > 0 {
		if _, err := p.Stdout.Write(resp.Output); err != nil {
			return -1, err
		}
	}
	if p.Stderr != nil && len(resp.Stderr) > 0 {
		if _, err := p.Stderr.Write(resp.Stderr); err != nil {
			return -1, err
		}
	}
	return resp.ExitStatus, nil
}

// LastCommand returns the most recently executed command.
func (m *MockExecutor) LastCommand() (MockCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return MockCommand{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// Argvs returns the argv of every recorded command.
func (m *MockExecutor) Argvs() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.Commands))
	for i, c := range m.Commands {
		out[i] = c.Argv
	}
	return out
}

// Reset clears all recorded commands.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make([]MockCommand, 0)
}
