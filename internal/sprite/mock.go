package sprite

import (
	"context"
	"io"
	"sync"
)

// MockClient implements Client in memory. It records calls and serves a
// scripted Execute so the sprite agent can be tested without a VM.
type MockClient struct {
	mu sync.Mutex

	files       map[string][]byte
	existing    map[string]bool
	executeFunc func(ctx context.Context, name string, dir string, env []string, args ...string) (*Cmd, error)
	existsErr   error
	createErr   error

	createCalls  []MockCreateCall
	executeCalls []MockExecuteCall
	writeCalls   []MockWriteCall
}

// MockCreateCall records a Create call.
type MockCreateCall struct {
	Name       string
	Checkpoint string
}

// MockExecuteCall records an Execute call.
type MockExecuteCall struct {
	Name string
	Dir  string
	Env  []string
	Args []string
}

// MockWriteCall records a WriteFile call.
type MockWriteCall struct {
	Name    string
	Path    string
	Content []byte
}

// NewMockClient returns a MockClient with no sprites.
func NewMockClient() *MockClient {
	return &MockClient{
		files:    make(map[string][]byte),
		existing: make(map[string]bool),
	}
}

// Create records the call and marks the sprite as existing.
func (m *MockClient) Create(ctx context.Context, name string, checkpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls = append(m.createCalls, MockCreateCall{Name: name, Checkpoint: checkpoint})
	if m.createErr != nil {
		return m.createErr
	}
	m.existing[name] = true
	return nil
}

// Execute records the call and runs the scripted function. Without one it
// returns an empty, successful command.
func (m *MockClient) Execute(ctx context.Context, name string, dir string, env []string, args ...string) (*Cmd, error) {
	m.mu.Lock()
	m.executeCalls = append(m.executeCalls, MockExecuteCall{Name: name, Dir: dir, Env: env, Args: args})
	fn := m.executeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, name, dir, env, args...)
	}
	return NewCmd("", "", 0), nil
}

// WriteFile records the call and stores content.
func (m *MockClient) WriteFile(ctx context.Context, name string, path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls = append(m.writeCalls, MockWriteCall{Name: name, Path: path, Content: content})
	m.files[path] = content
	return nil
}

// ReadFile returns stored content or io.EOF.
func (m *MockClient) ReadFile(ctx context.Context, name string, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if content, ok := m.files[path]; ok {
		return content, nil
	}
	return nil, io.EOF
}

// Delete forgets the sprite.
func (m *MockClient) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.existing, name)
	return nil
}

// Exists reports whether Create (or SetExists) has been called for name.
func (m *MockClient) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.existing[name], nil
}

// SetExecuteFunc scripts Execute.
func (m *MockClient) SetExecuteFunc(fn func(ctx context.Context, name string, dir string, env []string, args ...string) (*Cmd, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executeFunc = fn
}

// SetExists marks a sprite as present.
func (m *MockClient) SetExists(name string, exists bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existing[name] = exists
}

// SetExistsError makes Exists fail.
func (m *MockClient) SetExistsError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsErr = err
}

// SetCreateError makes Create fail.
func (m *MockClient) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

// CreateCalls returns a copy of the recorded Create calls.
func (m *MockClient) CreateCalls() []MockCreateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCreateCall(nil), m.createCalls...)
}

// ExecuteCalls returns a copy of the recorded Execute calls.
func (m *MockClient) ExecuteCalls() []MockExecuteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockExecuteCall(nil), m.executeCalls...)
}

// WriteCalls returns a copy of the recorded WriteFile calls.
func (m *MockClient) WriteCalls() []MockWriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockWriteCall(nil), m.writeCalls...)
}

var _ Client = (*MockClient)(nil)
