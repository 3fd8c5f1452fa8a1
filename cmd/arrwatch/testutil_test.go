package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrwatch/internal/database"
	"github.com/vmunix/arrwatch/internal/registry"
)

// mockServer creates an httptest.Server with common test patterns.
type mockServer struct {
	t           *testing.T
	server      *httptest.Server
	handler     http.HandlerFunc
	expectPath  string
	expectMeth  string
	expectQuery map[string]string
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	return &mockServer{t: t}
}

// ExpectPath sets the expected request path and verifies it in the handler.
func (m *mockServer) ExpectPath(path string) *mockServer {
	m.expectPath = path
	return m
}

func (m *mockServer) ExpectGET() *mockServer {
	m.expectMeth = http.MethodGet
	return m
}

func (m *mockServer) ExpectPOST() *mockServer {
	m.expectMeth = http.MethodPost
	return m
}

// ExpectQuery verifies a query parameter. An empty value asserts absence.
func (m *mockServer) ExpectQuery(name, value string) *mockServer {
	if m.expectQuery == nil {
		m.expectQuery = make(map[string]string)
	}
	m.expectQuery[name] = value
	return m
}

// Handler sets a custom handler, run after the request checks.
func (m *mockServer) Handler(h http.HandlerFunc) *mockServer {
	m.handler = h
	return m
}

// RespondJSON responds with JSON-encoded data and status code.
func (m *mockServer) RespondJSON(code int, v any) *mockServer {
	m.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			m.t.Errorf("failed to encode JSON response: %v", err)
		}
	}
	return m
}

// RespondError responds like the daemon's error writer.
func (m *mockServer) RespondError(code int, errCode, message string) *mockServer {
	return m.RespondJSON(code, map[string]string{"error": message, "code": errCode})
}

// Build creates the httptest.Server; it is closed when the test ends.
func (m *mockServer) Build() *httptest.Server {
	m.t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.expectPath != "" {
			assert.Equal(m.t, m.expectPath, r.URL.Path, "unexpected request path")
		}
		if m.expectMeth != "" {
			assert.Equal(m.t, m.expectMeth, r.Method, "unexpected request method")
		}
		for k, v := range m.expectQuery {
			assert.Equal(m.t, v, r.URL.Query().Get(k), "query %s", k)
		}
		if m.handler != nil {
			m.handler(w, r)
		}
	})

	m.server = httptest.NewServer(handler)
	m.t.Cleanup(m.server.Close)
	return m.server
}

// execute runs the root command with args and returns its output. Global
// flag variables are restored afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	oldServer, oldConfig, oldJSON := serverURL, configPath, jsonOutput
	t.Cleanup(func() {
		serverURL, configPath, jsonOutput = oldServer, oldConfig, oldJSON
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeTestConfig writes a config whose database lives in a temp dir.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "version = 1\n\n[database]\npath = \"" + filepath.ToSlash(filepath.Join(dir, "arrwatch.db")) + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func setupTestRegistry(t *testing.T) *registry.Store {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return registry.NewStore(db)
}
