package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSigninStoresTokenForLaterCommands(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signin", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"tok-123","expiresIn":3600}`))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"email":"alice@example.com","role":"viewer"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := runCLI(t, "whoami", "--api", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")

	out, err := runCLI(t, "signin", "--api", srv.URL, "--email", "alice@example.com", "--password", "Str0ng!Pass")
	require.NoError(t, err)
	assert.Contains(t, out, "1h0m0s")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.AccessToken)

	out, err = runCLI(t, "whoami", "--api", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com (id 1, role viewer)\n", out)
}
