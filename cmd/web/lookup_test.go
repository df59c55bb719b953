package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_CONFIG", "")
	t.Cleanup(func() {
		backendOrigin = ""
		lookupToken = ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLookupCharacterPrintsOutput(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = r.URL.Path + " " + string(body)
		_, _ = io.WriteString(w, `{"name":"Rex"}`)
	}))
	defer srv.Close()

	out, err := runCLI(t, "--backend", srv.URL, "lookup", "character", "REX")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"Rex\"\n}\n", out)
	assert.Equal(t, `/characters {"charId":"REX"}`, got)
}

func TestLookupAccountFailure(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	out, err := runCLI(t, "--backend", srv.URL, "lookup", "account", "--token", "abc", "123")
	require.Error(t, err)
	assert.Equal(t, "The API answered with status 401.", err.Error())
	assert.Empty(t, out)
	assert.Equal(t, "Bearer abc", auth)
}

func TestLookupRequiresArgument(t *testing.T) {
	_, err := runCLI(t, "lookup", "character")
	assert.Error(t, err)
}
