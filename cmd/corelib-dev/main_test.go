package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skymfe/corelib/auth"
	"github.com/skymfe/corelib/internal/devserver"
)

func newBackend(t *testing.T, opts ...devserver.Option) string {
	t.Helper()
	opts = append(opts, devserver.WithUsers(
		devserver.User{ID: 1, Name: "Ada"},
		devserver.User{ID: 2, Name: "Grace", Locked: true},
	))
	srv := httptest.NewServer(devserver.New(opts...))
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CORELIB_ENVIRONMENT", "testing")
	t.Setenv("CORELIB_TOKEN", "")
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLI_Query(t *testing.T) {
	url := newBackend(t, devserver.WithLatency(20*time.Millisecond))

	out, err := run(t, "query", "--base-url", url, "--refetch", "1", "/users/1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "query    loading=true data=null err=<nil>", lines[0])
	assert.Equal(t, `query    loading=false data={"id":1,"name":"Ada"} err=<nil>`, lines[1])
	assert.Equal(t, `query    loading=true data={"id":1,"name":"Ada"} err=<nil>`, lines[2])
	assert.Equal(t, `query    loading=false data={"id":1,"name":"Ada"} err=<nil>`, lines[3])
}

func TestCLI_QueryNotFound(t *testing.T) {
	url := newBackend(t)

	out, err := run(t, "query", "--base-url", url, "/users/42")
	require.Error(t, err)
	assert.Contains(t, out, "query    loading=true data=null err=<nil>")
	assert.Contains(t, out, "query    loading=false data=null err=GET /users/42: HTTP 404")
}

func TestCLI_MutateCreate(t *testing.T) {
	url := newBackend(t, devserver.WithToken("secret"))
	tok, err := auth.IssueToken("dev", []byte("k"), time.Hour)
	require.NoError(t, err)

	out, err := run(t, "mutate", "--base-url", url, "--token", tok, "--data", `{"name":"Linus"}`, "/users")
	// The server expects its shared secret, not a signed token.
	require.Error(t, err)
	assert.Contains(t, out, "mutate   loading=true data=null err=<nil>")
	assert.Contains(t, out, "401")

	url = newBackend(t)
	out, err = run(t, "mutate", "--base-url", url, "--token", tok, "--data", `{"name":"Linus"}`, "/users")
	require.NoError(t, err)
	assert.Contains(t, out, `mutate   loading=false data={"id":3,"name":"Linus"} err=<nil>`)
}

func TestCLI_MutateDeleteLocked(t *testing.T) {
	url := newBackend(t)

	out, err := run(t, "mutate", "--base-url", url, "-X", "delete", "/users/2")
	require.Error(t, err)
	assert.Contains(t, out, "409")
}

func TestCLI_MutateRejectsBadJSON(t *testing.T) {
	_, err := run(t, "mutate", "--data", "{", "/users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestCLI_Auth(t *testing.T) {
	out, err := run(t, "auth")
	require.NoError(t, err)
	assert.Equal(t, "Auth Status: Not Authenticated\n", out)

	tok, err := auth.IssueToken("dev", []byte("k"), time.Hour)
	require.NoError(t, err)
	out, err = run(t, "auth", "--token", tok)
	require.NoError(t, err)
	assert.Equal(t, "Auth Status: Authenticated\n", out)

	expired, err := auth.IssueToken("dev", []byte("k"), -time.Minute)
	require.NoError(t, err)
	out, err = run(t, "auth", "--token", expired)
	require.NoError(t, err)
	assert.Equal(t, "Auth Status: Not Authenticated\n", out)
}

func TestCLI_AuthIssue(t *testing.T) {
	out, err := run(t, "auth", "issue", "--secret", "k", "--ttl", "1m")
	require.NoError(t, err)

	src, err := auth.NewTokenSource(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.True(t, src.CurrentFlag())

	_, err = run(t, "auth", "issue")
	require.Error(t, err)
}

func TestCLI_DebugRefusedInProduction(t *testing.T) {
	t.Setenv("CORELIB_ENVIRONMENT", "production")
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"auth", "--debug"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")
}
