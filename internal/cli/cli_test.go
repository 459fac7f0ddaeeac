package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beanhealth/internal/domain"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BACKEND_URL", "")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"config", "server"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "string", flag.Value.Type())
	}

	submit, _, err := cmd.Find([]string{"submit"})
	require.NoError(t, err)
	for _, name := range []string{"name", "email", "looking-for"} {
		assert.NotNil(t, submit.Flags().Lookup(name), name)
	}
}

func TestSubmitSuccess(t *testing.T) {
	var got domain.DemoRequestDraft
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/demo-request", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"req-42","name":"Dr. John Doe","email":"john@hospital.com","lookingFor":"Need a demo for nephrology dept","timestamp":"2026-03-14T09:30:00Z"}}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "submit", "--server", srv.URL,
		"--name", "Dr. John Doe",
		"--email", "john@hospital.com",
		"--looking-for", "Need a demo for nephrology dept",
	)

	require.NoError(t, err)
	assert.Equal(t, "john@hospital.com", got.Email)
	assert.Contains(t, out, "✓ Demo Request Submitted!")
	assert.Contains(t, out, "Our team will contact you within 24 hours.")
	assert.Contains(t, out, "Reference: req-42")
	assert.Contains(t, out, "2026-03-14 09:30:00 UTC")
}

func TestSubmitFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"internal server error"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "submit", "--server", srv.URL,
		"--name", "Dr. John Doe",
		"--email", "john@hospital.com",
		"--looking-for", "Need a demo",
	)

	require.ErrorIs(t, err, errSubmitted)
	assert.Contains(t, out, "✗ Error")
	assert.Contains(t, out, "Failed to submit demo request. Please try again.")
	assert.NotContains(t, out, "internal server error")
}

func TestSubmitBlockedMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	out, err := runCLI(t, "submit", "--server", srv.URL, "--name", "Dr. John Doe", "--looking-for", "   ")

	require.ErrorIs(t, err, errBlocked)
	assert.Zero(t, hits.Load())
	assert.Contains(t, out, "Missing: --email, --looking-for")
}

func TestSubmitRejectsBadServerURL(t *testing.T) {
	_, err := runCLI(t, "submit", "--server", "ftp://example.com", "--name", "a", "--email", "b", "--looking-for", "c")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "BeanHealth demo CLI")
	assert.Contains(t, out, "Version:    dev")
}
