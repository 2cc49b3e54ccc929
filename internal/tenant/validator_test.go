package tenant

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestValidateVerdicts(t *testing.T) {
	v, err := NewValidator(Config{Inline: []string{"acme", "globex"}}, zaptest.NewLogger(t))
	require.NoError(t, err)

	tests := []struct {
		name     string
		id       string
		expected Verdict
	}{
		{"known tenant", "acme", VerdictOK},
		{"second known tenant", "globex", VerdictOK},
		{"empty id", "", VerdictMissing},
		{"whitespace is malformed", "ac me", VerdictMalformed},
		{"symbols are malformed", "acme!", VerdictMalformed},
		{"overlong id is malformed", string(make([]byte, 65)), VerdictMalformed},
		{"unlisted tenant", "initech", VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.Validate(tt.id))
		})
	}
}

func TestDevBypassOnlyWhenEmpty(t *testing.T) {
	empty, err := NewValidator(Config{DevBypass: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, VerdictOK, empty.Validate("anyone"))

	populated, err := NewValidator(Config{Inline: []string{"acme"}, DevBypass: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, VerdictUnknown, populated.Validate("anyone"))
}

func TestProductionNeverBypasses(t *testing.T) {
	v, err := NewValidator(Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, VerdictUnknown, v.Validate("anyone"))
}

func TestFileFormats(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"json array", `["acme", "globex"]`},
		{"yaml sequence", "- acme\n- globex\n"},
		{"newline tokens", "acme\nglobex\n"},
		{"comma tokens", "acme, globex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tenants")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			v, err := NewValidator(Config{Path: path}, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.Equal(t, VerdictOK, v.Validate("acme"))
			assert.Equal(t, VerdictOK, v.Validate("globex"))
			assert.Equal(t, VerdictUnknown, v.Validate("initech"))
		})
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.json")
	require.NoError(t, os.WriteFile(path, []byte(`["acme"]`), 0o644))

	v, err := NewValidator(Config{Path: path, Refresh: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, VerdictUnknown, v.Validate("globex"))

	// Rewrite the file with a future mtime and move the clock past the
	// refresh interval.
	require.NoError(t, os.WriteFile(path, []byte(`["acme", "globex"]`), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
	v.now = func() time.Time { return time.Now().Add(2 * time.Second) }

	assert.Equal(t, VerdictOK, v.Validate("globex"))
	assert.Equal(t, 2, v.Known())
}

func TestReloadSkippedInsideInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.json")
	require.NoError(t, os.WriteFile(path, []byte(`["acme"]`), 0o644))

	v, err := NewValidator(Config{Path: path, Refresh: time.Hour}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`["acme", "globex"]`), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	// Within the refresh window the stale set still answers.
	assert.Equal(t, VerdictUnknown, v.Validate("globex"))
}

func TestReloadKeepsPreviousSetOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.json")
	require.NoError(t, os.WriteFile(path, []byte(`["acme"]`), 0o644))

	v, err := NewValidator(Config{Path: path, Refresh: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	v.now = func() time.Time { return time.Now().Add(2 * time.Second) }

	assert.Equal(t, VerdictOK, v.Validate("acme"))
}

func TestMissingFileIsStartupError(t *testing.T) {
	_, err := NewValidator(Config{Path: "/nonexistent/tenants.json"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
