package audit

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readEntries(t *testing.T, dir string) []Entry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, FileName))
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	return entries
}

func TestLogSentinelUsageFullEntry(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, 8, zap.NewNop().Sugar())

	req, err := http.NewRequest(http.MethodGet, "/api/v1/users/admin/projects", nil)
	require.NoError(t, err)
	req.Header.Set("X-Real-IP", "9.9.9.9")
	req.Header.Set("User-Agent", "test-agent")

	l.LogSentinelUsage(req, SentinelInfo{
		Action:         "sentinel_user_resolved",
		InputUserID:    "admin",
		ResolvedUserID: "7",
	})
	l.Close()

	entries := readEntries(t, dir)
	require.Len(t, entries, 1)
	e := entries[0]

	assert.Equal(t, "sentinel_user_resolved", e.Action)
	require.NotNil(t, e.Route)
	assert.Equal(t, "/api/v1/users/admin/projects", *e.Route)
	require.NotNil(t, e.Method)
	assert.Equal(t, "GET", *e.Method)
	require.NotNil(t, e.IP)
	assert.Equal(t, "9.9.9.9", *e.IP)
	require.NotNil(t, e.UserAgent)
	assert.Equal(t, "test-agent", *e.UserAgent)
	require.NotNil(t, e.InputUserID)
	assert.Equal(t, "admin", *e.InputUserID)
	require.NotNil(t, e.ResolvedUserID)
	assert.Equal(t, "7", *e.ResolvedUserID)

	_, err = time.Parse(time.RFC3339, e.Time)
	assert.NoError(t, err)
}

func TestLogSentinelUsageMissingFieldsAreNull(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, 8, zap.NewNop().Sugar())

	// No headers, no remote address, no sentinel info.
	req, err := http.NewRequest(http.MethodGet, "/whoami", nil)
	require.NoError(t, err)

	l.LogSentinelUsage(req, SentinelInfo{})
	l.Close()

	entries := readEntries(t, dir)
	require.Len(t, entries, 1)
	e := entries[0]

	assert.Equal(t, "sentinel_user_resolved", e.Action)
	assert.Nil(t, e.IP)
	assert.Nil(t, e.UserAgent)
	assert.Nil(t, e.InputUserID)
	assert.Nil(t, e.ResolvedUserID)

	_, err = time.Parse(time.RFC3339, e.Time)
	assert.NoError(t, err)
}

func TestLogSentinelUsageNilRequest(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, 8, nil)

	l.LogSentinelUsage(nil, SentinelInfo{InputUserID: "admin"})
	l.Close()

	entries := readEntries(t, dir)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Route)
	assert.Nil(t, entries[0].Method)
	require.NotNil(t, entries[0].InputUserID)
	assert.Equal(t, "admin", *entries[0].InputUserID)
}

func TestCloseFlushesQueuedEntries(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, 32, zap.NewNop().Sugar())

	for i := 0; i < 10; i++ {
		l.LogSentinelUsage(nil, SentinelInfo{Action: "flush_check"})
	}
	l.Close()
	// Close is idempotent.
	l.Close()

	entries := readEntries(t, dir)
	assert.Len(t, entries, 10)
}

func TestJSONLinesShape(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, 8, nil)
	l.LogSentinelUsage(nil, SentinelInfo{})
	l.Close()

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b[:len(b)-1], &raw))
	for _, key := range []string{"time", "action", "route", "method", "ip", "userAgent", "inputUserId", "resolvedUserId"} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, byte('\n'), b[len(b)-1])
}
