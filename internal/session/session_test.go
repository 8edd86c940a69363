package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveCreatesDataDirLayout(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("ECHOFLUX_DATA_DIR", tmp)

	paths, err := Resolve()
	require.NoError(t, err)
	require.Equal(t, tmp, paths.DataDir)
	require.Equal(t, filepath.Join(tmp, "models"), paths.ModelsDir)
	require.Equal(t, filepath.Join(tmp, "logs"), paths.LogsDir)

	for _, dir := range []string{paths.DataDir, paths.ModelsDir, paths.LogsDir} {
		info, statErr := os.Stat(dir)
		require.NoError(t, statErr)
		require.True(t, info.IsDir())
	}
}

func TestLogFileNameFormat(t *testing.T) {
	ts := time.Date(2026, 7, 29, 14, 5, 3, 0, time.UTC)
	require.Equal(t, "session_20260729_140503.log", logFileName(ts))
}
