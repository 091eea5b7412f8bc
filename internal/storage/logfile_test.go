package storage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestLogFile_AppendCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "requests.log")
	lf, err := OpenLogFile(LogFileConfig{Path: path})
	require.NoError(t, err)

	require.NoError(t, lf.Append("first\n"))
	require.NoError(t, lf.Append("second"))
	require.NoError(t, lf.Close())

	assert.Equal(t, []string{"first", "second"}, readLines(t, path))
}

func TestLogFile_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o640))

	lf, err := OpenLogFile(LogFileConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, lf.Append("new"))
	require.NoError(t, lf.Close())

	assert.Equal(t, []string{"old", "new"}, readLines(t, path))
}

func TestLogFile_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	for _, rotate := range []int{0, 10} {
		t.Run(fmt.Sprintf("max_size_%d", rotate), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "requests.log")
			lf, err := OpenLogFile(LogFileConfig{Path: path, MaxSizeMB: rotate})
			require.NoError(t, err)

			const writers, perWriter = 16, 50
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						line := fmt.Sprintf("writer-%02d line-%03d %s", w, i, strings.Repeat("x", 200))
						assert.NoError(t, lf.Append(line))
					}
				}(w)
			}
			wg.Wait()
			require.NoError(t, lf.Close())

			lines := readLines(t, path)
			require.Len(t, lines, writers*perWriter)
			for _, l := range lines {
				assert.True(t, strings.HasPrefix(l, "writer-"), "mangled line %q", l)
				assert.Len(t, l, len("writer-00 line-000 ")+200)
			}
		})
	}
}

func TestLogFile_AppendAfterClose(t *testing.T) {
	lf, err := OpenLogFile(LogFileConfig{Path: filepath.Join(t.TempDir(), "a.log")})
	require.NoError(t, err)
	require.NoError(t, lf.Close())
	assert.Error(t, lf.Append("late"))
	assert.NoError(t, lf.Close())
}

func TestOpenLogFile_EmptyPath(t *testing.T) {
	_, err := OpenLogFile(LogFileConfig{})
	assert.Error(t, err)
}

type recordingWriter struct {
	writes []string
	err    error
	closed bool
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewLogFile_OneWritePerLine(t *testing.T) {
	w := &recordingWriter{}
	lf := NewLogFile(w)

	require.NoError(t, lf.Append("first"))
	require.NoError(t, lf.Append("second\n"))
	require.NoError(t, lf.Close())

	assert.Equal(t, []string{"first\n", "second\n"}, w.writes)
	assert.True(t, w.closed)
}

func TestNewLogFile_WriteErrorIsReturned(t *testing.T) {
	diskFull := errors.New("no space left on device")
	lf := NewLogFile(&recordingWriter{err: diskFull})

	assert.ErrorIs(t, lf.Append("line"), diskFull)
}
