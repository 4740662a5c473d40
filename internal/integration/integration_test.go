package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/fanout/internal/config"
	"github.com/aryankumar/fanout/internal/executor"
	"github.com/aryankumar/fanout/internal/objectid"
	"github.com/aryankumar/fanout/internal/sink"
	"github.com/aryankumar/fanout/internal/status"
	"github.com/aryankumar/fanout/internal/units"
	"github.com/aryankumar/fanout/internal/util"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// writeConfig stores a config file pointing the local sink at a temp dir
func writeConfig(t *testing.T, parallel int, chunkSize int64) (string, string) {
	t.Helper()

	dir := t.TempDir()
	chunks := filepath.Join(dir, "chunks")
	cfgFile := filepath.Join(dir, "config.yaml")

	content := fmt.Sprintf(`defaults:
  parallel: %d
  timeout: 10s
sink:
  type: local
  localDir: %s
reader:
  chunkSize: %d
  skipHeader: true
`, parallel, chunks, chunkSize)

	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o600))
	return cfgFile, chunks
}

// writeInput creates a CSV file with a header and n rows
func writeInput(t *testing.T, n int) (string, string) {
	t.Helper()

	var body strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&body, "%d,event-%d,%s\n", i, i, strings.Repeat("x", i%13))
	}

	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name,payload\n"+body.String()), 0o600))
	return path, body.String()
}

func readObject(t *testing.T, driver sink.Driver, id objectid.ID) []byte {
	t.Helper()

	rc, err := driver.Get(context.Background(), id)
	require.NoError(t, err, "failed to get %s", id)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err, "failed to read %s", id)
	return data
}

// TestFullWorkflow tests the path from config loading to the reported status line
func TestFullWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, parallel := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("parallel=%d", parallel), func(t *testing.T) {
			cfgFile, chunkDir := writeConfig(t, parallel, 256)
			input, wantBody := writeInput(t, 200)
			logger := quietLogger()

			manager := config.NewManager(cfgFile)
			cfg, err := manager.Load()
			require.NoError(t, err, "failed to load config")
			require.NoError(t, cfg.Validate(), "config should be valid")

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Defaults.Timeout)
			defer cancel()

			driver, err := sink.New(ctx, cfg.Sink, logger)
			require.NoError(t, err, "failed to create sink")
			assert.Equal(t, "local", driver.Name())

			pool, err := units.Default().Build(units.KindReadBytes, units.Options{
				Parallelism: cfg.Defaults.Parallel,
				Path:        input,
				ChunkSize:   cfg.Reader.ChunkSize,
				SkipHeader:  cfg.Reader.SkipHeader,
				Sink:        driver,
				Logger:      logger,
			})
			require.NoError(t, err, "failed to build pool")

			values, err := pool.Execute(ctx)
			require.NoError(t, err, "execution failed")
			require.Len(t, values, parallel)

			// Reassemble the input from the chunks, in partition order
			var got bytes.Buffer
			var lines int64
			for i, v := range values {
				part, ok := v.(*units.Partition)
				require.True(t, ok, "value %d is %T, want *units.Partition", i, v)
				assert.Equal(t, i, part.Index, "value %d carries the wrong partition", i)

				for _, id := range part.Chunks {
					got.Write(readObject(t, driver, id))
				}
				lines += part.Lines

				var manifest units.Partition
				require.NoError(t, json.Unmarshal(readObject(t, driver, part.Stream), &manifest),
					"manifest of partition %d is not valid JSON", i)
				assert.Len(t, manifest.Chunks, len(part.Chunks), "manifest of partition %d", i)
			}

			assert.Equal(t, wantBody, got.String(), "reassembled chunks should match the input without its header")
			assert.EqualValues(t, 200, lines)

			entries, err := os.ReadDir(chunkDir)
			require.NoError(t, err)
			assert.NotEmpty(t, entries, "expected chunks under %s", chunkDir)

			// Report and read back the status line
			var out bytes.Buffer
			require.NoError(t, status.NewReporter(&out).Success(values))

			messages, diagnostics, err := status.ReadAll(&out)
			require.NoError(t, err, "failed to decode status")
			assert.Empty(t, diagnostics)
			require.Len(t, messages, 1)
			require.False(t, messages[0].IsError(), "expected a return message, got %+v", messages[0])

			content, ok := messages[0].Content.([]interface{})
			require.True(t, ok, "content is %T", messages[0].Content)
			require.Len(t, content, parallel)

			for i, item := range content {
				stream := item.(map[string]interface{})["stream"].(string)
				id, err := objectid.Parse(stream)
				if assert.NoError(t, err, "partition %d stream %q is not an object id", i, stream) {
					assert.Equal(t, values[i].(*units.Partition).Stream, id, "partition %d stream", i)
				}
			}
		})
	}
}

// TestWorkflowWithFailures tests that a broken input is reported as one error line
func TestWorkflowWithFailures(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, err := units.Default().Build(units.KindReadBytes, units.Options{
		Parallelism: 4,
		Path:        filepath.Join(t.TempDir(), "missing.csv"),
		ChunkSize:   config.DefaultChunkSize,
		Sink:        sink.NewMemory(),
		Logger:      quietLogger(),
	})
	require.NoError(t, err, "failed to build pool")

	_, err = pool.Execute(context.Background())
	require.Error(t, err, "expected execution to fail on a missing input")
	assert.Equal(t, 0, executor.UnitIndex(err), "expected the lowest failing unit")

	results := pool.Results()
	require.Len(t, results, 4)
	assert.Equal(t, 4, executor.Summarize(results).Failed)

	var out bytes.Buffer
	require.NoError(t, status.NewReporter(&out).Exception(err))

	msg, err := status.Decode(bytes.TrimRight(out.Bytes(), "\n"))
	require.NoError(t, err, "failed to decode error line")
	require.True(t, msg.IsError(), "expected an error message, got %s", msg.Type)
	assert.Contains(t, msg.Text(), "read-bytes unit 0", "error should name the failing unit")
}

// TestWorkflowCancellation tests that cancelling the context stops slow units
func TestWorkflowCancellation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, err := units.Default().Build(units.KindEcho, units.Options{
		Parallelism: 16,
		MaxDelay:    time.Hour,
		Logger:      quietLogger(),
	})
	require.NoError(t, err, "failed to build pool")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err = pool.Execute(ctx)
	require.Error(t, err, "expected cancellation error")
	assert.True(t, util.IsCancelled(err), "expected a cancellation error, got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second, "cancellation took too long")
	assert.False(t, pool.IsRunning(), "pool should not be running after Execute returns")
}
