package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "batch.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_RecordAndSeen(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	seen, err := j.Seen(ctx, "THTT2025060001.pdf", "abc123")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, j.Record(ctx, Entry{
		Filename:      "THTT2025060001.pdf",
		Checksum:      "abc123",
		Status:        "ok",
		Platform:      "TikTokAds",
		InvoiceType:   "Attributed",
		ItemCount:     2,
		ComputedTotal: "22550.72",
	}))

	seen, err = j.Seen(ctx, "THTT2025060001.pdf", "abc123")
	require.NoError(t, err)
	assert.True(t, seen)

	// Same file, different content: not seen.
	seen, err = j.Seen(ctx, "THTT2025060001.pdf", "def456")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestJournal_FailedEntryIsRetryable(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, Entry{
		Filename: "5298528895.pdf", Checksum: "aaa", Status: "failed", Error: "ocr timeout",
	}))

	seen, err := j.Seen(ctx, "5298528895.pdf", "aaa")
	require.NoError(t, err)
	assert.False(t, seen)

	// The retry overwrites the failed entry.
	require.NoError(t, j.Record(ctx, Entry{
		Filename: "5298528895.pdf", Checksum: "aaa", Status: "ok", ItemCount: 1,
	}))

	seen, err = j.Seen(ctx, "5298528895.pdf", "aaa")
	require.NoError(t, err)
	assert.True(t, seen)

	ok, failed, err := j.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, failed)
}

func TestJournal_Summary(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, Entry{Filename: "a.pdf", Checksum: "1", Status: "ok"}))
	require.NoError(t, j.Record(ctx, Entry{Filename: "b.pdf", Checksum: "2", Status: "ok"}))
	require.NoError(t, j.Record(ctx, Entry{Filename: "c.pdf", Checksum: "3", Status: "failed", Error: "empty input"}))

	ok, failed, err := j.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
}
