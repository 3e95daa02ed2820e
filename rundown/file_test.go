package rundown

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "rundown.json")

	r := threeSegmentRundown(t)
	r.SetAnchor(time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC))
	require.NoError(t, r.UpdateField(1, FieldActive, "false"))
	require.NoError(t, r.MarkRewritten(2, "Rewritten copy"))
	NewScheduler(fixedClock(noon), time.UTC, nil).Schedule(r)

	require.NoError(t, SaveFile(path, r))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadFile(path, DefaultSegmentDefaults())
	require.NoError(t, err)
	assert.Equal(t, r.Segments(), loaded.Segments())

	_, ok := loaded.Anchor()
	assert.False(t, ok, "the anchor is not persisted")
}

// TestLoadFile_AnchorsOnLastBacktime verifies a loaded rundown, which has no
// remembered anchor, counts back from its last backtime text and is stable
// from then on
func TestLoadFile_AnchorsOnLastBacktime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rundown.json")

	r := threeSegmentRundown(t)
	r.SetAnchor(time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC))
	s := NewScheduler(fixedClock(noon), time.UTC, nil)
	s.Schedule(r)
	require.NoError(t, SaveFile(path, r))

	loaded, err := LoadFile(path, DefaultSegmentDefaults())
	require.NoError(t, err)

	res := s.Schedule(loaded)
	assert.Equal(t, time.Date(2024, 3, 1, 17, 59, 0, 0, time.UTC), res.Anchor)
	assert.Equal(t, "05:56:45 PM", res.Headline)
	assert.Equal(t, []string{"05:56 PM", "05:57 PM", "05:58 PM"}, backtimes(loaded))

	again := s.Schedule(loaded)
	assert.Equal(t, res.Starts, again.Starts)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"), DefaultSegmentDefaults())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncode_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, New(DefaultSegmentDefaults())))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))

	buf.Reset()
	r := createTestRundown(t, 1)
	require.NoError(t, Encode(&buf, r))

	out := buf.String()
	assert.Contains(t, out, `"title": "Story 1"`)
	assert.Contains(t, out, `"pub_date": "2024-01-15T10:00:00Z"`)
	assert.Contains(t, out, `"teleprompter_text": "Summary 1"`)
	assert.Contains(t, out, `"duration": "00:30"`)
	assert.Contains(t, out, `"active": true`)
	assert.Contains(t, out, `"image_url": null`)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"not": "a list"}`), DefaultSegmentDefaults())
	assert.Error(t, err)
}

// TestDecode_AppendsAfterLoaded verifies new segments continue the loaded
// order sequence and respect loaded links
func TestDecode_AppendsAfterLoaded(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, createTestRundown(t, 2)))

	r, err := Decode(&buf, DefaultSegmentDefaults())
	require.NoError(t, err)

	assert.False(t, r.Append(testStory(2)))
	require.True(t, r.Append(testStory(3)))

	seg, err := r.At(2)
	require.NoError(t, err)
	assert.Equal(t, 2, seg.Order)
	assert.Equal(t, "00:30", seg.Duration)
}
