package rundown

import (
	"fmt"
	"testing"
	"time"

	"github.com/pevans/newsdesk/ingest"
	"github.com/pevans/newsdesk/timecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: build a story with a distinct link
func testStory(n int) ingest.Story {
	return ingest.Story{
		Title:           fmt.Sprintf("Story %d", n),
		Link:            fmt.Sprintf("http://example.com/story/%d", n),
		Summary:         fmt.Sprintf("Summary %d", n),
		OriginalSummary: fmt.Sprintf("Summary %d", n),
		Source:          "Test Feed",
		Category:        ingest.CategoryOther,
		PublishedAt:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

// Test helper: create a rundown holding n stories
func createTestRundown(t *testing.T, n int) *Rundown {
	t.Helper()
	r := New(DefaultSegmentDefaults())
	for i := 1; i <= n; i++ {
		require.True(t, r.Append(testStory(i)))
	}
	return r
}

func titles(r *Rundown) []string {
	var out []string
	for _, s := range r.Segments() {
		out = append(out, s.Title)
	}
	return out
}

// TestAppend_AppliesDefaults verifies a story becomes a segment with stock
// settings
func TestAppend_AppliesDefaults(t *testing.T) {
	r := New(DefaultSegmentDefaults())
	story := testStory(1)

	require.True(t, r.Append(story))
	seg, err := r.At(0)
	require.NoError(t, err)

	assert.Equal(t, story, seg.Story)
	assert.Equal(t, SegmentID(story.Link, story.Title), seg.ID)
	assert.Equal(t, "00:30", seg.Duration)
	assert.True(t, seg.Active)
	assert.Equal(t, "", seg.Backtime)
	assert.Equal(t, story.Summary, seg.TeleprompterText)
	assert.Equal(t, "Default Narrator", seg.Profile)
	assert.Equal(t, "Standard", seg.Style)
	assert.Equal(t, "Objective", seg.Tone)
	assert.Equal(t, "Standard", seg.Length)
	assert.Equal(t, 0, seg.Order)
}

// TestAppend_RejectsDuplicateLink verifies a repeated link is not added
func TestAppend_RejectsDuplicateLink(t *testing.T) {
	r := createTestRundown(t, 2)

	dup := testStory(1)
	dup.Title = "Reissued headline"
	assert.False(t, r.Append(dup))
	assert.Equal(t, 2, r.Len())

	// Link comparison ignores case in the host and a trailing slash.
	dup.Link = "http://EXAMPLE.com/story/1/"
	assert.False(t, r.Append(dup))
	assert.Equal(t, 2, r.Len())
}

// TestAppend_RejectsDuplicateID verifies the same link-less story is
// detected by id
func TestAppend_RejectsDuplicateID(t *testing.T) {
	r := New(DefaultSegmentDefaults())
	story := ingest.Story{Title: "No link", Link: ingest.NoLink}

	assert.True(t, r.Append(story))
	assert.False(t, r.Append(story))

	// Different link-less stories do not collide on "#".
	assert.True(t, r.Append(ingest.Story{Title: "Other", Link: ingest.NoLink}))
	assert.Equal(t, 2, r.Len())
}

// TestAppendAll_CountsNewItems verifies batch add reports only new items
func TestAppendAll_CountsNewItems(t *testing.T) {
	r := createTestRundown(t, 2)

	added := r.AppendAll([]ingest.Story{testStory(1), testStory(3), testStory(2), testStory(4)})
	assert.Equal(t, 2, added)
	assert.Equal(t, 4, r.Len())

	assert.Equal(t, 0, r.AppendAll([]ingest.Story{testStory(1)}))
}

// TestAppend_OrderIsInsertionSequence verifies order keeps increasing after
// deletes
func TestAppend_OrderIsInsertionSequence(t *testing.T) {
	r := createTestRundown(t, 3)
	require.NoError(t, r.Delete(0))
	require.True(t, r.Append(testStory(4)))

	seg, err := r.At(2)
	require.NoError(t, err)
	assert.Equal(t, 3, seg.Order)
}

// TestMove_FirstUpIsNoop verifies moving past the top does nothing
func TestMove_FirstUpIsNoop(t *testing.T) {
	r := createTestRundown(t, 3)
	before := r.Segments()

	assert.False(t, r.Move(0, -1))
	assert.Equal(t, before, r.Segments())

	assert.False(t, r.Move(2, 1), "last item cannot move down")
	assert.False(t, r.Move(5, -1), "index out of range")
	assert.False(t, r.Move(1, 2), "direction must be one step")
	assert.Equal(t, before, r.Segments())
}

// TestMove_PreservesFields verifies moving changes only position
func TestMove_PreservesFields(t *testing.T) {
	r := createTestRundown(t, 3)
	require.NoError(t, r.UpdateField(2, FieldProfile, "Sarcastic Reporter"))
	require.NoError(t, r.UpdateField(2, FieldDuration, "01:15"))
	r.segments[2].Backtime = "05:59 PM"
	moved, _ := r.At(2)

	assert.True(t, r.Move(2, -1))
	assert.Equal(t, []string{"Story 1", "Story 3", "Story 2"}, titles(r))

	got, err := r.At(1)
	require.NoError(t, err)
	assert.Equal(t, moved, got)

	assert.True(t, r.Move(0, 1))
	assert.Equal(t, []string{"Story 3", "Story 1", "Story 2"}, titles(r))
}

// TestDelete verifies removal and range checking
func TestDelete(t *testing.T) {
	r := createTestRundown(t, 3)

	require.NoError(t, r.Delete(1))
	assert.Equal(t, []string{"Story 1", "Story 3"}, titles(r))

	assert.ErrorIs(t, r.Delete(2), ErrIndexOutOfRange)
	assert.ErrorIs(t, r.Delete(-1), ErrIndexOutOfRange)
	assert.Equal(t, 2, r.Len())
}

// TestUpdateField_AllFields verifies each editable field is written
func TestUpdateField_AllFields(t *testing.T) {
	r := createTestRundown(t, 1)

	require.NoError(t, r.UpdateField(0, FieldTitle, "New title"))
	require.NoError(t, r.UpdateField(0, FieldDuration, "1:02:03"))
	require.NoError(t, r.UpdateField(0, FieldActive, "false"))
	require.NoError(t, r.UpdateField(0, FieldProfile, "Anchor"))
	require.NoError(t, r.UpdateField(0, FieldStyle, "Conversational"))
	require.NoError(t, r.UpdateField(0, FieldTone, "Serious"))
	require.NoError(t, r.UpdateField(0, FieldLength, "Concise"))
	require.NoError(t, r.UpdateField(0, FieldTeleprompter, "Read this"))

	seg, _ := r.At(0)
	assert.Equal(t, "New title", seg.Title)
	assert.Equal(t, "1:02:03", seg.Duration)
	assert.False(t, seg.Active)
	assert.Equal(t, "Anchor", seg.Profile)
	assert.Equal(t, "Conversational", seg.Style)
	assert.Equal(t, "Serious", seg.Tone)
	assert.Equal(t, "Concise", seg.Length)
	assert.Equal(t, "Read this", seg.TeleprompterText)

	secs, err := seg.DurationSeconds()
	require.NoError(t, err)
	assert.Equal(t, 3723, secs)
}

// TestUpdateField_Rejects verifies bad input leaves the segment unchanged
func TestUpdateField_Rejects(t *testing.T) {
	r := createTestRundown(t, 1)
	before, _ := r.At(0)

	assert.ErrorIs(t, r.UpdateField(0, FieldDuration, "99:99"), timecode.ErrInvalidDuration)
	assert.ErrorIs(t, r.UpdateField(0, FieldActive, "maybe"), ErrInvalidValue)
	assert.ErrorIs(t, r.UpdateField(0, Field("backtime"), "06:00 PM"), ErrUnknownField)
	assert.ErrorIs(t, r.UpdateField(3, FieldTitle, "x"), ErrIndexOutOfRange)

	after, _ := r.At(0)
	assert.Equal(t, before, after)
}

// TestMarkRewritten verifies the rewrite bookkeeping keeps the original
func TestMarkRewritten(t *testing.T) {
	r := createTestRundown(t, 1)

	require.NoError(t, r.MarkRewritten(0, "Punchier copy"))
	seg, _ := r.At(0)
	assert.True(t, seg.Rewritten)
	assert.Equal(t, "Punchier copy", seg.TeleprompterText)
	assert.Equal(t, "Summary 1", seg.OriginalSummary)
	assert.Equal(t, "Summary 1", seg.Summary)

	assert.ErrorIs(t, r.MarkRewritten(4, "x"), ErrIndexOutOfRange)
}

// TestSegments_ReturnsCopy verifies callers cannot mutate the store
func TestSegments_ReturnsCopy(t *testing.T) {
	r := createTestRundown(t, 1)
	segs := r.Segments()
	segs[0].Title = "mutated"

	seg, _ := r.At(0)
	assert.Equal(t, "Story 1", seg.Title)
}

// TestSegmentID_IsDeterministic verifies ids depend only on link and title
func TestSegmentID_IsDeterministic(t *testing.T) {
	a := SegmentID("http://example.com/a", "A")
	assert.Equal(t, a, SegmentID("http://example.com/a", "A"))
	assert.NotEqual(t, a, SegmentID("http://example.com/a", "B"))
	assert.NotEqual(t, a, SegmentID("http://example.com/b", "A"))
}

// TestAnchorText verifies the manual anchor override
func TestAnchorText(t *testing.T) {
	r := New(DefaultSegmentDefaults())
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.SetAnchorText("6:00 PM", now))
	anchor, ok := r.Anchor()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), anchor)

	assert.ErrorIs(t, r.SetAnchorText("later", now), timecode.ErrInvalidTime)
	_, ok = r.Anchor()
	assert.True(t, ok, "a bad override keeps the previous anchor")

	require.NoError(t, r.SetAnchorText(" ", now))
	_, ok = r.Anchor()
	assert.False(t, ok)
}
