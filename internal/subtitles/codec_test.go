package subtitles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/pkg/models"
)

func TestFormatSRTSingleCue(t *testing.T) {
	out := FormatSRT([]Cue{{StartMS: 500, EndMS: 2300, Text: "Hi"}})
	assert.Equal(t, "1\n00:00:00,500 --> 00:00:02,300\nHi", out)
}

func TestFormatSRTMultipleCues(t *testing.T) {
	out := FormatSRT([]Cue{
		{StartMS: 0, EndMS: 1000, Text: "one"},
		{StartMS: 1000, EndMS: 2000, Text: "two"},
	})

	blocks := strings.Split(out, "\n\n")
	require.Len(t, blocks, 2)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,000\none", blocks[0])
	assert.Equal(t, "2\n00:00:01,000 --> 00:00:02,000\ntwo", blocks[1])
}

func TestFormatVTTHeaderAndSeparator(t *testing.T) {
	out := FormatVTT([]Cue{{StartMS: 500, EndMS: 2300, Text: "Hi"}})
	assert.Equal(t, "WEBVTT\n\n1\n00:00:00.500 --> 00:00:02.300\nHi", out)
}

func TestFormatTimestampHourRollover(t *testing.T) {
	out := FormatSRT([]Cue{{StartMS: 3_723_456, EndMS: 3_725_000, Text: "x"}})
	assert.Contains(t, out, "01:02:03,456 --> 01:02:05,000")
}

func TestSRTRoundTrip(t *testing.T) {
	cues := []Cue{
		{StartMS: 0, EndMS: 4520, Text: "Welcome to the stream"},
		{StartMS: 4520, EndMS: 9100, Text: "line one\nline two"},
		{StartMS: 9100, EndMS: 3_600_001, Text: "the end"},
	}

	parsed, err := ParseSRT(FormatSRT(cues))
	require.NoError(t, err)
	assert.Equal(t, cues, parsed)
}

func TestVTTRoundTrip(t *testing.T) {
	cues := []Cue{
		{StartMS: 120, EndMS: 980, Text: "uno"},
		{StartMS: 1000, EndMS: 2000, Text: "dos"},
	}

	parsed, err := ParseVTT(FormatVTT(cues))
	require.NoError(t, err)
	assert.Equal(t, cues, parsed)
}

func TestParseVTTRequiresHeader(t *testing.T) {
	_, err := ParseVTT("1\n00:00:00.000 --> 00:00:01.000\nhi")
	assert.Error(t, err)
}

func TestParseSRTRejectsMalformedTimestamps(t *testing.T) {
	cases := []string{
		"1\n00:00:00.500 --> 00:00:02.300\ndot separator in srt",
		"1\n00:00:00,500 -> 00:00:02,300\nbad arrow",
		"1\n00:61:00,500 --> 00:00:02,300\nminutes out of range",
		"1\n00:00:00,abc --> 00:00:02,300\nnon numeric",
	}

	for _, c := range cases {
		_, err := ParseSRT(c)
		assert.Error(t, err, c)
	}
}

func TestCuesFromSegmentsRounding(t *testing.T) {
	cues := CuesFromSegments([]models.TranscriptSegment{
		{Start: 0.5004, End: 2.2996, Text: "Hi"},
	})

	require.Len(t, cues, 1)
	assert.Equal(t, int64(500), cues[0].StartMS)
	assert.Equal(t, int64(2300), cues[0].EndMS)
}

func TestSegmentCueRoundTrip(t *testing.T) {
	segments := []models.TranscriptSegment{
		{ID: 0, Start: 1.25, End: 3.5, Text: "a"},
		{ID: 1, Start: 3.5, End: 7, Text: "b"},
	}

	back := SegmentsFromCues(CuesFromSegments(segments))
	require.Len(t, back, 2)
	for i := range segments {
		assert.InDelta(t, segments[i].Start, back[i].Start, 0.001)
		assert.InDelta(t, segments[i].End, back[i].End, 0.001)
		assert.Equal(t, segments[i].Text, back[i].Text)
	}
}
