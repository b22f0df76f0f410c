package bunkr

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestStreamLink(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"unrecognized host unchanged",
			"https://example.com/files/photo.jpg",
			"https://example.com/files/photo.jpg",
		},
		{
			"primary host unchanged",
			"https://bunkr.su/a/abc123",
			"https://bunkr.su/a/abc123",
		},
		{
			"cdn url without extension unchanged",
			"https://cdn12.bunkr.su/gallery",
			"https://cdn12.bunkr.su/gallery",
		},
		{
			"image moves to the image host",
			"https://cdn12.bunkr.su/photos/cat.jpg",
			"https://i12.bunkr.su/photos/cat.jpg",
		},
		{
			"unnumbered image cdn",
			"https://cdn.bunkr.su/cat.png",
			"https://i.bunkr.su/cat.png",
		},
		{
			"video maps to a stream path",
			"https://media-files5.bunkr.su/clips/video.mp4",
			"https://bunkr.su/v/video.mp4",
		},
		{
			"other files map to a download path",
			"https://cdn-burger2.bunkr.su/stuff/archive.zip",
			"https://bunkr.su/d/archive.zip",
		},
		{
			"redir cdn variant recognized",
			"https://big-taco-1redir.bunkr.su/video.webm",
			"https://bunkr.su/v/video.webm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := mustParse(t, tt.input)
			got := StreamLink(input)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestStreamLinkDoesNotMutateInput(t *testing.T) {
	input := mustParse(t, "https://cdn12.bunkr.su/photos/cat.jpg")
	before := input.String()
	_ = StreamLink(input)
	assert.Equal(t, before, input.String())
}

func TestParseDatetime(t *testing.T) {
	epoch, err := ParseDatetime("14:30:00 05/03/2021")
	require.NoError(t, err)
	assert.Equal(t, int64(1614954600), epoch)

	epoch, err = ParseDatetime("  14:30:00 05/03/2021  ")
	require.NoError(t, err)
	assert.Equal(t, int64(1614954600), epoch)

	_, err = ParseDatetime("March 5th 2021")
	assert.Error(t, err)
	_, err = ParseDatetime("")
	assert.Error(t, err)
}
