package metadata

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagrab/pkg/models"
)

func sampleMedia(t *testing.T) (*models.MediaItem, *models.DownloadState) {
	t.Helper()
	link, err := url.Parse("https://i12.bunkr.su/photo.jpg")
	require.NoError(t, err)
	referer, err := url.Parse("https://bunkr.su/a/abc123")
	require.NoError(t, err)

	media := models.NewMediaItem(link, referer, "Album (Bunkr)", "photo.jpg", ".jpg", "photo.jpg", 1614954600)
	state := &models.DownloadState{
		MediaID:          media.ID,
		DownloadFilename: "photo (1).jpg",
		Filesize:         2048,
	}
	return media, state
}

func TestFromMediaItem(t *testing.T) {
	media, state := sampleMedia(t)
	record := FromMediaItem(media, state)

	assert.Equal(t, media.ID.String(), record.MediaID)
	assert.Equal(t, "https://i12.bunkr.su/photo.jpg", record.URL)
	assert.Equal(t, "https://bunkr.su/a/abc123", record.Referer)
	assert.Equal(t, "Album (Bunkr)", record.Folder)
	assert.Equal(t, "photo (1).jpg", record.Filename)
	assert.Equal(t, "photo.jpg", record.OriginalFilename)
	assert.Equal(t, int64(2048), record.FileSize)
	assert.Equal(t, "image", record.FileType)
	require.NotNil(t, record.DiscoveredDate)
	assert.Equal(t, int64(1614954600), record.DiscoveredDate.Unix())
	assert.False(t, record.DownloadedAt.IsZero())
}

func TestFromMediaItemOptionalFields(t *testing.T) {
	media, state := sampleMedia(t)
	media.Referer = nil
	media.Datetime = 0
	media.Ext = ".mp4"

	record := FromMediaItem(media, state)
	assert.Empty(t, record.Referer)
	assert.Nil(t, record.DiscoveredDate)
	assert.Equal(t, "video", record.FileType)
}

func TestSaveAndLoad(t *testing.T) {
	media, state := sampleMedia(t)
	record := FromMediaItem(media, state)

	filePath := filepath.Join(t.TempDir(), "photo (1).jpg")
	assert.False(t, Exists(filePath))

	require.NoError(t, record.Save(filePath))
	assert.True(t, Exists(filePath))

	loaded, err := Load(filePath)
	require.NoError(t, err)
	assert.Equal(t, record.MediaID, loaded.MediaID)
	assert.Equal(t, record.URL, loaded.URL)
	assert.Equal(t, record.Filename, loaded.Filename)
	assert.Equal(t, record.FileSize, loaded.FileSize)
	assert.Equal(t, record.FileType, loaded.FileType)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nothing.jpg"))
	assert.Error(t, err)
}
