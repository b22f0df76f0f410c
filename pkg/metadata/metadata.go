package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"mediagrab/pkg/models"
)

// Record is the sidecar metadata written next to a downloaded file. It keeps
// enough provenance to trace a file on disk back to the page it came from.
type Record struct {
	// Core identifiers
	MediaID  string `json:"media_id"`
	URL      string `json:"url"`
	Referer  string `json:"referer,omitempty"`

	// Placement
	Folder           string `json:"folder,omitempty"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename,omitempty"`

	// Properties
	FileSize int64  `json:"file_size,omitempty"`
	FileType string `json:"file_type"`

	// Timestamps
	DiscoveredDate *time.Time `json:"discovered_date,omitempty"`
	DownloadedAt   time.Time  `json:"downloaded_at"`
}

// FromMediaItem builds a record from a resolved media item and its final
// download state.
func FromMediaItem(media *models.MediaItem, state *models.DownloadState) *Record {
	record := &Record{
		MediaID:          media.ID.String(),
		URL:              media.URL.String(),
		Folder:           media.DownloadFolder,
		Filename:         state.DownloadFilename,
		OriginalFilename: media.OriginalFilename,
		FileSize:         state.Filesize,
		FileType:         typeName(models.ClassifyExt(media.Ext)),
		DownloadedAt:     time.Now(),
	}
	if media.Referer != nil {
		record.Referer = media.Referer.String()
	}
	if media.Datetime > 0 {
		discovered := time.Unix(media.Datetime, 0).UTC()
		record.DiscoveredDate = &discovered
	}
	return record
}

// Save writes the record to <filePath>.json
func (r *Record) Save(filePath string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filePath+".json", data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Load reads the record stored next to a downloaded file
func Load(filePath string) (*Record, error) {
	data, err := os.ReadFile(filePath + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &record, nil
}

// Exists checks whether a sidecar record exists for a downloaded file
func Exists(filePath string) bool {
	_, err := os.Stat(filePath + ".json")
	return err == nil
}

func typeName(t models.FileType) string {
	switch t {
	case models.FileTypeImage:
		return "image"
	case models.FileTypeVideo:
		return "video"
	case models.FileTypeAudio:
		return "audio"
	default:
		return "other"
	}
}
