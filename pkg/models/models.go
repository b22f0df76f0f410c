package models

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"mediagrab/pkg/sanitize"
)

// ScrapeItem is the unit of in-flight crawl work. It is owned by the scrape
// queue until a crawler consumes it.
type ScrapeItem struct {
	URL *url.URL

	// ParentTitle is the accumulated hierarchical title, built as
	// "segment1/segment2/...". Empty at the root.
	ParentTitle string

	// PartOfAlbum is set when this item was discovered inside an album listing
	PartOfAlbum bool

	// PossibleDatetime is an optional Unix timestamp discovered from listing
	// metadata, propagated to descendant media items when the terminal page
	// lacks reliable date info. Zero when unknown.
	PossibleDatetime int64

	// Retry marks a user-triggered re-attempt of a previously failed
	// download. Title accumulation is suppressed and RetryPath is reused.
	Retry     bool
	RetryPath string
}

// NewScrapeItem creates a root scrape item for a raw URL
func NewScrapeItem(rawURL string) (*ScrapeItem, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &ScrapeItem{URL: u}, nil
}

// Child creates a scrape item discovered under this one, inheriting the
// accumulated title and retry provenance.
func (s *ScrapeItem) Child(link *url.URL, partOfAlbum bool, datetime int64) *ScrapeItem {
	return &ScrapeItem{
		URL:              link,
		ParentTitle:      s.ParentTitle,
		PartOfAlbum:      partOfAlbum,
		PossibleDatetime: datetime,
		Retry:            s.Retry,
		RetryPath:        s.RetryPath,
	}
}

// AddToParentTitle appends a sanitized title segment. No-op for empty titles
// and for retry items, which reuse their original folder path verbatim.
func (s *ScrapeItem) AddToParentTitle(title string) {
	if title == "" || s.Retry {
		return
	}
	title = sanitize.Folder(title)
	if title == "" {
		return
	}
	if s.ParentTitle == "" {
		s.ParentTitle = title
		return
	}
	s.ParentTitle = s.ParentTitle + "/" + title
}

// MediaItem is a terminal, fully-resolved downloadable file. It is produced
// once by a crawler and handed off to the download subsystem; the scraper
// never mutates it afterwards. Downloader-written state lives in
// DownloadState, linked by ID.
type MediaItem struct {
	ID               uuid.UUID
	URL              *url.URL
	Referer          *url.URL
	DownloadFolder   string
	Filename         string
	Ext              string
	OriginalFilename string

	// Datetime is the Unix timestamp to stamp on the finished file.
	// Zero when no date was discovered.
	Datetime int64
}

// NewMediaItem creates a resolved media descriptor
func NewMediaItem(link, referer *url.URL, folder, filename, ext, original string, datetime int64) *MediaItem {
	return &MediaItem{
		ID:               uuid.New(),
		URL:              link,
		Referer:          referer,
		DownloadFolder:   folder,
		Filename:         filename,
		Ext:              ext,
		OriginalFilename: original,
		Datetime:         datetime,
	}
}

// DownloadState is the mutable download-lifecycle record for a media item.
// It is owned exclusively by the downloader.
type DownloadState struct {
	MediaID uuid.UUID

	// DownloadFilename is the collision-resolved name actually written
	DownloadFilename string
	Filesize         int64
	CurrentAttempt   int
	TaskID           uuid.UUID
}

// FileType classifies a file by its extension
type FileType int

const (
	FileTypeOther FileType = iota
	FileTypeImage
	FileTypeVideo
	FileTypeAudio
)

var (
	imageExts = map[string]bool{
		".gif": true, ".jpeg": true, ".jpg": true, ".jfif": true, ".png": true,
		".svg": true, ".tif": true, ".tiff": true, ".webp": true, ".bmp": true,
		".heif": true, ".heic": true,
	}
	videoExts = map[string]bool{
		".avi": true, ".flv": true, ".m4v": true, ".mkv": true, ".mov": true,
		".mp4": true, ".mpeg": true, ".mpg": true, ".ts": true, ".webm": true,
		".wmv": true, ".3gp": true,
	}
	audioExts = map[string]bool{
		".flac": true, ".m4a": true, ".mp3": true, ".ogg": true, ".opus": true,
		".wav": true,
	}
)

// ClassifyExt maps a file extension (dot included, any case) to a FileType
func ClassifyExt(ext string) FileType {
	ext = strings.ToLower(ext)
	switch {
	case imageExts[ext]:
		return FileTypeImage
	case videoExts[ext]:
		return FileTypeVideo
	case audioExts[ext]:
		return FileTypeAudio
	default:
		return FileTypeOther
	}
}
