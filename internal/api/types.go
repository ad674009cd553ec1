package api

import (
	"time"
)

// Status is the server health report from /status.json.
type Status struct {
	Date     *time.Time `json:"date,omitempty"`
	Database bool       `json:"database"`
	Storage  bool       `json:"storage"`
}

// Healthy reports whether both the database and storage are up.
func (s Status) Healthy() bool { return s.Database && s.Storage }

// NewStatus builds a Status from a decoded /status.json body.
func NewStatus(m map[string]any) Status {
	return Status{
		Date:     timeField(m, "date"),
		Database: boolField(m, "database"),
		Storage:  boolField(m, "storage"),
	}
}

// Stats holds server-wide counters from /stats.json. Custom holds any
// extra statistics the server is configured to report.
type Stats struct {
	NumImages int64          `json:"numImages"`
	NumUsers  int64          `json:"numUsers"`
	NumBytes  int64          `json:"numBytes"`
	Custom    map[string]any `json:"custom,omitempty"`
}

func NewStats(m map[string]any) Stats {
	return Stats{
		NumImages: intField(m, "numImages"),
		NumUsers:  intField(m, "numUsers"),
		NumBytes:  intField(m, "numBytes"),
		Custom:    objectField(m, "custom"),
	}
}

// User describes the user account from /users/<user>.json. LastModified is
// nil when the user has no images.
type User struct {
	ID           string     `json:"user"`
	NumImages    int64      `json:"numImages"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

func NewUser(m map[string]any) User {
	return User{
		ID:           stringField(m, "user"),
		NumImages:    intField(m, "numImages"),
		LastModified: timeField(m, "lastModified"),
	}
}

// Image is one entry of an images listing.
type Image struct {
	Identifier       string         `json:"imageIdentifier"`
	User             string         `json:"user"`
	Checksum         string         `json:"checksum"`
	OriginalChecksum string         `json:"originalChecksum,omitempty"`
	Extension        string         `json:"extension"`
	MimeType         string         `json:"mime"`
	Size             int64          `json:"size"`
	Width            int64          `json:"width"`
	Height           int64          `json:"height"`
	Added            *time.Time     `json:"added,omitempty"`
	Updated          *time.Time     `json:"updated,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func NewImage(m map[string]any) Image {
	return Image{
		Identifier:       stringField(m, "imageIdentifier"),
		User:             stringField(m, "user"),
		Checksum:         stringField(m, "checksum"),
		OriginalChecksum: stringField(m, "originalChecksum"),
		Extension:        stringField(m, "extension"),
		MimeType:         stringField(m, "mime"),
		Size:             intField(m, "size"),
		Width:            intField(m, "width"),
		Height:           intField(m, "height"),
		Added:            timeField(m, "added"),
		Updated:          timeField(m, "updated"),
		Metadata:         objectField(m, "metadata"),
	}
}

// ImageList is a page of images plus the search summary.
type ImageList struct {
	Hits   int64   `json:"hits"`
	Page   int64   `json:"page"`
	Limit  int64   `json:"limit"`
	Count  int64   `json:"count"`
	Images []Image `json:"images"`
}

func NewImageList(m map[string]any) ImageList {
	search := objectField(m, "search")
	list := ImageList{
		Hits:  intField(search, "hits"),
		Page:  intField(search, "page"),
		Limit: intField(search, "limit"),
		Count: intField(search, "count"),
	}
	raw, _ := m["images"].([]any)
	list.Images = make([]Image, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			list.Images = append(list.Images, NewImage(obj))
		}
	}
	return list
}

// AddedImage is the server's answer to an upload.
type AddedImage struct {
	Identifier string `json:"imageIdentifier"`
	Width      int64  `json:"width"`
	Height     int64  `json:"height"`
	Extension  string `json:"extension"`
}

func NewAddedImage(m map[string]any) AddedImage {
	return AddedImage{
		Identifier: stringField(m, "imageIdentifier"),
		Width:      intField(m, "width"),
		Height:     intField(m, "height"),
		Extension:  stringField(m, "extension"),
	}
}

// ImageProperties are the original image attributes reported in the
// headers of a HEAD request.
type ImageProperties struct {
	Identifier string `json:"imageIdentifier"`
	Width      int64  `json:"width"`
	Height     int64  `json:"height"`
	Filesize   int64  `json:"filesize"`
	MimeType   string `json:"mime"`
	Extension  string `json:"extension"`
}
