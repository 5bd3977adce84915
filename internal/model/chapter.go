package model

import "time"

// Chapter represents one entry of the book's table of contents.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Chapter struct {
	ID   string `json:"id"`
	Part string `json:"part"`
	// PartOrder is the position of the chapter's part heading within the
	// book. Part names carry no ordering of their own, so without it a
	// part-sorted listing would shuffle the table of contents.
	PartOrder int    `json:"part_order"`
	Position  int    `json:"position"`
	Level     int    `json:"level"`
	Title     string `json:"title"`
	// Path is the book-relative markdown link target. Empty for draft
	// chapters, which render as [Title]() in the summary file.
	Path  string `json:"path"`
	Draft bool   `json:"draft"`
	// Storage fields describe the attached markdown content in object
	// storage. All empty/zero until content is attached.
	StoragePath string    `json:"storage_path,omitempty"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasContent reports whether markdown content has been attached to the chapter.
func (c *Chapter) HasContent() bool {
	return c.StoragePath != ""
}
