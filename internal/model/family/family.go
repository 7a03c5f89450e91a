// Package family holds the shared photo yard records: uploaded photos,
// their post metadata, and comments left by family members.
package family

import "time"

// Photo is the stored metadata for one uploaded photo file.
type Photo struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"-"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name,omitempty"`
	FilePath     string    `json:"-"`
	FileSize     int64     `json:"file_size,omitempty"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Post carries the caption-style metadata attached to a photo at upload.
type Post struct {
	ID           int64  `json:"id"`
	PhotoID      int64  `json:"photo_id"`
	Description  string `json:"description"`
	Mentions     string `json:"mentions"`
	Location     string `json:"location"`
	AudioMessage string `json:"audio_message,omitempty"`
}

// Comment is one family member's comment on a photo.
type Comment struct {
	ID         int64     `json:"id"`
	PhotoID    int64     `json:"-"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"comment_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// PhotoWithComments is the listing shape grouped by upload date.
type PhotoWithComments struct {
	ID         int64     `json:"id"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  string    `json:"created_at"`
	FileURL    string    `json:"file_url"`
	Comments   []Comment `json:"comments"`
}
