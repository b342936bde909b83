package domain

import "time"

// Comment is an append-only note on a ticket.
type Comment struct {
	ID                 string
	TicketID           string
	UserID             string
	Content            string
	IsInternal         bool
	TicketStatusAtTime TicketStatus
	CreatedAt          time.Time
}

// FileAttachment references a blob uploaded against a ticket.
type FileAttachment struct {
	ID         string
	TicketID   string
	UploadedBy string
	FilePath   string
	UploadedAt time.Time
}

// ActivityKind tags an activity entry.
type ActivityKind string

const (
	ActivityComment ActivityKind = "comment"
	ActivityFile    ActivityKind = "file"
)

// ActivityEntry is one item of the merged comment/file timeline.
type ActivityEntry struct {
	Kind    ActivityKind
	At      time.Time
	Comment *Comment
	File    *FileAttachment
	// FileURL is the public URL of File when Kind is ActivityFile.
	FileURL string
}
