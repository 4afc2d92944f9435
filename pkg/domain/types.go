package domain

import "time"

// Identity is a person known to the review workflow. The Identifier is the
// one-way hash of the credential handed out at creation time; the raw
// credential itself is never stored.
type Identity struct {
	ID         string
	Identifier string
	Name       string
	Email      string
	Roles      []string
	CreatedAt  time.Time
}

// Publication is a dataset release moving through the review lifecycle.
// Status is never stored; it is derived from the three timestamps and the
// feedback collection on every read.
type Publication struct {
	ID               string
	DatasetID        int64
	InvocationID     string
	DisplayName      string
	DOI              string
	AuthorApprovedAt *time.Time
	PublishedAt      *time.Time
	ExportedAt       *time.Time
	Feedbacks        []Feedback
	CreatedAt        time.Time
}

// Feedback is a reviewer note attached to exactly one publication for its
// entire life. AuthorID is empty for anonymous or system-created feedback.
type Feedback struct {
	ID            string
	PublicationID string
	AuthorID      string
	Text          string
	Done          bool
	CreatedAt     time.Time

	// Hydrated by the store on reads that need the nested projection.
	Publication *Publication
	Author      *Identity
}
