package domain

// Status is the derived lifecycle state of a publication.
type Status string

const (
	StatusFeedbacksToDo Status = "feedbacks to do"
	StatusFinished      Status = "finished"
	StatusPublished     Status = "published"
	StatusExported      Status = "exported"
)

// Status derives the lifecycle state from the persisted timestamps and the
// feedback collection. Exported wins over published; with neither set the
// publication is finished exactly when every feedback is done (vacuously
// true for zero feedbacks).
func (p Publication) Status() Status {
	if p.ExportedAt != nil {
		return StatusExported
	}
	if p.PublishedAt != nil {
		return StatusPublished
	}
	for _, f := range p.Feedbacks {
		if !f.Done {
			return StatusFeedbacksToDo
		}
	}
	return StatusFinished
}
