package domain

const dateLayout = "02.01.2006"

// PublicationView is the serialized projection of a publication. Timestamps
// appear only when set, formatted as calendar dates.
type PublicationView struct {
	ID           string `json:"id"`
	InvocationID string `json:"invocationId"`
	DOI          string `json:"doi"`
	DisplayName  string `json:"displayName"`
	Status       Status `json:"status"`
	OkAuthor     string `json:"okAuthor,omitempty"`
	Published    string `json:"published,omitempty"`
	Exported     string `json:"exported,omitempty"`
}

// AuthorView is the minimal projection of a feedback author.
type AuthorView struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// FeedbackView is the serialized projection of a feedback item, nesting the
// full publication projection and, when present, the author.
type FeedbackView struct {
	ID          string          `json:"id"`
	Publication PublicationView `json:"publication"`
	Text        string          `json:"text"`
	Done        bool            `json:"done"`
	Author      *AuthorView     `json:"author,omitempty"`
}

// Format recomputes the status and shapes the publication for responses.
func (p Publication) Format() PublicationView {
	view := PublicationView{
		ID:           p.ID,
		InvocationID: p.InvocationID,
		DOI:          p.DOI,
		DisplayName:  p.DisplayName,
		Status:       p.Status(),
	}
	if p.AuthorApprovedAt != nil {
		view.OkAuthor = p.AuthorApprovedAt.Format(dateLayout)
	}
	if p.PublishedAt != nil {
		view.Published = p.PublishedAt.Format(dateLayout)
	}
	if p.ExportedAt != nil {
		view.Exported = p.ExportedAt.Format(dateLayout)
	}
	return view
}

// Format shapes the feedback for responses. The owning publication must be
// hydrated; the author is optional.
func (f Feedback) Format() FeedbackView {
	view := FeedbackView{
		ID:   f.ID,
		Text: f.Text,
		Done: f.Done,
	}
	if f.Publication != nil {
		view.Publication = f.Publication.Format()
	}
	if f.Author != nil {
		author := f.Author.Format()
		view.Author = &author
	}
	return view
}

// Format shapes the identity for responses: display name and role names only.
func (i Identity) Format() AuthorView {
	roles := i.Roles
	if roles == nil {
		roles = []string{}
	}
	return AuthorView{Name: i.Name, Roles: roles}
}
