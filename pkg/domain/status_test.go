package domain

import (
	"testing"
	"time"
)

func TestStatusDerivation(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name string
		pub  Publication
		want Status
	}{
		{"zero feedbacks is finished", Publication{}, StatusFinished},
		{"open feedback", Publication{Feedbacks: []Feedback{{Done: false}}}, StatusFeedbacksToDo},
		{"mixed feedback", Publication{Feedbacks: []Feedback{{Done: true}, {Done: false}}}, StatusFeedbacksToDo},
		{"all feedback done", Publication{Feedbacks: []Feedback{{Done: true}, {Done: true}}}, StatusFinished},
		{"published wins over feedback", Publication{PublishedAt: &now, Feedbacks: []Feedback{{Done: false}}}, StatusPublished},
		{"exported wins over published", Publication{PublishedAt: &now, ExportedAt: &now}, StatusExported},
		{"author approval does not change status", Publication{AuthorApprovedAt: &now}, StatusFinished},
	}
	for _, tc := range cases {
		if got := tc.pub.Status(); got != tc.want {
			t.Fatalf("%s: status = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestStatusIsPure(t *testing.T) {
	now := time.Now().UTC()
	a := Publication{PublishedAt: &now, Feedbacks: []Feedback{{Done: true}}}
	b := Publication{PublishedAt: &now, Feedbacks: []Feedback{{Done: true}}}
	if a.Status() != b.Status() {
		t.Fatalf("identical inputs derived different statuses: %q vs %q", a.Status(), b.Status())
	}
	if a.Status() != a.Status() {
		t.Fatalf("repeated derivation is not stable")
	}
}

func TestFormatIncludesDatesOnlyWhenSet(t *testing.T) {
	pub := Publication{ID: "p1", InvocationID: "inv-1", DOI: "doi:10/xyz", DisplayName: "Survey 2023"}
	view := pub.Format()
	if view.Status != StatusFinished {
		t.Fatalf("status = %q, want %q", view.Status, StatusFinished)
	}
	if view.OkAuthor != "" || view.Published != "" || view.Exported != "" {
		t.Fatalf("unset timestamps leaked into view: %+v", view)
	}

	ts := time.Date(2023, 4, 7, 12, 30, 0, 0, time.UTC)
	pub.PublishedAt = &ts
	view = pub.Format()
	if view.Published != "07.04.2023" {
		t.Fatalf("published = %q, want %q", view.Published, "07.04.2023")
	}
	if view.Status != StatusPublished {
		t.Fatalf("status not recomputed by Format: %q", view.Status)
	}
}

func TestFeedbackFormatNestsPublicationAndAuthor(t *testing.T) {
	pub := Publication{ID: "p1", InvocationID: "inv-1"}
	fb := Feedback{
		ID:          "f1",
		Text:        "axis labels missing",
		Publication: &pub,
		Author:      &Identity{Name: "Ada", Roles: []string{"Curator"}},
	}
	view := fb.Format()
	if view.Publication.ID != "p1" {
		t.Fatalf("nested publication id = %q, want p1", view.Publication.ID)
	}
	if view.Author == nil || view.Author.Name != "Ada" {
		t.Fatalf("author projection missing: %+v", view.Author)
	}

	fb.Author = nil
	if view := fb.Format(); view.Author != nil {
		t.Fatalf("anonymous feedback should skip author projection")
	}
}
