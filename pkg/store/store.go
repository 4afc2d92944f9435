package store

import (
	"errors"

	"pubreview/pkg/domain"
)

// ErrDuplicateInvocation is returned when a publication is created with an
// invocation id that already exists.
var ErrDuplicateInvocation = errors.New("invocation id already exists")

// Store defines persistence operations for identities, publications, and
// feedbacks. Publication reads hydrate the feedback collection so status
// derivation has its inputs; feedback reads hydrate the owning publication
// and, when present, the author.
type Store interface {
	// identities
	SaveIdentity(domain.Identity) error
	GetIdentityByHash(hash string) (domain.Identity, bool, error)
	GetIdentityByID(id string) (domain.Identity, bool, error)

	// publications
	CreatePublication(domain.Publication) error
	UpdatePublication(domain.Publication) error
	ListPublications() ([]domain.Publication, error)
	GetPublication(id string) (domain.Publication, bool, error)
	DeletePublication(id string) error

	// feedbacks
	CreateFeedback(domain.Feedback) error
	UpdateFeedback(domain.Feedback) error
	GetFeedback(id string) (domain.Feedback, bool, error)
	DeleteFeedback(id string) error
}
