package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pubreview/internal/util"
	"pubreview/pkg/authz"
	"pubreview/pkg/domain"
	"pubreview/pkg/events"
	"pubreview/pkg/storage"
	"pubreview/pkg/store"
)

// Config holds runtime wiring for the core application.
type Config struct {
	Store   store.Store
	Codec   *authz.Codec
	Archive storage.Archive
	Events  events.Publisher
}

// App is the core application service tying together storage, token
// issuance, and the publication lifecycle.
type App struct {
	store   store.Store
	codec   *authz.Codec
	archive storage.Archive
	events  events.Publisher

	now func() time.Time
}

// New constructs the application. Store and Codec are required; Archive and
// Events degrade to no-ops when absent.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	eventSink := cfg.Events
	if eventSink == nil {
		eventSink = events.NopPublisher{}
	}
	return &App{
		store:   cfg.Store,
		codec:   cfg.Codec,
		archive: cfg.Archive,
		events:  eventSink,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueToken exchanges a raw credential for a signed workflow token. Lookup
// goes through the credential hash; the raw value is never persisted.
func (a *App) IssueToken(credential string) (string, error) {
	identity, ok, err := a.store.GetIdentityByHash(HashCredential(credential))
	if err != nil {
		return "", fmt.Errorf("fetch identity: %w", err)
	}
	if !ok {
		return "", ErrNotFound
	}
	token, err := a.codec.Encode(authz.Claims{
		ID:    identity.ID,
		Name:  identity.Name,
		Email: identity.Email,
		Roles: identity.Roles,
	})
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return token, nil
}

// CreateIdentity registers a person and hands back the raw credential
// exactly once. Role names outside the known vocabulary are rejected.
func (a *App) CreateIdentity(name, email string, roles []string) (domain.Identity, string, error) {
	if name == "" {
		return domain.Identity{}, "", ErrMissingInput
	}
	for _, role := range roles {
		if !domain.KnownRole(role) {
			return domain.Identity{}, "", &ValidationError{Message: fmt.Sprintf("unknown role: %s", role)}
		}
	}
	credential := newCredential()
	identity := domain.Identity{
		ID:         util.NewID(),
		Identifier: HashCredential(credential),
		Name:       name,
		Email:      email,
		Roles:      append([]string(nil), roles...),
		CreatedAt:  a.now(),
	}
	if err := a.store.SaveIdentity(identity); err != nil {
		return domain.Identity{}, "", &PersistenceError{Cause: err}
	}
	return identity, credential, nil
}

// AddRoles appends role names to an identity. Roles are additive only; there
// is no removal path.
func (a *App) AddRoles(identityID string, roles []string) (domain.Identity, error) {
	identity, ok, err := a.store.GetIdentityByID(identityID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("fetch identity: %w", err)
	}
	if !ok {
		return domain.Identity{}, ErrNotFound
	}
	for _, role := range roles {
		if !domain.KnownRole(role) {
			return domain.Identity{}, &ValidationError{Message: fmt.Sprintf("unknown role: %s", role)}
		}
		identity.Roles = append(identity.Roles, role)
	}
	if err := a.store.SaveIdentity(identity); err != nil {
		return domain.Identity{}, &PersistenceError{Cause: err}
	}
	return identity, nil
}

// PublicationInput carries the client-supplied fields for publication
// creation. Pointers distinguish absent fields from zero values.
type PublicationInput struct {
	DatasetID    *int64
	InvocationID *string
	DisplayName  *string
	DOI          *string
}

// CreatePublication validates required fields and inserts the publication.
// The missing-field report names every absent field.
func (a *App) CreatePublication(in PublicationInput) (domain.Publication, error) {
	var missing []string
	if in.DatasetID == nil {
		missing = append(missing, "datasetId")
	}
	if in.InvocationID == nil {
		missing = append(missing, "invocationId")
	}
	if in.DisplayName == nil {
		missing = append(missing, "datasetDisplayName")
	}
	if in.DOI == nil {
		missing = append(missing, "datasetGlobalId")
	}
	if len(missing) > 0 {
		return domain.Publication{}, missingFieldsError(missing)
	}

	pub := domain.Publication{
		ID:           util.NewID(),
		DatasetID:    *in.DatasetID,
		InvocationID: *in.InvocationID,
		DisplayName:  *in.DisplayName,
		DOI:          *in.DOI,
		CreatedAt:    a.now(),
	}
	if err := a.store.CreatePublication(pub); err != nil {
		return domain.Publication{}, &PersistenceError{Cause: err}
	}
	return pub, nil
}

// ListPublications returns all publications with feedbacks hydrated.
func (a *App) ListPublications() ([]domain.Publication, error) {
	return a.store.ListPublications()
}

// GetPublication returns one publication with feedbacks hydrated.
func (a *App) GetPublication(id string) (domain.Publication, error) {
	pub, ok, err := a.store.GetPublication(id)
	if err != nil {
		return domain.Publication{}, fmt.Errorf("fetch publication: %w", err)
	}
	if !ok {
		return domain.Publication{}, ErrNotFound
	}
	return pub, nil
}

// DeletePublication removes a publication and, by cascade, its feedbacks.
func (a *App) DeletePublication(id string) (domain.Publication, error) {
	pub, err := a.GetPublication(id)
	if err != nil {
		return domain.Publication{}, err
	}
	if err := a.store.DeletePublication(id); err != nil {
		return domain.Publication{}, &PersistenceError{Cause: err}
	}
	return pub, nil
}

// ListFeedbacks returns a publication together with its feedback items.
func (a *App) ListFeedbacks(publicationID string) (domain.Publication, []domain.Feedback, error) {
	pub, err := a.GetPublication(publicationID)
	if err != nil {
		return domain.Publication{}, nil, err
	}
	feedbacks := pub.Feedbacks
	for i := range feedbacks {
		if feedbacks[i].Publication == nil {
			hydrated := pub
			feedbacks[i].Publication = &hydrated
		}
		a.attachAuthor(&feedbacks[i])
	}
	return pub, feedbacks, nil
}

// CreateFeedback attaches a reviewer note to a publication. Text is
// required; authorID links the note to the calling identity.
func (a *App) CreateFeedback(publicationID, text, authorID string) (domain.Feedback, error) {
	if _, err := a.GetPublication(publicationID); err != nil {
		return domain.Feedback{}, err
	}
	if text == "" {
		return domain.Feedback{}, ErrMissingInput
	}
	fb := domain.Feedback{
		ID:            util.NewID(),
		PublicationID: publicationID,
		AuthorID:      authorID,
		Text:          text,
		CreatedAt:     a.now(),
	}
	if err := a.store.CreateFeedback(fb); err != nil {
		return domain.Feedback{}, &PersistenceError{Cause: err}
	}
	return a.hydratedFeedback(fb.ID)
}

// GetFeedback returns one feedback with its publication and author attached.
// The publication id in the path must match the feedback's owner.
func (a *App) GetFeedback(publicationID, feedbackID string) (domain.Feedback, error) {
	fb, ok, err := a.store.GetFeedback(feedbackID)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("fetch feedback: %w", err)
	}
	if !ok {
		return domain.Feedback{}, ErrNotFound
	}
	if fb.PublicationID != publicationID {
		return domain.Feedback{}, ErrFeedbackMismatch
	}
	a.attachAuthor(&fb)
	return fb, nil
}

// UpdateFeedback patches text and/or done. At least one of the two must be
// supplied.
func (a *App) UpdateFeedback(publicationID, feedbackID string, text *string, done *bool) (domain.Feedback, error) {
	if text == nil && done == nil {
		return domain.Feedback{}, ErrMissingInput
	}
	fb, err := a.GetFeedback(publicationID, feedbackID)
	if err != nil {
		return domain.Feedback{}, err
	}
	if text != nil {
		fb.Text = *text
	}
	if done != nil {
		fb.Done = *done
	}
	if err := a.store.UpdateFeedback(fb); err != nil {
		return domain.Feedback{}, &PersistenceError{Cause: err}
	}
	return a.hydratedFeedback(fb.ID)
}

// CompleteFeedback sets only the done flag.
func (a *App) CompleteFeedback(publicationID, feedbackID string, done *bool) (domain.Feedback, error) {
	if done == nil {
		return domain.Feedback{}, ErrMissingInput
	}
	return a.UpdateFeedback(publicationID, feedbackID, nil, done)
}

// DeleteFeedback removes one feedback after the ownership check.
func (a *App) DeleteFeedback(publicationID, feedbackID string) (domain.Feedback, error) {
	fb, err := a.GetFeedback(publicationID, feedbackID)
	if err != nil {
		return domain.Feedback{}, err
	}
	if err := a.store.DeleteFeedback(feedbackID); err != nil {
		return domain.Feedback{}, &PersistenceError{Cause: err}
	}
	return fb, nil
}

// RegisterOk records the author's approval. Legal from any status before
// publication.
func (a *App) RegisterOk(ctx context.Context, publicationID string) (domain.Publication, error) {
	pub, err := a.GetPublication(publicationID)
	if err != nil {
		return domain.Publication{}, err
	}
	switch pub.Status() {
	case domain.StatusExported:
		return domain.Publication{}, errAlreadyExported()
	case domain.StatusPublished:
		return domain.Publication{}, errAlreadyPublished()
	}
	now := a.now()
	pub.AuthorApprovedAt = &now
	if err := a.store.UpdatePublication(pub); err != nil {
		return domain.Publication{}, &PersistenceError{Cause: err}
	}
	a.emit(ctx, events.TypeAuthorApproved, pub)
	return pub, nil
}

// Publish moves a finished publication to published. Every other status
// fails with a distinct conflict message.
func (a *App) Publish(ctx context.Context, publicationID string) (domain.Publication, error) {
	pub, err := a.GetPublication(publicationID)
	if err != nil {
		return domain.Publication{}, err
	}
	switch status := pub.Status(); status {
	case domain.StatusExported:
		return domain.Publication{}, errAlreadyExported()
	case domain.StatusPublished:
		return domain.Publication{}, errAlreadyPublished()
	case domain.StatusFeedbacksToDo:
		return domain.Publication{}, errFeedbacksPending()
	case domain.StatusFinished:
		// fall through to the transition
	default:
		return domain.Publication{}, errUnknownStatus(string(status))
	}
	now := a.now()
	pub.PublishedAt = &now
	if err := a.store.UpdatePublication(pub); err != nil {
		return domain.Publication{}, &PersistenceError{Cause: err}
	}
	a.emit(ctx, events.TypePublished, pub)
	return pub, nil
}

// Export moves a published publication to exported, the terminal state, and
// writes the export artifact to the archive.
func (a *App) Export(ctx context.Context, publicationID string) (domain.Publication, error) {
	pub, err := a.GetPublication(publicationID)
	if err != nil {
		return domain.Publication{}, err
	}
	if pub.Status() != domain.StatusPublished {
		return domain.Publication{}, errNotPublished()
	}
	now := a.now()
	pub.ExportedAt = &now
	if err := a.store.UpdatePublication(pub); err != nil {
		return domain.Publication{}, &PersistenceError{Cause: err}
	}
	a.writeExportArtifact(ctx, pub)
	a.emit(ctx, events.TypeExported, pub)
	return pub, nil
}

func (a *App) hydratedFeedback(id string) (domain.Feedback, error) {
	fb, ok, err := a.store.GetFeedback(id)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("fetch feedback: %w", err)
	}
	if !ok {
		return domain.Feedback{}, ErrNotFound
	}
	a.attachAuthor(&fb)
	return fb, nil
}

func (a *App) attachAuthor(fb *domain.Feedback) {
	if fb.Author != nil || fb.AuthorID == "" {
		return
	}
	author, ok, err := a.store.GetIdentityByID(fb.AuthorID)
	if err != nil || !ok {
		return
	}
	fb.Author = &author
}

// emit publishes a lifecycle event. Failures are logged, never surfaced;
// the transition itself has already been committed.
func (a *App) emit(ctx context.Context, eventType string, pub domain.Publication) {
	ev := events.Event{
		Type:          eventType,
		PublicationID: pub.ID,
		InvocationID:  pub.InvocationID,
		Status:        pub.Status(),
		OccurredAt:    a.now(),
	}
	if err := a.events.Publish(ctx, ev); err != nil {
		slog.Warn("publish workflow event failed", "type", eventType, "publication_id", pub.ID, "error", err)
	}
}

// writeExportArtifact stores the serialized publication in the archive.
// Best effort: the export transition does not roll back on archive errors.
func (a *App) writeExportArtifact(ctx context.Context, pub domain.Publication) {
	if a.archive == nil {
		return
	}
	payload, err := json.Marshal(pub.Format())
	if err != nil {
		slog.Warn("marshal export artifact failed", "publication_id", pub.ID, "error", err)
		return
	}
	key := fmt.Sprintf("publications/%s.json", pub.ID)
	if err := a.archive.Put(ctx, key, payload, "application/json"); err != nil {
		slog.Warn("write export artifact failed", "publication_id", pub.ID, "error", err)
	}
}
