package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"pubreview/pkg/domain"
)

const migrateLockID int64 = 52103742

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&IdentityModel{}, &PublicationModel{}, &FeedbackModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveIdentity registers or updates an identity.
func (s *GormStore) SaveIdentity(identity domain.Identity) error {
	model := identityToModel(identity)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "roles"}),
	}).Create(&model).Error
}

// GetIdentityByHash looks up an identity by its hashed credential.
func (s *GormStore) GetIdentityByHash(hash string) (domain.Identity, bool, error) {
	var model IdentityModel
	if err := s.db.Where("identifier = ?", hash).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Identity{}, false, nil
		}
		return domain.Identity{}, false, err
	}
	return identityFromModel(model), true, nil
}

// GetIdentityByID returns an identity by ID.
func (s *GormStore) GetIdentityByID(id string) (domain.Identity, bool, error) {
	var model IdentityModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Identity{}, false, nil
		}
		return domain.Identity{}, false, err
	}
	return identityFromModel(model), true, nil
}

// CreatePublication inserts a new publication. A duplicate invocation id
// surfaces as ErrDuplicateInvocation.
func (s *GormStore) CreatePublication(pub domain.Publication) error {
	model := publicationToModel(pub)
	if err := s.db.Omit(clause.Associations).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateInvocation
		}
		return err
	}
	return nil
}

// UpdatePublication persists the lifecycle timestamps. Everything else is
// immutable after creation.
func (s *GormStore) UpdatePublication(pub domain.Publication) error {
	return s.db.Model(&PublicationModel{}).
		Where("id = ?", pub.ID).
		Updates(map[string]any{
			"author_approved_at": pub.AuthorApprovedAt,
			"published_at":       pub.PublishedAt,
			"exported_at":        pub.ExportedAt,
		}).Error
}

// ListPublications returns all publications with feedbacks hydrated,
// ordered by creation time.
func (s *GormStore) ListPublications() ([]domain.Publication, error) {
	var models []PublicationModel
	if err := s.db.Preload("Feedbacks").Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Publication, 0, len(models))
	for _, m := range models {
		res = append(res, publicationFromModel(m))
	}
	return res, nil
}

// GetPublication retrieves a publication with its feedbacks.
func (s *GormStore) GetPublication(id string) (domain.Publication, bool, error) {
	var model PublicationModel
	if err := s.db.Preload("Feedbacks").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Publication{}, false, nil
		}
		return domain.Publication{}, false, err
	}
	return publicationFromModel(model), true, nil
}

// DeletePublication removes a publication; the FK constraint cascades to
// its feedbacks.
func (s *GormStore) DeletePublication(id string) error {
	return s.db.Delete(&PublicationModel{}, "id = ?", id).Error
}

// CreateFeedback inserts a feedback row.
func (s *GormStore) CreateFeedback(fb domain.Feedback) error {
	model := feedbackToModel(fb)
	return s.db.Omit(clause.Associations).Create(&model).Error
}

// UpdateFeedback persists text and done state.
func (s *GormStore) UpdateFeedback(fb domain.Feedback) error {
	return s.db.Model(&FeedbackModel{}).
		Where("id = ?", fb.ID).
		Updates(map[string]any{
			"text": fb.Text,
			"done": fb.Done,
		}).Error
}

// GetFeedback retrieves a feedback with its publication (including sibling
// feedbacks, for status derivation) and its author when one is attached.
func (s *GormStore) GetFeedback(id string) (domain.Feedback, bool, error) {
	var model FeedbackModel
	err := s.db.
		Preload("Publication.Feedbacks").
		Preload("Author").
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Feedback{}, false, nil
		}
		return domain.Feedback{}, false, err
	}
	return feedbackFromModel(model), true, nil
}

// DeleteFeedback removes a single feedback row.
func (s *GormStore) DeleteFeedback(id string) error {
	return s.db.Delete(&FeedbackModel{}, "id = ?", id).Error
}

func identityToModel(identity domain.Identity) IdentityModel {
	rawRoles, _ := json.Marshal(identity.Roles)
	return IdentityModel{
		ID:         identity.ID,
		Identifier: identity.Identifier,
		Name:       identity.Name,
		Email:      identity.Email,
		Roles:      rawRoles,
		CreatedAt:  identity.CreatedAt,
	}
}

func identityFromModel(m IdentityModel) domain.Identity {
	var roles []string
	if len(m.Roles) > 0 {
		_ = json.Unmarshal(m.Roles, &roles)
	}
	return domain.Identity{
		ID:         m.ID,
		Identifier: m.Identifier,
		Name:       m.Name,
		Email:      m.Email,
		Roles:      roles,
		CreatedAt:  m.CreatedAt,
	}
}

func publicationToModel(pub domain.Publication) PublicationModel {
	return PublicationModel{
		ID:               pub.ID,
		DatasetID:        pub.DatasetID,
		InvocationID:     pub.InvocationID,
		DisplayName:      pub.DisplayName,
		DOI:              pub.DOI,
		AuthorApprovedAt: pub.AuthorApprovedAt,
		PublishedAt:      pub.PublishedAt,
		ExportedAt:       pub.ExportedAt,
		CreatedAt:        pub.CreatedAt,
	}
}

func publicationFromModel(m PublicationModel) domain.Publication {
	feedbacks := make([]domain.Feedback, 0, len(m.Feedbacks))
	for _, fb := range m.Feedbacks {
		feedbacks = append(feedbacks, feedbackFromModel(fb))
	}
	return domain.Publication{
		ID:               m.ID,
		DatasetID:        m.DatasetID,
		InvocationID:     m.InvocationID,
		DisplayName:      m.DisplayName,
		DOI:              m.DOI,
		AuthorApprovedAt: m.AuthorApprovedAt,
		PublishedAt:      m.PublishedAt,
		ExportedAt:       m.ExportedAt,
		Feedbacks:        feedbacks,
		CreatedAt:        m.CreatedAt,
	}
}

func feedbackToModel(fb domain.Feedback) FeedbackModel {
	var authorID *string
	if fb.AuthorID != "" {
		value := fb.AuthorID
		authorID = &value
	}
	return FeedbackModel{
		ID:            fb.ID,
		PublicationID: fb.PublicationID,
		AuthorID:      authorID,
		Text:          fb.Text,
		Done:          fb.Done,
		CreatedAt:     fb.CreatedAt,
	}
}

func feedbackFromModel(m FeedbackModel) domain.Feedback {
	fb := domain.Feedback{
		ID:            m.ID,
		PublicationID: m.PublicationID,
		Text:          m.Text,
		Done:          m.Done,
		CreatedAt:     m.CreatedAt,
	}
	if m.AuthorID != nil {
		fb.AuthorID = *m.AuthorID
	}
	if m.Publication != nil {
		pub := publicationFromModel(*m.Publication)
		fb.Publication = &pub
	}
	if m.Author != nil {
		author := identityFromModel(*m.Author)
		fb.Author = &author
	}
	return fb
}
