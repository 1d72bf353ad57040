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

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"leaddesk/pkg/domain"
)

const migrateLockID int64 = 51730417

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

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
		if err := tx.AutoMigrate(&ContactModel{}, &ApplicationModel{}, &BlogPostModel{}); err != nil {
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

// table scopes a query to the submission table of coll.
func (s *GormStore) table(ctx context.Context, coll domain.Collection) (*gorm.DB, error) {
	if err := checkSubmissionCollection(coll); err != nil {
		return nil, err
	}
	return s.db.WithContext(ctx).Table(string(coll)), nil
}

// InsertSubmission stores a new submission.
func (s *GormStore) InsertSubmission(ctx context.Context, coll domain.Collection, sub domain.Submission) error {
	tx, err := s.table(ctx, coll)
	if err != nil {
		return err
	}
	row := submissionToRow(sub)
	return translateError(tx.Create(&row).Error)
}

// GetSubmission returns one submission by id.
func (s *GormStore) GetSubmission(ctx context.Context, coll domain.Collection, id string) (domain.Submission, error) {
	tx, err := s.table(ctx, coll)
	if err != nil {
		return domain.Submission{}, err
	}
	var row SubmissionRow
	if err := tx.Where("id = ?", id).Take(&row).Error; err != nil {
		return domain.Submission{}, translateError(err)
	}
	return submissionFromRow(row), nil
}

// FindSubmissions returns matching submissions, newest first.
func (s *GormStore) FindSubmissions(ctx context.Context, coll domain.Collection, q Query) ([]domain.Submission, error) {
	tx, err := s.table(ctx, coll)
	if err != nil {
		return nil, err
	}
	tx = tx.Order("created_at DESC").Order("id ASC")
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []SubmissionRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		res = append(res, submissionFromRow(row))
	}
	return res, nil
}

// UpdateSubmission sets the patched fields and returns the stored record.
func (s *GormStore) UpdateSubmission(ctx context.Context, coll domain.Collection, id string, patch domain.SubmissionPatch) (domain.Submission, error) {
	tx, err := s.table(ctx, coll)
	if err != nil {
		return domain.Submission{}, err
	}
	updates := map[string]any{}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if len(updates) > 0 {
		res := tx.Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return domain.Submission{}, translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.Submission{}, ErrNotFound
		}
	}
	return s.GetSubmission(ctx, coll, id)
}

// DeleteSubmission removes a submission permanently.
func (s *GormStore) DeleteSubmission(ctx context.Context, coll domain.Collection, id string) error {
	tx, err := s.table(ctx, coll)
	if err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&SubmissionRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountSubmissions counts submissions matching the filter.
func (s *GormStore) CountSubmissions(ctx context.Context, coll domain.Collection, f Filter) (int64, error) {
	tx, err := s.table(ctx, coll)
	if err != nil {
		return 0, err
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// InsertPost stores a new post. A reused slug yields ErrDuplicateKey.
func (s *GormStore) InsertPost(ctx context.Context, p domain.BlogPost) error {
	model, err := postToModel(p)
	if err != nil {
		return err
	}
	return translateError(s.db.WithContext(ctx).Create(&model).Error)
}

// GetPost resolves a post by slug.
func (s *GormStore) GetPost(ctx context.Context, slug string) (domain.BlogPost, error) {
	return getPost(s.db.WithContext(ctx), slug)
}

func getPost(tx *gorm.DB, slug string) (domain.BlogPost, error) {
	var model BlogPostModel
	if err := tx.Where("slug = ?", slug).Take(&model).Error; err != nil {
		return domain.BlogPost{}, translateError(err)
	}
	return postFromModel(model)
}

// FindPosts returns posts ordered by date, newest first.
func (s *GormStore) FindPosts(ctx context.Context, q Query) ([]domain.BlogPost, error) {
	tx := s.db.WithContext(ctx).Order("date DESC").Order("created_at DESC").Order("id ASC")
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var models []BlogPostModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.BlogPost, 0, len(models))
	for _, m := range models {
		p, err := postFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

// UpdatePost applies the patch in one transaction. Renaming onto a slug held
// by another post yields ErrDuplicateKey and leaves both posts untouched.
func (s *GormStore) UpdatePost(ctx context.Context, slug string, patch domain.PostPatch) (domain.BlogPost, error) {
	var updated domain.BlogPost
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getPost(tx, slug)
		if err != nil {
			return err
		}
		updated = applyPostPatch(current, patch)
		model, err := postToModel(updated)
		if err != nil {
			return err
		}
		return translateError(tx.Model(&BlogPostModel{}).
			Where("id = ?", current.ID).
			Updates(map[string]any{
				"slug":      model.Slug,
				"title":     model.Title,
				"excerpt":   model.Excerpt,
				"content":   model.Content,
				"author":    model.Author,
				"read_time": model.ReadTime,
				"category":  model.Category,
				"image":     model.Image,
				"faqs":      model.FAQs,
			}).Error)
	})
	if err != nil {
		return domain.BlogPost{}, err
	}
	return updated, nil
}

// DeletePost removes a post permanently.
func (s *GormStore) DeletePost(ctx context.Context, slug string) error {
	res := s.db.WithContext(ctx).Where("slug = ?", slug).Delete(&BlogPostModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountPosts returns the number of posts.
func (s *GormStore) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&BlogPostModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return err
	}
}

func submissionToRow(s domain.Submission) SubmissionRow {
	return SubmissionRow{
		ID:             s.ID,
		Name:           s.Name,
		CompanyName:    s.CompanyName,
		AnnualTurnover: s.AnnualTurnover,
		MobileNumber:   s.MobileNumber,
		Email:          s.Email,
		Message:        s.Message,
		Status:         s.Status,
		Notes:          s.Notes,
		CreatedAt:      s.CreatedAt.UTC(),
	}
}

func submissionFromRow(r SubmissionRow) domain.Submission {
	return domain.Submission{
		ID:             r.ID,
		Name:           r.Name,
		CompanyName:    r.CompanyName,
		AnnualTurnover: r.AnnualTurnover,
		MobileNumber:   r.MobileNumber,
		Email:          r.Email,
		Message:        r.Message,
		Status:         r.Status,
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

func postToModel(p domain.BlogPost) (BlogPostModel, error) {
	var faqs datatypes.JSON
	if p.FAQs != nil {
		raw, err := json.Marshal(p.FAQs)
		if err != nil {
			return BlogPostModel{}, fmt.Errorf("encode faqs: %w", err)
		}
		faqs = datatypes.JSON(raw)
	}
	return BlogPostModel{
		ID:        p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		Author:    p.Author,
		Date:      p.Date,
		ReadTime:  p.ReadTime,
		Category:  p.Category,
		Image:     p.Image,
		FAQs:      faqs,
		CreatedAt: p.CreatedAt.UTC(),
	}, nil
}

func postFromModel(m BlogPostModel) (domain.BlogPost, error) {
	var faqs []domain.FAQ
	if len(m.FAQs) > 0 && string(m.FAQs) != "null" {
		if err := json.Unmarshal(m.FAQs, &faqs); err != nil {
			return domain.BlogPost{}, fmt.Errorf("decode faqs for %s: %w", m.Slug, err)
		}
	}
	return domain.BlogPost{
		ID:        m.ID,
		Slug:      m.Slug,
		Title:     m.Title,
		Excerpt:   m.Excerpt,
		Content:   m.Content,
		Author:    m.Author,
		Date:      m.Date,
		ReadTime:  m.ReadTime,
		Category:  m.Category,
		Image:     m.Image,
		FAQs:      faqs,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}
