package view

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/filter"
)

// SQLStore keeps views in a SQLite file through gorm. It backs local runs
// and tests; production uses PGStore.
type SQLStore struct {
	db *gorm.DB
}

var _ Store = (*SQLStore)(nil)

type viewRow struct {
	ID        string             `gorm:"primaryKey"`
	Name      string             `gorm:"not null"`
	Entity    string             `gorm:"not null;index:idx_saved_views_owner_entity,priority:2"`
	Filters   []filter.Predicate `gorm:"serializer:json"`
	Columns   []string           `gorm:"serializer:json"`
	SortBy    *string
	SortOrder *string
	IsDefault bool     `gorm:"not null;default:false"`
	IsPublic  bool     `gorm:"not null;default:false"`
	CreatedBy string   `gorm:"not null;index:idx_saved_views_owner_entity,priority:1"`
	Creator   *userRow `gorm:"foreignKey:CreatedBy;references:ID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (viewRow) TableName() string { return "saved_views" }

type userRow struct {
	ID        string `gorm:"primaryKey"`
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

func (userRow) TableName() string { return "users" }

// User is a creator record as stored by SQLStore.
type User struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

// OpenSQLStore opens (or creates) the SQLite database at path. Use
// "file::memory:" for a private in-memory database.
func OpenSQLStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get database instance")
	}
	// SQLite only supports one writer, and every in-memory connection is a
	// separate database.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&userRow{}, &viewRow{})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SaveUser creates or replaces a user so views can show creator details.
func (s *SQLStore) SaveUser(ctx context.Context, u User) error {
	row := userRow{ID: u.ID.String(), FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *SQLStore) List(ctx context.Context, q ListQuery) ([]View, error) {
	tx := s.db.WithContext(ctx).
		Preload("Creator").
		Where("(created_by = ? OR is_public)", q.Requester.String())
	if q.Entity != nil {
		tx = tx.Where("entity = ?", string(*q.Entity))
	}

	var rows []viewRow
	if err := tx.Order("is_default DESC").Order("name ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list views")
	}

	out := make([]View, 0, len(rows))
	for i := range rows {
		v, err := rows[i].view()
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	return getRow(s.db.WithContext(ctx), id)
}

func getRow(db *gorm.DB, id uuid.UUID) (*View, error) {
	var row viewRow
	err := db.Preload("Creator").First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get view")
	}
	return row.view()
}

func (s *SQLStore) Create(ctx context.Context, v *View) (*View, error) {
	row := newViewRow(v)

	var out *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearRowDefaults(tx, v); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return errors.Wrap(err, "insert view")
		}
		var err error
		out, err = getRow(tx, v.ID)
		return err
	})
	return out, err
}

func (s *SQLStore) Update(ctx context.Context, v *View) (*View, error) {
	row := newViewRow(v)

	var out *View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearRowDefaults(tx, v); err != nil {
			return err
		}
		res := tx.Model(&viewRow{}).
			Where("id = ?", row.ID).
			Select("name", "entity", "filters", "columns", "sort_by", "sort_order", "is_default", "is_public", "updated_at").
			Updates(&row)
		if res.Error != nil {
			return errors.Wrap(res.Error, "update view")
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(ErrNotFound, "%s", v.ID)
		}
		var err error
		out, err = getRow(tx, v.ID)
		return err
	})
	return out, err
}

func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&viewRow{}, "id = ?", id.String())
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete view")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

func clearRowDefaults(tx *gorm.DB, v *View) error {
	if !v.IsDefault {
		return nil
	}
	err := tx.Model(&viewRow{}).
		Where("created_by = ? AND entity = ? AND id <> ? AND is_default", v.CreatedBy.String(), string(v.Entity), v.ID.String()).
		Updates(map[string]any{"is_default": false, "updated_at": v.UpdatedAt}).Error
	return errors.Wrap(err, "clear default views")
}

func newViewRow(v *View) viewRow {
	row := viewRow{
		ID:        v.ID.String(),
		Name:      v.Name,
		Entity:    string(v.Entity),
		Filters:   v.Filters,
		Columns:   v.Columns,
		SortBy:    v.SortBy,
		IsDefault: v.IsDefault,
		IsPublic:  v.IsPublic,
		CreatedBy: v.CreatedBy.String(),
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
	row.SortOrder = sortOrder(v)
	return row
}

func (r *viewRow) view() (*View, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, errors.Wrap(err, "view id")
	}
	createdBy, err := uuid.Parse(r.CreatedBy)
	if err != nil {
		return nil, errors.Wrapf(err, "view %s creator", r.ID)
	}

	v := &View{
		ID:        id,
		Name:      r.Name,
		Entity:    entity.Name(r.Entity),
		Filters:   r.Filters,
		Columns:   r.Columns,
		SortBy:    r.SortBy,
		IsDefault: r.IsDefault,
		IsPublic:  r.IsPublic,
		CreatedBy: createdBy,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if v.Filters == nil {
		v.Filters = []filter.Predicate{}
	}
	if r.SortOrder != nil {
		dir := filter.Direction(*r.SortOrder)
		v.SortOrder = &dir
	}
	if r.Creator != nil {
		v.Creator = &Creator{
			ID:    createdBy,
			Name:  displayName(r.Creator.FirstName, r.Creator.LastName),
			Email: r.Creator.Email,
		}
	}
	return v, nil
}
