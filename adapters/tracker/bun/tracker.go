package trackerbun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-layerexport/export"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Tracker stores mode export attempts in a Bun-backed database.
type Tracker struct {
	DB          *bun.DB
	Now         func() time.Time
	IDGenerator func() string
}

var _ export.ProgressTracker = (*Tracker)(nil)

// NewTracker creates a Bun-backed tracker.
func NewTracker(db *bun.DB) *Tracker {
	return &Tracker{DB: db, Now: time.Now, IDGenerator: uuid.NewString}
}

// OpenSQLite opens (or creates) a SQLite history database at path and
// ensures the attempts table exists.
func OpenSQLite(ctx context.Context, path string) (*bun.DB, error) {
	if path == "" {
		return nil, export.NewError(export.KindValidation, "history database path is required", nil)
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+path)
	if err != nil {
		return nil, export.NewError(export.KindIO, fmt.Sprintf("open history database %s", path), err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := CreateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateTable creates the attempts table when it does not exist.
func CreateTable(ctx context.Context, db *bun.DB) error {
	if db == nil {
		return export.NewError(export.KindValidation, "tracker database not configured", nil)
	}
	if _, err := db.NewCreateTable().Model((*attemptModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return export.NewError(export.KindIO, "create attempts table", err)
	}
	return nil
}

// Start inserts a new attempt record.
func (t *Tracker) Start(ctx context.Context, record export.AttemptRecord) (string, error) {
	if t == nil || t.DB == nil {
		return "", export.NewError(export.KindValidation, "tracker database not configured", nil)
	}
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	model := modelFromRecord(record)
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Finish stores the outcome of an attempt.
func (t *Tracker) Finish(ctx context.Context, id string, result export.ModeResult) error {
	if t == nil || t.DB == nil {
		return export.NewError(export.KindValidation, "tracker database not configured", nil)
	}
	if id == "" {
		return export.NewError(export.KindValidation, "attempt ID is required", nil)
	}

	res, err := t.DB.NewUpdate().Model((*attemptModel)(nil)).
		Set("outcome = ?", string(result.Outcome)).
		Set("error_kind = ?", string(result.ErrorKind)).
		Set("message = ?", result.Message).
		Set("skipped = ?", result.Skipped).
		Set("duration_ms = ?", result.Duration.Milliseconds()).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return export.NewError(export.KindValidation, fmt.Sprintf("attempt %q not found", id), nil)
	}
	return nil
}

// Get returns an attempt by ID.
func (t *Tracker) Get(ctx context.Context, id string) (export.AttemptRecord, error) {
	if t == nil || t.DB == nil {
		return export.AttemptRecord{}, export.NewError(export.KindValidation, "tracker database not configured", nil)
	}
	if id == "" {
		return export.AttemptRecord{}, export.NewError(export.KindValidation, "attempt ID is required", nil)
	}

	model := new(attemptModel)
	err := t.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.AttemptRecord{}, export.NewError(export.KindMissingInput, fmt.Sprintf("attempt %q not found", id), nil)
		}
		return export.AttemptRecord{}, err
	}
	return model.toRecord(), nil
}

// List returns attempts matching filter, newest first.
func (t *Tracker) List(ctx context.Context, filter export.AttemptFilter) ([]export.AttemptRecord, error) {
	if t == nil || t.DB == nil {
		return nil, export.NewError(export.KindValidation, "tracker database not configured", nil)
	}

	models := make([]attemptModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.RunID != "" {
		query = query.Where("run_id = ?", filter.RunID)
	}
	if filter.Mode != "" {
		query = query.Where("mode = ?", string(filter.Mode))
	}
	if filter.Outcome != "" {
		query = query.Where("outcome = ?", string(filter.Outcome))
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	query = query.Order("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	records := make([]export.AttemptRecord, 0, len(models))
	for _, model := range models {
		records = append(records, model.toRecord())
	}
	return records, nil
}

type attemptModel struct {
	bun.BaseModel `bun:"table:export_attempts,alias:export_attempts"`

	ID          string    `bun:",pk"`
	RunID       string    `bun:"run_id,notnull"`
	Mode        string    `bun:"mode,notnull"`
	Format      string    `bun:"format,notnull"`
	Template    string    `bun:"template"`
	OutputPath  string    `bun:"output_path"`
	Outcome     string    `bun:"outcome"`
	ErrorKind   string    `bun:"error_kind"`
	Message     string    `bun:"message"`
	Skipped     bool      `bun:"skipped"`
	DurationMS  int64     `bun:"duration_ms"`
	CreatedAt   time.Time `bun:"created_at"`
	CompletedAt time.Time `bun:"completed_at,nullzero"`
}

func modelFromRecord(record export.AttemptRecord) attemptModel {
	return attemptModel{
		ID:          record.ID,
		RunID:       record.RunID,
		Mode:        string(record.Mode),
		Format:      string(record.Format),
		Template:    record.Template,
		OutputPath:  record.OutputPath,
		Outcome:     string(record.Outcome),
		ErrorKind:   string(record.ErrorKind),
		Message:     record.Message,
		CreatedAt:   record.CreatedAt,
		CompletedAt: record.CompletedAt,
	}
}

func (m attemptModel) toRecord() export.AttemptRecord {
	return export.AttemptRecord{
		ID:          m.ID,
		RunID:       m.RunID,
		Mode:        export.Mode(m.Mode),
		Format:      export.Format(m.Format),
		Template:    m.Template,
		OutputPath:  m.OutputPath,
		Outcome:     export.Outcome(m.Outcome),
		ErrorKind:   export.ErrorKind(m.ErrorKind),
		Message:     m.Message,
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tracker) nextID() string {
	if t.IDGenerator != nil {
		return t.IDGenerator()
	}
	return uuid.NewString()
}
