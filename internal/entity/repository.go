package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is the persisted description of a registered entity.
//
// Entities themselves are live objects bound to a coordinator; the record
// keeps what is known about them across restarts.
type Record struct {
	UniqueID       string
	Platform       Platform
	Domain         string
	EntryID        string
	DeviceClass    DeviceClass
	Category       EntityCategory
	TranslationKey string
	DeviceID       string
	DeviceName     string
	Manufacturer   string
	Model          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRecord builds the record for an entity created by the given entry.
func NewRecord(entry ConfigEntry, e Entity) Record {
	info := e.Info()
	return Record{
		UniqueID:       e.UniqueID(),
		Platform:       e.Platform(),
		Domain:         entry.Domain,
		EntryID:        entry.EntryID,
		DeviceClass:    info.DeviceClass,
		Category:       info.Category,
		TranslationKey: info.TranslationKey,
		DeviceID:       info.Device.PrimaryID(),
		DeviceName:     info.Device.Name,
		Manufacturer:   info.Device.Manufacturer,
		Model:          info.Device.Model,
	}
}

// Validate checks the fields the repository requires.
func (r Record) Validate() error {
	switch {
	case r.UniqueID == "":
		return fmt.Errorf("%w: unique id is required", ErrInvalidRecord)
	case r.Platform == "":
		return fmt.Errorf("%w: platform is required", ErrInvalidRecord)
	case r.Domain == "" || r.EntryID == "":
		return fmt.Errorf("%w: domain and entry id are required", ErrInvalidRecord)
	}
	return nil
}

// Repository persists entity records.
type Repository interface {
	// Upsert inserts the record or updates the existing one, keeping its
	// creation time.
	Upsert(ctx context.Context, rec Record) error

	// Get returns ErrEntityNotFound for unknown unique IDs.
	Get(ctx context.Context, uniqueID string) (*Record, error)

	List(ctx context.Context) ([]Record, error)
	ListByEntry(ctx context.Context, domain, entryID string) ([]Record, error)
	Delete(ctx context.Context, uniqueID string) error
}

// SQLiteRepository implements Repository on the entities table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const recordColumns = `unique_id, platform, domain, entry_id, device_class, entity_category,
	translation_key, device_id, device_name, manufacturer, model, created_at, updated_at`

// Upsert inserts or updates an entity record.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entities (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET
			platform = excluded.platform,
			domain = excluded.domain,
			entry_id = excluded.entry_id,
			device_class = excluded.device_class,
			entity_category = excluded.entity_category,
			translation_key = excluded.translation_key,
			device_id = excluded.device_id,
			device_name = excluded.device_name,
			manufacturer = excluded.manufacturer,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		rec.UniqueID,
		string(rec.Platform),
		rec.Domain,
		rec.EntryID,
		string(rec.DeviceClass),
		string(rec.Category),
		rec.TranslationKey,
		rec.DeviceID,
		rec.DeviceName,
		rec.Manufacturer,
		rec.Model,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upserting entity %s: %w", rec.UniqueID, err)
	}
	return nil
}

// Get returns one entity record.
func (r *SQLiteRepository) Get(ctx context.Context, uniqueID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM entities WHERE unique_id = ?`, uniqueID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntityNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns every record ordered by unique ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	return r.query(ctx, `SELECT `+recordColumns+` FROM entities ORDER BY unique_id`)
}

// ListByEntry returns the records created by one configuration entry.
func (r *SQLiteRepository) ListByEntry(ctx context.Context, domain, entryID string) ([]Record, error) {
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM entities WHERE domain = ? AND entry_id = ? ORDER BY unique_id`,
		domain, entryID)
}

// Delete removes a record. Deleting an unknown ID returns ErrEntityNotFound.
func (r *SQLiteRepository) Delete(ctx context.Context, uniqueID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entities WHERE unique_id = ?`, uniqueID)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", uniqueID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntityNotFound
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*Record, error) {
	var (
		rec                  Record
		platform, class, cat string
		createdAt, updatedAt string
	)
	err := s.Scan(
		&rec.UniqueID,
		&platform,
		&rec.Domain,
		&rec.EntryID,
		&class,
		&cat,
		&rec.TranslationKey,
		&rec.DeviceID,
		&rec.DeviceName,
		&rec.Manufacturer,
		&rec.Model,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning entity: %w", err)
	}

	rec.Platform = Platform(platform)
	rec.DeviceClass = DeviceClass(class)
	rec.Category = EntityCategory(cat)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Written by Upsert
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Written by Upsert
	return &rec, nil
}
