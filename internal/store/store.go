package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a saved location does not exist
var ErrNotFound = errors.New("location not found")

// Store handles persistent storage using SQLite
type Store struct {
	db *sql.DB
}

// NewStore creates a new store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// :memory: databases are per connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_locations_name ON locations(name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveLocation inserts or replaces a location. A missing ID is generated.
func (s *Store) SaveLocation(l *engine.Location) error {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return fmt.Errorf("%w: location name is required", engine.ErrInvalidInput)
	}
	coords := l.Coordinates()
	if err := engine.ValidateCoordinates(&coords); err != nil {
		return err
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	query := `INSERT OR REPLACE INTO locations (id, name, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := s.db.Exec(query, l.ID, l.Name, l.Latitude, l.Longitude, l.CreatedAt); err != nil {
		return fmt.Errorf("saving location %q: %w", l.Name, err)
	}
	return nil
}

// ListLocations returns every saved location ordered by name
func (s *Store) ListLocations() ([]engine.Location, error) {
	rows, err := s.db.Query(`SELECT id, name, latitude, longitude, created_at FROM locations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := []engine.Location{}
	for rows.Next() {
		var l engine.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// GetLocation retrieves a location by ID
func (s *Store) GetLocation(id string) (*engine.Location, error) {
	return s.getBy("id", id)
}

// GetLocationByName retrieves a location by its unique name
func (s *Store) GetLocationByName(name string) (*engine.Location, error) {
	return s.getBy("name", strings.TrimSpace(name))
}

func (s *Store) getBy(column, value string) (*engine.Location, error) {
	query := `SELECT id, name, latitude, longitude, created_at FROM locations WHERE ` + column + ` = ?`

	var l engine.Location
	err := s.db.QueryRow(query, value).Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteLocation removes a location by ID
func (s *Store) DeleteLocation(id string) error {
	res, err := s.db.Exec(`DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
