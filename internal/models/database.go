package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrShowNotFound is returned when no tracked show matches a lookup
var ErrShowNotFound = fmt.Errorf("show not found: %w", bolthold.ErrNotFound)

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Show operations

// CreateShow creates a new tracked show
func (db *Database) CreateShow(show *TrackedShow) error {
	show.CreatedAt = time.Now()
	show.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), show)
}

// UpdateShow persists a tracked show in a single write
func (db *Database) UpdateShow(show *TrackedShow) error {
	show.UpdatedAt = time.Now()
	err := db.store.Update(show.ID, show)
	if errors.Is(err, bolthold.ErrNotFound) {
		return ErrShowNotFound
	}
	return err
}

// GetShowByID retrieves a tracked show by ID
func (db *Database) GetShowByID(id uint64) (*TrackedShow, error) {
	var show TrackedShow
	err := db.store.Get(id, &show)
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &show, nil
}

// GetShowByName retrieves a tracked show by name, ignoring case
func (db *Database) GetShowByName(name string) (*TrackedShow, error) {
	shows, err := db.GetAllShows()
	if err != nil {
		return nil, err
	}
	for _, show := range shows {
		if strings.EqualFold(show.Name, name) {
			return show, nil
		}
	}
	return nil, ErrShowNotFound
}

// GetAllShows retrieves all tracked shows in catalog (ID) order
func (db *Database) GetAllShows() ([]*TrackedShow, error) {
	var shows []*TrackedShow
	if err := db.store.Find(&shows, nil); err != nil {
		return nil, err
	}
	sortShows(shows)
	return shows, nil
}

// GetActiveShows retrieves all active shows in catalog (ID) order
func (db *Database) GetActiveShows() ([]*TrackedShow, error) {
	var shows []*TrackedShow
	if err := db.store.Find(&shows, bolthold.Where("Status").Eq(ShowStatusActive)); err != nil {
		return nil, err
	}
	sortShows(shows)
	return shows, nil
}

// DeleteShow deletes a tracked show by ID
func (db *Database) DeleteShow(id uint64) error {
	err := db.store.Delete(id, &TrackedShow{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return ErrShowNotFound
	}
	return err
}

func sortShows(shows []*TrackedShow) {
	sort.Slice(shows, func(i, j int) bool { return shows[i].ID < shows[j].ID })
}

// Grab operations

// CreateGrab records a submitted release
func (db *Database) CreateGrab(grab *Grab) error {
	if grab.SubmittedAt.IsZero() {
		grab.SubmittedAt = time.Now()
	}
	grab.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), grab)
}

// UpdateGrab updates an existing grab record
func (db *Database) UpdateGrab(grab *Grab) error {
	grab.UpdatedAt = time.Now()
	return db.store.Update(grab.ID, grab)
}

// GetGrabsByStatus retrieves all grabs with a specific status, oldest first
func (db *Database) GetGrabsByStatus(status GrabStatus) ([]*Grab, error) {
	var grabs []*Grab
	if err := db.store.Find(&grabs, bolthold.Where("Status").Eq(status)); err != nil {
		return nil, err
	}
	sortGrabs(grabs)
	return grabs, nil
}

// GetGrabsByShowID retrieves all grabs of a show, oldest first
func (db *Database) GetGrabsByShowID(showID uint64) ([]*Grab, error) {
	var grabs []*Grab
	if err := db.store.Find(&grabs, bolthold.Where("ShowID").Eq(showID)); err != nil {
		return nil, err
	}
	sortGrabs(grabs)
	return grabs, nil
}

// GetAllGrabs retrieves all grab records, oldest first
func (db *Database) GetAllGrabs() ([]*Grab, error) {
	var grabs []*Grab
	if err := db.store.Find(&grabs, nil); err != nil {
		return nil, err
	}
	sortGrabs(grabs)
	return grabs, nil
}

// DeleteGrabsBefore deletes grab records submitted before the cutoff and returns how many were removed
func (db *Database) DeleteGrabsBefore(cutoff time.Time) (int, error) {
	grabs, err := db.GetAllGrabs()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, grab := range grabs {
		if !grab.SubmittedAt.Before(cutoff) {
			continue
		}
		if err := db.store.Delete(grab.ID, &Grab{}); err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

func sortGrabs(grabs []*Grab) {
	sort.Slice(grabs, func(i, j int) bool { return grabs[i].ID < grabs[j].ID })
}
