package controllers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/amaumene/tvarr/internal/models"
)

// ShowCatalog serializes every write to the tracked show records.
// Readers go straight to the database.
type ShowCatalog struct {
	db *models.Database
	mu sync.Mutex
}

// NewShowCatalog creates a new show catalog
func NewShowCatalog(db *models.Database) *ShowCatalog {
	return &ShowCatalog{db: db}
}

// CreateUnique stores a new show unless one with the same name is already tracked
func (c *ShowCatalog) CreateUnique(show *models.TrackedShow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.GetShowByName(show.Name); err == nil {
		return fmt.Errorf("%s: %w", show.Name, ErrShowExists)
	} else if !errors.Is(err, models.ErrShowNotFound) {
		return fmt.Errorf("failed to check existing shows: %w", err)
	}
	return c.db.CreateShow(show)
}

// Update reloads the show, applies mutate and persists it in one write.
// Nothing is written when mutate returns an error.
func (c *ShowCatalog) Update(id uint64, mutate func(show *models.TrackedShow) error) (*models.TrackedShow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	show, err := c.db.GetShowByID(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(show); err != nil {
		return nil, err
	}
	if err := c.db.UpdateShow(show); err != nil {
		return nil, err
	}
	return show, nil
}

// Delete removes a show
func (c *ShowCatalog) Delete(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.DeleteShow(id)
}

// Get returns one show
func (c *ShowCatalog) Get(id uint64) (*models.TrackedShow, error) {
	return c.db.GetShowByID(id)
}

// GetByName returns the show with the given name, ignoring case
func (c *ShowCatalog) GetByName(name string) (*models.TrackedShow, error) {
	return c.db.GetShowByName(name)
}

// List returns every show in ID order
func (c *ShowCatalog) List() ([]*models.TrackedShow, error) {
	return c.db.GetAllShows()
}

// Active returns active shows in ID order
func (c *ShowCatalog) Active() ([]*models.TrackedShow, error) {
	return c.db.GetActiveShows()
}
