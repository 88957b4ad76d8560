package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Location is a favorite as listed for its owner.
type Location struct {
	ID           uint   `json:"id"`
	LocationName string `json:"location_name"`
}

// Favorite is the full favorite record.
type Favorite struct {
	ID           uint   `json:"id"`
	UserID       uint   `json:"user_id"`
	LocationName string `json:"location_name"`
}

// FavoriteStore persists (user, location name) pairs. A user cannot favorite
// the same location twice.
type FavoriteStore struct {
	db *gorm.DB
}

func NewFavoriteStore(db *DB) *FavoriteStore {
	return &FavoriteStore{db: db.gorm}
}

// newFavoriteRecord validates a favorite before it is handed to the database.
func newFavoriteRecord(userID uint, locationName string) (favoriteLocationRecord, error) {
	if strings.TrimSpace(locationName) == "" {
		return favoriteLocationRecord{}, fmt.Errorf("%w: location name cannot be empty", ErrInvalid)
	}
	return favoriteLocationRecord{UserID: userID, LocationName: locationName}, nil
}

// AddFavorite stores locationName as a favorite of userID. The insert runs in a
// transaction and is rolled back on any failure.
func (s *FavoriteStore) AddFavorite(ctx context.Context, userID uint, locationName string) error {
	rec, err := newFavoriteRecord(userID, locationName)
	if err != nil {
		return err
	}

	log.Printf("INFO: adding favorite location %q for user_id %d", locationName, userID)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&rec).Error
	})
	switch {
	case err == nil:
		log.Printf("INFO: added favorite location %q for user_id %d", locationName, userID)
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		log.Printf("ERROR: location %q already exists for user_id %d", locationName, userID)
		return fmt.Errorf("%w: location %q is already a favorite", ErrConflict, locationName)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		log.Printf("ERROR: cannot add favorite for unknown user_id %d", userID)
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	default:
		log.Printf("ERROR: adding favorite location %q: %v", locationName, err)
		return storageError("add favorite", err)
	}
}

// GetFavorites lists the favorites of userID ordered by id. A user without
// favorites gets an empty, non-nil slice.
func (s *FavoriteStore) GetFavorites(ctx context.Context, userID uint) ([]Location, error) {
	var recs []favoriteLocationRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, storageError("list favorites", err)
	}

	locations := make([]Location, 0, len(recs))
	for _, r := range recs {
		locations = append(locations, Location{ID: r.ID, LocationName: r.LocationName})
	}
	if len(locations) == 0 {
		log.Printf("INFO: no favorite locations found for user_id %d", userID)
	}
	return locations, nil
}

// DeleteFavorite removes exactly one favorite identified by owner and name.
func (s *FavoriteStore) DeleteFavorite(ctx context.Context, userID uint, locationName string) error {
	log.Printf("INFO: deleting favorite location %q for user_id %d", locationName, userID)
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND location_name = ?", userID, locationName).
		Delete(&favoriteLocationRecord{})
	if res.Error != nil {
		return storageError("delete favorite", res.Error)
	}
	if res.RowsAffected == 0 {
		log.Printf("ERROR: location %q not found for user_id %d", locationName, userID)
		return fmt.Errorf("%w: location %q", ErrNotFound, locationName)
	}
	return nil
}

// GetFavoriteByID returns the favorite with the given id.
func (s *FavoriteStore) GetFavoriteByID(ctx context.Context, id uint) (Favorite, error) {
	var rec favoriteLocationRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Favorite{}, fmt.Errorf("%w: favorite location with id %d", ErrNotFound, id)
		}
		return Favorite{}, storageError("get favorite", err)
	}
	return Favorite{ID: rec.ID, UserID: rec.UserID, LocationName: rec.LocationName}, nil
}
