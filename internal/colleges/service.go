// Package colleges manages the college directory users affiliate with. The
// affiliation feeds the college-scoped leaderboard filter and the college
// rank shown in the stats summary.
package colleges

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrCollegeNotFound indicates the referenced college does not exist.
	ErrCollegeNotFound = errors.New("colleges: college not found")
	// ErrInvalidCollege indicates the submitted college fields failed validation.
	ErrInvalidCollege = errors.New("colleges: invalid college")
	// ErrNameTaken indicates a college with the same name already exists.
	ErrNameTaken = errors.New("colleges: name already registered")
)

// IDProvider issues identifiers for new colleges.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required for the college directory.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// Service manages college records.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider IDProvider
}

// NewService constructs the college directory service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("colleges: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("colleges: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
	}, nil
}

// CreateCollegeInput carries the fields accepted when registering a college.
type CreateCollegeInput struct {
	Name string
	City string
}

// CreateCollege registers a new college.
func (s *Service) CreateCollege(ctx context.Context, input CreateCollegeInput) (College, error) {
	name := strings.TrimSpace(input.Name)
	city := strings.TrimSpace(input.City)

	if len(name) < 2 {
		return College{}, fmt.Errorf("%w: name must be at least 2 characters", ErrInvalidCollege)
	}
	if len(city) < 2 {
		return College{}, fmt.Errorf("%w: city must be at least 2 characters", ErrInvalidCollege)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&College{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return College{}, err
	}
	if count > 0 {
		return College{}, ErrNameTaken
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return College{}, err
	}

	college := College{
		ID:        id,
		Name:      name,
		City:      city,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&college).Error; err != nil {
		return College{}, err
	}
	return college, nil
}

// Profile is a college record joined with its member count.
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Members int64  `json:"members"`
}

const profileColumns = `colleges.id, colleges.name, colleges.city,
	(SELECT COUNT(*) FROM users WHERE users.college_id = colleges.id) AS members`

// GetByID returns the college with the provided identifier and how many
// users affiliate with it.
func (s *Service) GetByID(ctx context.Context, collegeID string) (Profile, error) {
	var profile Profile
	err := s.db.WithContext(ctx).
		Table("colleges").
		Select(profileColumns).
		Where("colleges.id = ?", collegeID).
		Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrCollegeNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// List returns every college ordered by name, each with its member count.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	err := s.db.WithContext(ctx).
		Table("colleges").
		Select(profileColumns).
		Order("colleges.name ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
