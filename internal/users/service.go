package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrUserNotFound indicates the requested account does not exist.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrInvalidProfile indicates the submitted profile fields failed validation.
	ErrInvalidProfile = errors.New("users: invalid profile")
	// ErrUsernameTaken indicates the requested username is already in use.
	ErrUsernameTaken = errors.New("users: username already taken")
	// ErrEmailTaken indicates the requested email is already in use.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrCollegeNotFound indicates the submitted college affiliation does not
	// refer to a stored college.
	ErrCollegeNotFound = errors.New("users: college not found")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IDProvider issues identifiers for new accounts.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// Service manages account records and their connected platform handles.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider IDProvider
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("users: id provider required")
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

// CreateUserInput carries the fields accepted at registration. CollegeID is
// optional; when set it must refer to a stored college.
type CreateUserInput struct {
	Username  string
	Name      string
	Email     string
	CollegeID string
}

// CreateUser registers a new account with no connected platforms and a zero
// score.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	username := strings.TrimSpace(input.Username)
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	collegeID := strings.TrimSpace(input.CollegeID)

	if len(username) < 3 || !usernamePattern.MatchString(username) {
		return User{}, fmt.Errorf("%w: username must be at least 3 characters of letters, numbers, hyphens or underscores", ErrInvalidProfile)
	}
	if len(name) < 2 {
		return User{}, fmt.Errorf("%w: name must be at least 2 characters", ErrInvalidProfile)
	}
	if !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: invalid email address", ErrInvalidProfile)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return User{}, err
	}
	if count > 0 {
		return User{}, ErrUsernameTaken
	}
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return User{}, err
	}
	if count > 0 {
		return User{}, ErrEmailTaken
	}
	if collegeID != "" {
		if err := s.db.WithContext(ctx).Table("colleges").Where("id = ?", collegeID).Count(&count).Error; err != nil {
			return User{}, err
		}
		if count == 0 {
			return User{}, ErrCollegeNotFound
		}
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:        id,
		Username:  username,
		Name:      name,
		Email:     email,
		CollegeID: collegeID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, err
	}
	return user, nil
}

// GetByID returns the account with the provided identifier.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetByUsername returns the account registered under the provided username.
func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// PlatformHandles carries the per-platform handles a user wants connected.
// A nil field leaves the stored handle untouched; an empty string disconnects
// the platform.
type PlatformHandles struct {
	GitHub     *string
	LeetCode   *string
	HackerRank *string
}

// UpdatePlatformHandles stores the submitted handle changes and returns the
// refreshed account.
func (s *Service) UpdatePlatformHandles(ctx context.Context, userID string, handles PlatformHandles) (User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}

	updates := map[string]interface{}{}
	if handles.GitHub != nil {
		updates["github_username"] = strings.TrimSpace(*handles.GitHub)
	}
	if handles.LeetCode != nil {
		updates["leetcode_username"] = strings.TrimSpace(*handles.LeetCode)
	}
	if handles.HackerRank != nil {
		updates["hackerrank_username"] = strings.TrimSpace(*handles.HackerRank)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return User{}, err
	}
	return s.GetByID(ctx, userID)
}

// ListWithAnyHandle returns every account with at least one connected
// platform, the population the bulk sync iterates over.
func (s *Service) ListWithAnyHandle(ctx context.Context) ([]User, error) {
	var accounts []User
	err := s.db.WithContext(ctx).
		Where("github_username <> '' OR leetcode_username <> '' OR hackerrank_username <> ''").
		Order("created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
