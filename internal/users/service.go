package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/leaddesk/leaddesk/internal/platform/cache"
	"github.com/leaddesk/leaddesk/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	ReplaceTargets(ctx context.Context, userID int64, targets []Target) error
	ListTargets(ctx context.Context, userID int64) ([]Target, error)
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	cache  *cache.Versioned
	logger *slog.Logger
	cost   int
}

// NewService builds Service instance. cache may be nil.
func NewService(repo RepositoryPort, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, logger: logger, cost: bcrypt.DefaultCost}
}

// ListUsers returns users matching filter. Results are cached per filter.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) ([]User, error) {
	key, err := s.cache.BuildKey(ctx, "list", string(filter.Designation), string(filter.Status))
	if err != nil {
		s.logger.Warn("users cache key", slog.Any("error", err))
		return s.repo.ListUsers(ctx, filter)
	}
	var out []User
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.ListUsers(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// ActiveBDEs returns the candidate list for appointment assignment.
func (s *Service) ActiveBDEs(ctx context.Context) ([]User, error) {
	return s.ListUsers(ctx, ListFilter{Designation: shared.DesignationBDE, Status: StatusActive})
}

// GetUser returns one user with its targets.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	targets, err := s.repo.ListTargets(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("list targets: %w", err)
	}
	user.Targets = targets
	return user, nil
}

// CreateUser registers a new employee.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (User, error) {
	designation, _ := shared.ParseDesignation(req.Designation)
	status := StatusActive
	if req.Status != "" {
		status = Status(req.Status)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Mobile:       req.Mobile,
		Designation:  designation,
		Status:       status,
		CityIDs:      req.CityIDs,
		CategoryIDs:  req.CategoryIDs,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return User{}, shared.FieldErrors{"email": "Email already exists"}
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	s.invalidate(ctx)
	return user, nil
}

// UpdateUser applies the non-nil fields of req.
func (s *Service) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Mobile != nil {
		user.Mobile = *req.Mobile
	}
	if req.Designation != nil {
		user.Designation, _ = shared.ParseDesignation(*req.Designation)
	}
	if req.Status != nil {
		user.Status = Status(*req.Status)
	}
	if req.CityIDs != nil {
		user.CityIDs = *req.CityIDs
	}
	if req.CategoryIDs != nil {
		user.CategoryIDs = *req.CategoryIDs
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.cost)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	updated, err := s.repo.UpdateUser(ctx, user)
	if err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	s.invalidate(ctx)
	return updated, nil
}

// SetTargets upserts the monthly targets of one user and returns the full list.
func (s *Service) SetTargets(ctx context.Context, id int64, reqs []TargetRequest) ([]Target, error) {
	if _, err := s.repo.GetUser(ctx, id); err != nil {
		return nil, err
	}
	seen := make(map[[2]int]struct{}, len(reqs))
	targets := make([]Target, 0, len(reqs))
	for i, req := range reqs {
		period := [2]int{req.Year, req.Month}
		if _, dup := seen[period]; dup {
			return nil, shared.FieldErrors{fmt.Sprintf("targets[%d]", i): "Duplicate month and year"}
		}
		seen[period] = struct{}{}
		targets = append(targets, Target{UserID: id, Month: req.Month, Year: req.Year, Target: req.Target, Achievement: req.Achievement})
	}
	if err := s.repo.ReplaceTargets(ctx, id, targets); err != nil {
		return nil, fmt.Errorf("set targets: %w", err)
	}
	return s.repo.ListTargets(ctx, id)
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("users cache bump", slog.Any("error", err))
	}
}
