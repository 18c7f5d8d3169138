package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
)

var (
	// ErrRosterImportDisabled indicates roster import is switched off.
	ErrRosterImportDisabled = errors.New("roster import is disabled")
	// ErrRosterUnauthorized indicates the import token did not match.
	ErrRosterUnauthorized = errors.New("invalid roster token")
)

// RosterService provisions the teachers and students referenced by tokens.
type RosterService interface {
	Import(ctx context.Context, token string, payload dto.RosterImportRequest) (dto.RosterImportResponse, error)
}

type rosterService struct {
	users     repository.UserRepository
	validator *validator.Validate
	enabled   bool
	token     string
	logger    zerolog.Logger
}

// NewRosterService constructs the roster importer.
func NewRosterService(users repository.UserRepository, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) RosterService {
	return &rosterService{
		users:     users,
		validator: validate,
		enabled:   enabled,
		token:     strings.TrimSpace(token),
		logger:    logger.With().Str("component", "roster_service").Logger(),
	}
}

func (s *rosterService) Import(ctx context.Context, token string, payload dto.RosterImportRequest) (dto.RosterImportResponse, error) {
	if !s.enabled {
		return dto.RosterImportResponse{}, ErrRosterImportDisabled
	}
	if !s.validToken(token) {
		return dto.RosterImportResponse{}, ErrRosterUnauthorized
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.RosterImportResponse{}, err
	}

	// Later entries win for a repeated username.
	byName := make(map[string]int, len(payload.Users))
	users := make([]models.User, 0, len(payload.Users))
	for _, entry := range payload.Users {
		user := models.User{
			Username: strings.TrimSpace(entry.Username),
			Role:     entry.Role,
		}
		if entry.Role == models.RoleStudent {
			user.ClassID = strings.TrimSpace(entry.ClassID)
			user.StudentNumber = strings.TrimSpace(entry.StudentNumber)
		}
		if idx, ok := byName[user.Username]; ok {
			users[idx] = user
			continue
		}
		byName[user.Username] = len(users)
		users = append(users, user)
	}

	affected, err := s.users.UpsertBatch(ctx, users)
	if err != nil {
		return dto.RosterImportResponse{}, fmt.Errorf("import roster: %w", err)
	}

	s.logger.Info().Int("entries", len(users)).Int64("affected", affected).Msg("roster imported")
	return dto.RosterImportResponse{Affected: affected}, nil
}

func (s *rosterService) validToken(token string) bool {
	if s.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.token), []byte(strings.TrimSpace(token))) == 1
}
