package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptforge/auth-service/internal/auth/domain"
	"github.com/promptforge/auth-service/internal/auth/dto"
	"github.com/promptforge/auth-service/internal/auth/password"
	autherror "github.com/promptforge/auth-service/internal/errors"
	"github.com/promptforge/auth-service/pkg/constant"
)

// UserService is the single authority for turning credentials into tokens and
// for the lifecycle transitions of trust: registration, login, refresh
// rotation, logout, and password change.
type UserService struct {
	repo         domain.UserRepository
	tokenService TokenGenerator
}

func NewUserService(repo domain.UserRepository, tokenService TokenGenerator) *UserService {
	return &UserService{
		repo:         repo,
		tokenService: tokenService,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	email := normalizeEmail(input.Email)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hash, err := password.FromPlaintext(input.Password).Digest()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         constant.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokenPair(ctx, user, "", "")
	if err != nil {
		return nil, err
	}

	log.Printf("new user registered: %s", user.Email)

	return &dto.AuthResponse{User: dto.NewUserOutput(user), Tokens: *tokens}, nil
}

func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}

	// Same error for an unknown email and a wrong password, so responses
	// cannot be used to enumerate accounts.
	if user == nil {
		return nil, autherror.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, autherror.ErrAccountDeactivated
	}

	if !password.Verify(input.Password, user.PasswordHash) {
		return nil, autherror.ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	tokens, err := s.issueTokenPair(ctx, user, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	log.Printf("user logged in: %s", user.Email)

	return &dto.AuthResponse{User: dto.NewUserOutput(user), Tokens: *tokens}, nil
}

func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenPair, error) {
	stored, err := s.repo.GetRefreshToken(ctx, input.RefreshToken)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, autherror.ErrRefreshTokenNotFound
	}

	if !stored.IsValid() {
		// A revoked or expired token presented again is a replay signal:
		// revoke every session the owner has and force re-login everywhere.
		if err := s.repo.RevokeAllByUserID(ctx, stored.UserID); err != nil {
			return nil, err
		}
		return nil, autherror.ErrRefreshTokenInvalid
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}
	if !user.IsActive {
		return nil, autherror.ErrAccountDeactivated
	}

	// Rotation: the presented token is spent before its replacement exists.
	if err := s.repo.RevokeRefreshToken(ctx, stored.ID); err != nil {
		return nil, err
	}

	return s.issueTokenPair(ctx, user, input.UserAgent, input.IPAddress)
}

// Logout revokes the matching ledger row. A missing or already revoked token
// is not an error; logout always succeeds from the caller's perspective.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	stored, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}

	return s.repo.RevokeRefreshToken(ctx, stored.ID)
}

// LogoutAll revokes every active refresh token owned by the user.
func (s *UserService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllByUserID(ctx, userID); err != nil {
		return err
	}

	log.Printf("all sessions logged out for user: %s", userID)

	return nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrUserNotFound
	}

	if !password.Verify(currentPassword, user.PasswordHash) {
		return autherror.ErrCurrentPasswordIncorrect
	}

	hash, err := password.FromPlaintext(newPassword).Digest()
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	// Credential rotation must not leave old sessions alive.
	if err := s.repo.RevokeAllByUserID(ctx, userID); err != nil {
		return err
	}

	log.Printf("password changed for user: %s", user.Email)

	return nil
}

// GetUser is a pass-through read used by the auth middleware.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// CleanupExpiredTokens deletes ledger rows that are expired or revoked. It is
// retention hygiene for the periodic sweep, not part of the request path.
func (s *UserService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.repo.DeleteDeadTokens(ctx)
}

func (s *UserService) issueTokenPair(ctx context.Context, user *domain.User, userAgent, ipAddress string) (*dto.TokenPair, error) {
	accessToken, err := s.tokenService.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rt := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: now.Add(constant.RefreshTokenTTL),
		CreatedAt: now,
		Revoked:   false,
	}

	if err := s.repo.StoreRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &dto.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rt.Token,
		ExpiresIn:    s.tokenService.AccessExpirySeconds(),
	}, nil
}
