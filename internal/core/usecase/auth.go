package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/ports"
)

type AuthUseCase struct {
	backend ports.AuthBackend
	store   ports.SessionStore
	logger  *slog.Logger
}

func NewAuthUseCase(backend ports.AuthBackend, store ports.SessionStore, logger *slog.Logger) *AuthUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthUseCase{backend: backend, store: store, logger: logger}
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.Invalidf("Email and password are required")
	}
	session, err := uc.backend.Login(ctx, domain.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := uc.save(ctx, session); err != nil {
		return nil, err
	}
	uc.logger.Info("session_started", "user_id", session.User.ID, "role", session.User.Role)
	return session, nil
}

func (uc *AuthUseCase) Register(ctx context.Context, reg domain.Registration) (*domain.Session, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Name = strings.TrimSpace(reg.Name)
	required := []struct{ field, value string }{
		{"username", reg.Username},
		{"email", reg.Email},
		{"password", reg.Password},
		{"name", reg.Name},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, domain.Invalidf("%s is required", r.field)
		}
	}
	session, err := uc.backend.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := uc.save(ctx, session); err != nil {
		return nil, err
	}
	uc.logger.Info("account_registered", "user_id", session.User.ID)
	return session, nil
}

// Logout clears the local session even when the backend call fails.
func (uc *AuthUseCase) Logout(ctx context.Context) error {
	if err := uc.backend.Logout(ctx); err != nil {
		uc.logger.Warn("logout_request_failed", "error", err)
	}
	if err := uc.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (uc *AuthUseCase) CurrentUser(ctx context.Context) (*domain.User, error) {
	user, err := uc.backend.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current user: %w", err)
	}
	return user, nil
}

func (uc *AuthUseCase) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" || next == "" {
		return domain.Invalidf("Current and new passwords are required")
	}
	if err := uc.backend.ChangePassword(ctx, current, next); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// Session returns the stored session, or ErrUnauthorized when none is present.
func (uc *AuthUseCase) Session(ctx context.Context) (*domain.Session, error) {
	session, err := uc.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !session.Valid() {
		return nil, fmt.Errorf("load session: %w", domain.ErrUnauthorized)
	}
	return session, nil
}

func (uc *AuthUseCase) save(ctx context.Context, session *domain.Session) error {
	if !session.Valid() {
		return domain.WrapError(domain.ErrServer, "store session", fmt.Errorf("response carries no access token"))
	}
	if err := uc.store.Save(ctx, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}
