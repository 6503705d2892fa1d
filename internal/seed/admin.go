package seed

import (
	"context"
	"strings"

	reportdomain "github.com/smallbiznis/hotelops/internal/report/domain"
	"github.com/smallbiznis/hotelops/pkg/db"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AdminParams struct {
	Email    string
	Name     string
	Password string
	// ResetPassword rehashes the password of an existing account.
	ResetPassword bool
}

type AdminResult struct {
	User            reportdomain.User
	Created         bool
	PasswordUpdated bool
}

// EnsureAdmin creates the admin account if no user owns the email. An
// existing account is promoted to admin and, with ResetPassword, gets the
// new password.
func (s *Seeder) EnsureAdmin(ctx context.Context, p AdminParams) (AdminResult, error) {
	email := normalizeEmail(p.Email)
	if email == "" || p.Password == "" {
		return AdminResult{}, ErrInvalidAdmin
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = DefaultAdminName
	}

	existing, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		return AdminResult{}, wrapSeedErr("find admin", err)
	}
	if existing != nil {
		return s.updateAdmin(ctx, *existing, p)
	}

	hash, err := hashPassword(p.Password)
	if err != nil {
		return AdminResult{}, wrapSeedErr("hash password", err)
	}
	user := reportdomain.User{
		ID:           s.node.Generate(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertUser(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Lost a race with another seeder; treat the winner as existing.
			existing, findErr := s.repo.FindUserByEmail(ctx, s.db, email)
			if findErr == nil && existing != nil {
				return s.updateAdmin(ctx, *existing, p)
			}
		}
		return AdminResult{}, wrapSeedErr("insert admin", err)
	}

	s.log.Info("admin user created", zap.String("user_id", user.ID.String()))
	return AdminResult{User: user, Created: true, PasswordUpdated: true}, nil
}

func (s *Seeder) updateAdmin(ctx context.Context, user reportdomain.User, p AdminParams) (AdminResult, error) {
	result := AdminResult{User: user}
	changed := !user.IsAdmin
	user.IsAdmin = true

	if p.ResetPassword {
		hash, err := hashPassword(p.Password)
		if err != nil {
			return AdminResult{}, wrapSeedErr("hash password", err)
		}
		user.PasswordHash = hash
		result.PasswordUpdated = true
		changed = true
	}
	if !changed {
		s.log.Info("admin user already exists", zap.String("user_id", user.ID.String()))
		return result, nil
	}

	if err := s.repo.UpdateUserCredentials(ctx, s.db, &user); err != nil {
		return AdminResult{}, wrapSeedErr("update admin", err)
	}
	result.User = user
	s.log.Info("admin user updated",
		zap.String("user_id", user.ID.String()),
		zap.Bool("password_updated", result.PasswordUpdated),
	)
	return result, nil
}

// CheckAdmin returns the admin account for email, or ErrAdminNotFound when
// the email is unknown or belongs to a non-admin.
func (s *Seeder) CheckAdmin(ctx context.Context, email string) (reportdomain.User, error) {
	user, err := s.repo.FindUserByEmail(ctx, s.db, normalizeEmail(email))
	if err != nil {
		return reportdomain.User{}, wrapSeedErr("find admin", err)
	}
	if user == nil || !user.IsAdmin {
		return reportdomain.User{}, ErrAdminNotFound
	}
	return *user, nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(user reportdomain.User, password string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
