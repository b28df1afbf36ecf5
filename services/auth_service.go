package services

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/billing-saas/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService resolves credentials against the auth_users table and the
// matching profile against the users table. The two lookups fail
// differently on purpose: a credential mismatch is not the same thing as
// a credential with no profile behind it.
type AuthService struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewAuthService(db *gorm.DB, timeout time.Duration) *AuthService {
	return &AuthService{db: db, timeout: timeout}
}

// Authenticate verifies email/password and returns the user profile.
// Returns ErrInvalidCredentials when no credential row matches or the
// password comparison fails, ErrProfileNotFound when the credentials are
// good but no profile row exists for the email.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var cred models.AuthUser
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, persistenceError("lookup credentials", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, persistenceError("lookup profile", err)
	}

	return &user, nil
}
