package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"household-helper/internal/model"
	"household-helper/internal/pkg/jwtutil"
	"household-helper/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCredential = errors.New("incorrect username or password")
	ErrUnauthorized      = errors.New("could not validate credentials")
	ErrDuplicateUser     = errors.New("username already registered")
	ErrUserNotFound      = errors.New("user does not exist")
)

// Identity is the resolved caller: token subject looked up in the credential
// store, roles included. It is what handlers authorize against.
type Identity struct {
	ID       uint         `json:"id"`
	Username string       `json:"username"`
	Disabled bool         `json:"disabled"`
	Roles    []model.Role `json:"roles"`
}

func (i *Identity) HasRole(role model.Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type AuthService struct {
	userRepo  *repository.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(userRepo *repository.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Login verifies credentials and returns a signed bearer token. Unknown
// username, wrong password and disabled account are indistinguishable to the
// caller.
func (s *AuthService) Login(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrInvalidCredential
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return "", err
	}
	if user == nil || user.Disabled {
		return "", ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredential
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.tokenTTL, user.Username)
	if err != nil {
		return "", fmt.Errorf("issue token failed: %w", err)
	}
	return token, nil
}

// ResolveIdentity validates the bearer token and looks the subject up fresh.
// A user deleted or disabled after token issue is rejected even though the
// token itself still verifies.
func (s *AuthService) ResolveIdentity(token string) (*Identity, error) {
	claims, err := jwtutil.ParseToken(s.jwtSecret, token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.GetByUsername(claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Disabled {
		return nil, ErrUnauthorized
	}

	return s.identityOf(user)
}

func (s *AuthService) identityOf(user *model.User) (*Identity, error) {
	roles, err := s.userRepo.RolesByUserID(user.ID)
	if err != nil {
		return nil, err
	}
	return &Identity{
		ID:       user.ID,
		Username: user.Username,
		Disabled: user.Disabled,
		Roles:    roles,
	}, nil
}
