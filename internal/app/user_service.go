package app

import (
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"household-helper/internal/model"
	"household-helper/internal/repository"
)

const minPasswordLength = 6

type UserService struct {
	userRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

type CreateUserInput struct {
	Username string
	Password string
	Roles    []string
}

type UpdateUserInput struct {
	Password string // empty keeps the current password
	Roles    []string
}

// Create adds a user with exactly the supplied role set.
func (s *UserService) Create(input CreateUserInput) (*Identity, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || len(input.Password) < minPasswordLength {
		return nil, ErrInvalidInput
	}
	roles, err := model.ParseRoles(input.Roles)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: string(hash)}
	if err := s.userRepo.Create(user, roles); err != nil {
		return nil, err
	}

	return &Identity{ID: user.ID, Username: user.Username, Disabled: user.Disabled, Roles: roles}, nil
}

// Update replaces the user's role set wholesale (no union with the old set)
// and optionally resets the password.
func (s *UserService) Update(id uint, input UpdateUserInput) (*Identity, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	roles, err := model.ParseRoles(input.Roles)
	if err != nil {
		return nil, err
	}

	newHash := ""
	if input.Password != "" {
		if len(input.Password) < minPasswordLength {
			return nil, ErrInvalidInput
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password failed: %w", err)
		}
		newHash = string(hash)
	}

	if err := s.userRepo.ReplaceRoles(id, roles, newHash); err != nil {
		return nil, err
	}

	current, err := s.userRepo.RolesByUserID(id)
	if err != nil {
		return nil, err
	}
	return &Identity{ID: user.ID, Username: user.Username, Disabled: user.Disabled, Roles: current}, nil
}

// Delete removes the user; sessions and messages go with it.
func (s *UserService) Delete(id uint) error {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.userRepo.Delete(id)
}

func (s *UserService) List() ([]Identity, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, err
	}
	identities := make([]Identity, 0, len(users))
	for _, user := range users {
		roles, err := s.userRepo.RolesByUserID(user.ID)
		if err != nil {
			return nil, err
		}
		identities = append(identities, Identity{
			ID:       user.ID,
			Username: user.Username,
			Disabled: user.Disabled,
			Roles:    roles,
		})
	}
	return identities, nil
}

// BootstrapAdmin creates the initial "admin" user when the credential store
// is empty and a bootstrap password was configured. Idempotent otherwise.
func (s *UserService) BootstrapAdmin(password string) error {
	count, err := s.userRepo.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		log.Printf("no users exist and no bootstrap admin password configured; set INIT_ADMIN_PASSWORD")
		return nil
	}
	if _, err := s.Create(CreateUserInput{
		Username: "admin",
		Password: password,
		Roles:    []string{string(model.RoleAdmin)},
	}); err != nil {
		return fmt.Errorf("create initial admin failed: %w", err)
	}
	log.Printf("initial admin user created")
	return nil
}
