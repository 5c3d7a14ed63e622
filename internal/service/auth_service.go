package service

import (
	"context"
	"errors"
	"time"

	"github.com/formflow/dms/internal/auth"
	"github.com/formflow/dms/internal/models"
	"github.com/formflow/dms/internal/repository"
)

type AuthService struct {
	users     *repository.UserRepo
	jwtSecret string
}

func NewAuthService(users *repository.UserRepo, jwtSecret string) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret}
}

type AuthResult struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Lab         string `json:"lab"`
	Designation string `json:"designation"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	existing, _ := s.users.FindByEmail(ctx, in.Email)
	if existing != nil {
		return nil, errors.New("email already registered")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         models.RoleUser,
		Lab:          in.Lab,
		Designation:  in.Designation,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	token, err := auth.GenerateToken(s.jwtSecret, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user.ToResponse()}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("invalid credentials")
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, errors.New("invalid credentials")
	}
	token, err := auth.GenerateToken(s.jwtSecret, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user.ToResponse()}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// SeedAdmin creates the bootstrap admin account if it does not exist yet.
// The admin carries approval authority.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	existing, _ := s.users.FindByEmail(ctx, email)
	if existing != nil {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user := &models.User{
		Email:                email,
		PasswordHash:         hash,
		Name:                 "Admin",
		Role:                 models.RoleAdmin,
		HasApprovalAuthority: true,
		CreatedAt:            time.Now().UTC(),
	}
	_, err = s.users.Create(ctx, user)
	return err
}
