package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

// AuthService implements registration and login for the contract stub backend.
type AuthService struct {
	repo      ports.AuthRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(repo ports.AuthRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if email == "" || reg.Password == "" || reg.FirstName == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !reg.Role.Valid() {
		return nil, domain.ErrUnknownRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		User: domain.User{
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			Email:     email,
			Phone:     reg.Phone,
			Role:      reg.Role,
		},
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, err
	}
	return s.issue(created)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AuthPayload, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(account)
}

func (s *AuthService) issue(account *domain.Account) (*domain.AuthPayload, error) {
	token, err := s.generateToken(account)
	if err != nil {
		return nil, err
	}
	user := account.User
	return &domain.AuthPayload{Token: token, User: &user}, nil
}

func (s *AuthService) generateToken(account *domain.Account) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   string(account.ID),
		"email": account.Email,
		"role":  string(account.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
