package services

import (
	"fmt"

	"quickchat/auth"
	"quickchat/domain"
	"quickchat/errors"
	"quickchat/repositories"
)

type IAuthService interface {
	Signup(req auth.SignupRequest) (Token, domain.User, error)
	Login(req auth.LoginRequest) (Token, domain.User, error)
	UpdateProfile(userID string, update repositories.ProfileUpdate) (domain.User, error)
	Profile(userID string) (domain.User, error)
}

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

type Token string

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Signup(req auth.SignupRequest) (Token, domain.User, error) {
	// Validate before any expensive cryptographic operation
	if err := auth.ValidateSignup(req); err != nil {
		return "", domain.User{}, err
	}

	// Hashing happens in the service layer to keep the repository unaware
	// of plain passwords.
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.users.CreateUser(req.Email, hashedPassword, req.DisplayName)
	if err != nil {
		return "", domain.User{}, err
	}

	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return "", domain.User{}, err
	}

	token, err := s.tokens.Generate(user.ID, user.Roles)
	if err != nil {
		return "", domain.User{}, errors.ErrTokenGeneration
	}
	return Token(token), user.ToDomain(), nil
}

func (s *AuthService) Login(req auth.LoginRequest) (Token, domain.User, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return "", domain.User{}, err
	}

	user, err := s.users.GetUserByEmail(req.Email)
	if err != nil {
		// Generic error to prevent user enumeration
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Roles)
	if err != nil {
		return "", domain.User{}, errors.ErrTokenGeneration
	}
	return Token(token), user.ToDomain(), nil
}

func (s *AuthService) UpdateProfile(userID string, update repositories.ProfileUpdate) (domain.User, error) {
	user, err := s.users.UpdateProfile(userID, update)
	if err != nil {
		return domain.User{}, err
	}
	return user.ToDomain(), nil
}

func (s *AuthService) Profile(userID string) (domain.User, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	return user.ToDomain(), nil
}

var _ IAuthService = (*AuthService)(nil)
