package services

import (
	"context"
	"strings"

	"github.com/shashiranjanraj/billbook/app/models"
	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/pkg/auth"
	"github.com/shashiranjanraj/billbook/pkg/logger"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"nullable,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates the account profile. Blank fields are left alone.
type ProfileInput struct {
	Name        string `json:"name" validate:"nullable,max=255"`
	Phone       string `json:"phone" validate:"nullable,digits=10"`
	CompanyName string `json:"company_name" validate:"nullable,max=255"`
	Website     string `json:"website" validate:"nullable,url"`
	GSTNumber   string `json:"gst_number" validate:"nullable,max=32"`
	Address     string `json:"address"`
	Country     string `json:"country" validate:"nullable,max=100"`
	State       string `json:"state" validate:"nullable,max=100"`
	City        string `json:"city" validate:"nullable,max=100"`
	Zip         string `json:"zip" validate:"nullable,max=20"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// Session is what a successful login hands back.
type Session struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// AccountService covers registration, login, profile and password changes.
type AccountService struct {
	users *repositories.UserRepository
}

func NewAccountService(users *repositories.UserRepository) *AccountService {
	return &AccountService{users: users}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, persistence("check email", err)
	}
	if taken {
		return nil, invalid("email", "Email already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, persistence("hash password", err)
	}

	u := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: hash,
		Role:     "user",
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, persistence("create user", err)
	}

	logger.WithCtx(ctx).Info("user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies the credentials and issues an access and a refresh token.
// Unknown emails and wrong passwords are reported the same way.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if isNotFound(err) {
			return nil, &UnauthorizedError{Message: "Invalid credentials"}
		}
		return nil, persistence("load user", err)
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		logger.WithCtx(ctx).Warn("login failed", "user_id", u.ID)
		return nil, &UnauthorizedError{Message: "Invalid credentials"}
	}

	return s.issue(u)
}

// Refresh trades a valid refresh token for a new session.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := auth.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, &UnauthorizedError{Message: "Invalid refresh token"}
	}
	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, &UnauthorizedError{Message: "Invalid refresh token"}
		}
		return nil, persistence("load user", err)
	}
	return s.issue(u)
}

func (s *AccountService) issue(u *models.User) (*Session, error) {
	token, err := auth.GenerateToken(u.ID, u.Role)
	if err != nil {
		return nil, persistence("sign token", err)
	}
	refresh, err := auth.GenerateRefreshToken(u.ID, u.Role)
	if err != nil {
		return nil, persistence("sign token", err)
	}
	return &Session{Token: token, RefreshToken: refresh, User: u}, nil
}

func (s *AccountService) Me(ctx context.Context, userID uint) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("User not found")
		}
		return nil, persistence("load user", err)
	}
	return u, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst *string
		src string
	}{
		{&u.Name, in.Name},
		{&u.Phone, in.Phone},
		{&u.CompanyName, in.CompanyName},
		{&u.Website, in.Website},
		{&u.GSTNumber, in.GSTNumber},
		{&u.Address, in.Address},
		{&u.Country, in.Country},
		{&u.State, in.State},
		{&u.City, in.City},
		{&u.Zip, in.Zip},
	} {
		if v := strings.TrimSpace(f.src); v != "" {
			*f.dst = v
		}
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, persistence("update profile", err)
	}
	return u, nil
}

// DeleteAccount removes the user and all of their data.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uint) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if isNotFound(err) {
			return notFound("User not found")
		}
		return persistence("delete account", err)
	}
	logger.WithCtx(ctx).Info("account deleted", "user_id", userID)
	return nil
}

func (s *AccountService) ChangePassword(ctx context.Context, userID uint, in ChangePasswordInput) error {
	if err := checkInput(in); err != nil {
		return err
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.Password, in.CurrentPassword) {
		return invalid("current_password", "Current password is incorrect")
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return persistence("hash password", err)
	}
	u.Password = hash
	if err := s.users.Update(ctx, u); err != nil {
		return persistence("change password", err)
	}
	logger.WithCtx(ctx).Info("password changed", "user_id", userID)
	return nil
}
