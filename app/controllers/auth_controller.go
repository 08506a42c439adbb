package controllers

import (
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
)

type AuthController struct {
	accounts *services.AccountService
}

func NewAuthController(accounts *services.AccountService) *AuthController {
	return &AuthController{accounts: accounts}
}

// Register POST /api/auth/register
func (ac *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := ac.accounts.Register(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(user)
}

// Login POST /api/auth/login
func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	session, err := ac.accounts.Login(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(session)
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh POST /api/auth/refresh
func (ac *AuthController) Refresh(c *ctx.Context) {
	var in refreshInput
	if !c.BindJSON(&in) {
		return
	}
	session, err := ac.accounts.Refresh(c.Context(), in.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(session)
}
