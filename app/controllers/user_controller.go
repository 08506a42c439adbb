package controllers

import (
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
)

// UserController serves the signed-in account: profile, deletion and
// password changes.
type UserController struct {
	accounts *services.AccountService
}

func NewUserController(accounts *services.AccountService) *UserController {
	return &UserController{accounts: accounts}
}

func (uc *UserController) Me(c *ctx.Context) {
	user, err := uc.accounts.Me(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(user)
}

func (uc *UserController) Update(c *ctx.Context) {
	var in services.ProfileInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := uc.accounts.UpdateProfile(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(user)
}

func (uc *UserController) Destroy(c *ctx.Context) {
	if err := uc.accounts.DeleteAccount(c.Context(), c.UserID()); err != nil {
		fail(c, err)
		return
	}
	c.Message("Account deleted")
}

func (uc *UserController) ChangePassword(c *ctx.Context) {
	var in services.ChangePasswordInput
	if !c.BindJSON(&in) {
		return
	}
	if err := uc.accounts.ChangePassword(c.Context(), c.UserID(), in); err != nil {
		fail(c, err)
		return
	}
	c.Message("Password updated")
}
