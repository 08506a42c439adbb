package controllers

import (
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
)

type OTPController struct {
	otp *services.OTPService
}

func NewOTPController(otp *services.OTPService) *OTPController {
	return &OTPController{otp: otp}
}

func (oc *OTPController) Send(c *ctx.Context) {
	var in services.OTPSendInput
	if !c.BindJSON(&in) {
		return
	}
	if err := oc.otp.Send(c.Context(), in); err != nil {
		fail(c, err)
		return
	}
	c.Message("OTP sent")
}

func (oc *OTPController) Verify(c *ctx.Context) {
	var in services.OTPVerifyInput
	if !c.BindJSON(&in) {
		return
	}
	if err := oc.otp.Verify(c.Context(), in); err != nil {
		fail(c, err)
		return
	}
	c.Message("OTP verified")
}
