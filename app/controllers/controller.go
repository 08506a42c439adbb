// Package controllers adapts HTTP requests to the application services.
// Handlers bind and validate input, call one service method and translate
// its typed errors into status codes.
package controllers

import (
	"errors"
	"net/http"

	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
	"github.com/shashiranjanraj/billbook/pkg/logger"
)

// fail writes the response for a service error.
//
//	ValidationError        422 with the field error
//	NotFoundError          404
//	InsufficientStockError 409
//	UnauthorizedError      401
//	anything else          500 "Failed to <op>"
func fail(c *ctx.Context, err error) {
	var (
		ve *services.ValidationError
		nf *services.NotFoundError
		is *services.InsufficientStockError
		ue *services.UnauthorizedError
		pe *services.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		errs := map[string]string{}
		if ve.Field != "" {
			errs[ve.Field] = ve.Message
		}
		c.JSONError(http.StatusUnprocessableEntity, ve.Message, errs)
	case errors.As(err, &nf):
		c.NotFound(nf.Message)
	case errors.As(err, &is):
		c.Error(http.StatusConflict, is.Error())
	case errors.As(err, &ue):
		c.Unauthorized(ue.Message)
	case errors.As(err, &pe):
		logger.WithCtx(c.Context()).Error("request failed", "op", pe.Op, "error", pe.Err)
		c.Error(http.StatusInternalServerError, "Failed to "+pe.Op)
	default:
		logger.WithCtx(c.Context()).Error("request failed", "error", err)
		c.Error(http.StatusInternalServerError, "Internal server error")
	}
}
