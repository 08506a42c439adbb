package controllers

import (
	"io"
	"net/http"

	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/ctx"
	"github.com/shashiranjanraj/billbook/pkg/logger"
)

type ReportController struct {
	reports *services.ReportService
}

func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

func (rc *ReportController) Sales(c *ctx.Context) {
	rows, err := rc.reports.Sales(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(rows)
}

func (rc *ReportController) ProfitLoss(c *ctx.Context) {
	report, err := rc.reports.ProfitLoss(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(report)
}

func (rc *ReportController) GST(c *ctx.Context) {
	report, err := rc.reports.GST(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(report)
}

// ExportSales writes the sales report as CSV to the storage disk and
// returns where it can be fetched.
func (rc *ReportController) ExportSales(c *ctx.Context) {
	export, err := rc.reports.ExportSales(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(export)
}

func (rc *ReportController) Exports(c *ctx.Context) {
	files, err := rc.reports.Exports(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(files)
}

// DownloadExport streams one export as a CSV attachment.
func (rc *ReportController) DownloadExport(c *ctx.Context) {
	name := c.Param("name")
	body, err := rc.reports.OpenExport(c.Context(), c.UserID(), name)
	if err != nil {
		fail(c, err)
		return
	}
	defer body.Close()

	c.W.Header().Set("Content-Type", "text/csv; charset=utf-8")
	c.W.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	c.W.WriteHeader(http.StatusOK)
	if _, err := io.Copy(c.W, body); err != nil {
		logger.WithCtx(c.Context()).Warn("export download interrupted", "name", name, "error", err)
	}
}
