package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"time"

	"github.com/shashiranjanraj/billbook/app/repositories"
	"github.com/shashiranjanraj/billbook/pkg/collection"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/storage"
	"github.com/shopspring/decimal"
)

var (
	costRatio = decimal.RequireFromString("0.7")
	gstFactor = decimal.RequireFromString("1.18")
)

// SalesRow is one invoice in the sales report.
type SalesRow struct {
	ID           uint            `json:"id"`
	InvoiceNo    string          `json:"invoice_no"`
	Total        decimal.Decimal `json:"total"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	CustomerName string          `json:"customer_name"`
}

type MonthlyProfit struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Expense decimal.Decimal `json:"expense"`
}

type ProfitLoss struct {
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
	Profit  decimal.Decimal `json:"profit"`
	Monthly []MonthlyProfit `json:"monthly"`
}

type MonthlyGST struct {
	Month   string          `json:"month"`
	Taxable decimal.Decimal `json:"taxable"`
	Output  decimal.Decimal `json:"output"`
	Input   decimal.Decimal `json:"input"`
}

type GSTReport struct {
	TaxableSales decimal.Decimal `json:"taxable_sales"`
	OutputGST    decimal.Decimal `json:"output_gst"`
	InputGST     decimal.Decimal `json:"input_gst"`
	NetGST       decimal.Decimal `json:"net_gst"`
	Monthly      []MonthlyGST    `json:"monthly"`
}

// Export points at a file written to the storage disk.
type Export struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
	Rows int    `json:"rows"`
}

// ExportFile is a previously written export.
type ExportFile struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

var exportName = regexp.MustCompile(`^sales-\d{8}-\d{6}\.csv$`)

func exportDir(ownerID uint) string { return fmt.Sprintf("reports/%d", ownerID) }

// ReportService derives the sales, profit and loss, and GST reports from
// an owner's invoices. Cost is estimated at 70% of item amounts and totals
// are treated as 18% GST inclusive.
type ReportService struct {
	invoices *repositories.InvoiceRepository
	disk     storage.Disk

	Now func() time.Time
}

func NewReportService(invoices *repositories.InvoiceRepository, disk storage.Disk) *ReportService {
	return &ReportService{invoices: invoices, disk: disk, Now: time.Now}
}

func (s *ReportService) Sales(ctx context.Context, ownerID uint) ([]SalesRow, error) {
	invoices, err := s.invoices.AllWithCustomer(ctx, ownerID)
	if err != nil {
		return nil, persistence("load sales report", err)
	}

	rows := make([]SalesRow, 0, len(invoices))
	for _, inv := range invoices {
		row := SalesRow{
			ID:        inv.ID,
			InvoiceNo: inv.InvoiceNo,
			Total:     inv.Total,
			Status:    inv.Status,
			CreatedAt: inv.CreatedAt,
		}
		if inv.Customer != nil {
			row.CustomerName = inv.Customer.Name
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// monthKey orders months chronologically while the label reads "Jan 2026".
type monthKey struct {
	year  int
	month time.Month
}

func keyOf(t time.Time) monthKey { return monthKey{t.Year(), t.Month()} }

func (k monthKey) label() string {
	return time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

func (s *ReportService) ProfitLoss(ctx context.Context, ownerID uint) (*ProfitLoss, error) {
	invoices, err := s.invoices.WithItemsSince(ctx, ownerID, "", time.Time{})
	if err != nil {
		return nil, persistence("load profit and loss", err)
	}

	revenue, cost := decimal.Zero, decimal.Zero
	var order []monthKey
	months := make(map[monthKey]*MonthlyProfit)

	for _, inv := range invoices {
		itemCost := decimal.Zero
		for _, it := range inv.Items {
			itemCost = itemCost.Add(it.Amount.Mul(costRatio))
		}
		revenue = revenue.Add(inv.Total)
		cost = cost.Add(itemCost)

		k := keyOf(inv.CreatedAt)
		m, ok := months[k]
		if !ok {
			m = &MonthlyProfit{Month: k.label()}
			months[k] = m
			order = append(order, k)
		}
		m.Revenue = m.Revenue.Add(inv.Total)
		m.Expense = m.Expense.Add(itemCost)
	}

	out := &ProfitLoss{
		Revenue: revenue.Round(2),
		Cost:    cost.Round(2),
		Profit:  revenue.Sub(cost).Round(2),
		Monthly: make([]MonthlyProfit, 0, len(order)),
	}
	for _, k := range order {
		m := months[k]
		out.Monthly = append(out.Monthly, MonthlyProfit{Month: m.Month, Revenue: m.Revenue.Round(2), Expense: m.Expense.Round(2)})
	}
	return out, nil
}

func (s *ReportService) GST(ctx context.Context, ownerID uint) (*GSTReport, error) {
	invoices, err := s.invoices.WithItemsSince(ctx, ownerID, "", time.Time{})
	if err != nil {
		return nil, persistence("load gst report", err)
	}

	taxable, output := decimal.Zero, decimal.Zero
	input := decimal.Zero // purchases are not tracked yet
	var order []monthKey
	months := make(map[monthKey]*MonthlyGST)

	for _, inv := range invoices {
		base := inv.Total.DivRound(gstFactor, 6)
		gst := inv.Total.Sub(base)
		taxable = taxable.Add(base)
		output = output.Add(gst)

		k := keyOf(inv.CreatedAt)
		m, ok := months[k]
		if !ok {
			m = &MonthlyGST{Month: k.label()}
			months[k] = m
			order = append(order, k)
		}
		m.Taxable = m.Taxable.Add(base)
		m.Output = m.Output.Add(gst)
	}

	out := &GSTReport{
		TaxableSales: taxable.Round(2),
		OutputGST:    output.Round(2),
		InputGST:     input.Round(2),
		NetGST:       output.Sub(input).Round(2),
		Monthly:      make([]MonthlyGST, 0, len(order)),
	}
	for _, k := range order {
		m := months[k]
		out.Monthly = append(out.Monthly, MonthlyGST{
			Month:   m.Month,
			Taxable: m.Taxable.Round(2),
			Output:  m.Output.Round(2),
			Input:   m.Input.Round(2),
		})
	}
	return out, nil
}

// ExportSales writes the sales report as CSV to the storage disk under
// reports/<owner>/.
func (s *ReportService) ExportSales(ctx context.Context, ownerID uint) (*Export, error) {
	rows, err := s.Sales(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "invoice_no", "customer", "status", "total", "created_at"})
	for _, r := range rows {
		_ = w.Write([]string{
			fmt.Sprint(r.ID),
			r.InvoiceNo,
			r.CustomerName,
			r.Status,
			r.Total.StringFixed(2),
			r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, persistence("encode sales export", err)
	}

	name := "sales-" + s.Now().UTC().Format("20060102-150405") + ".csv"
	p := path.Join(exportDir(ownerID), name)
	if err := s.disk.Put(ctx, p, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv"); err != nil {
		return nil, persistence("write sales export", err)
	}

	logger.WithCtx(ctx).Info("sales exported", "owner_id", ownerID, "path", p, "rows", len(rows))
	return &Export{Name: name, Path: p, URL: s.disk.URL(p), Rows: len(rows)}, nil
}

// Exports lists the owner's sales exports, newest first.
func (s *ReportService) Exports(ctx context.Context, ownerID uint) ([]ExportFile, error) {
	files, err := s.disk.List(ctx, exportDir(ownerID))
	if err != nil {
		return nil, persistence("list exports", err)
	}

	out := make([]ExportFile, 0, len(files))
	for _, f := range files {
		name := path.Base(f.Path)
		if !exportName.MatchString(name) {
			continue
		}
		out = append(out, ExportFile{Name: name, Size: f.Size, CreatedAt: f.ModTime, URL: s.disk.URL(f.Path)})
	}
	// Names embed the timestamp, so name order is creation order.
	collection.SortBy(out, func(a, b ExportFile) bool { return a.Name > b.Name })
	return out, nil
}

// OpenExport returns the content of one of the owner's exports. The caller
// closes it.
func (s *ReportService) OpenExport(ctx context.Context, ownerID uint, name string) (io.ReadCloser, error) {
	if !exportName.MatchString(name) {
		return nil, invalid("name", "Invalid export name")
	}
	rc, err := s.disk.Open(ctx, path.Join(exportDir(ownerID), name))
	if errors.Is(err, storage.ErrNotExist) {
		return nil, notFound("Export not found")
	}
	if err != nil {
		return nil, persistence("open export", err)
	}
	return rc, nil
}
