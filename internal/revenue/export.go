package revenue

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
)

// LedgerExport is the assembled data behind a settlement ledger download: the
// month's lines in payment order plus the totals the vendor reconciles
// against.
type LedgerExport struct {
	VendorID uuid.UUID
	Month    int
	Year     int
	Lines    []models.VendorPayment
	Totals   Aggregate
}

// Renderer turns an assembled ledger export into a downloadable document.
type Renderer interface {
	ContentType() string
	FileExtension() string
	Render(export *LedgerExport) ([]byte, error)
}

// RendererFor maps a requested format to its renderer. Both formats emit the
// same comma separated rows; excel only changes the content type the download
// advertises so spreadsheet apps claim the file.
func RendererFor(format string) (Renderer, error) {
	switch format {
	case "", "csv":
		return csvRenderer{contentType: "text/csv"}, nil
	case "excel":
		return csvRenderer{contentType: "application/vnd.ms-excel"}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported export format")
	}
}

type csvRenderer struct {
	contentType string
}

func (r csvRenderer) ContentType() string   { return r.contentType }
func (r csvRenderer) FileExtension() string { return "csv" }

var exportHeader = []string{
	"payment_date", "order_id", "reservation_id", "payment_type",
	"transfer_status", "total_ttc", "commission_incl_vat", "net_ttc",
}

func (r csvRenderer) Render(export *LedgerExport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, line := range export.Lines {
		record := []string{
			line.PaymentDate.Format(time.RFC3339),
			uuidOrEmpty(line.OrderID),
			uuidOrEmpty(line.ReservationID),
			string(line.PaymentType),
			string(line.TransferStatus),
			line.TotalAmountTTC.StringFixed(2),
			line.CommissionInclVAT.StringFixed(2),
			line.NetAmountTTC.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	totals := []string{
		"totals", "", "", fmt.Sprintf("%d lines", export.Totals.Count), "",
		export.Totals.TotalTTC.StringFixed(2),
		export.Totals.Commission.StringFixed(2),
		export.Totals.TotalNet.StringFixed(2),
	}
	if err := w.Write(totals); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func uuidOrEmpty(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
