package orders

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx"

	"github.com/ariefcatur/go-storefront/internal/backend"
)

var ErrUnknownFormat = errors.New("orders: unknown export format")

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	}
	return "", ErrUnknownFormat
}

func (f Format) Ext() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return "csv"
}

func (f Format) ContentType() string {
	if f == FormatExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename is orders_<unix millis>.<ext>.
func (f Format) Filename(now time.Time) string {
	return fmt.Sprintf("orders_%d.%s", now.UnixMilli(), f.Ext())
}

// File is a finished export ready to be handed to a download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Exporter interface {
	ExportOrders(ctx context.Context, format, status, courier string) ([]byte, error)
}

// ExportRemote asks the backend to render the export. "All" or empty status
// and courier are left out of the request.
func ExportRemote(ctx context.Context, api Exporter, f Format, status, courier string, now time.Time) (File, error) {
	data, err := api.ExportOrders(ctx, string(f), filterValue(status), filterValue(courier))
	if err != nil {
		return File{}, err
	}
	return File{Name: f.Filename(now), ContentType: f.ContentType(), Data: data}, nil
}

func filterValue(s string) string {
	s = strings.TrimSpace(s)
	if s == All {
		return ""
	}
	return s
}

var exportHeader = []string{
	"Order ID", "Customer", "Email", "Phone", "City", "Items",
	"Total", "Payment Method", "Payment Status", "Status",
	"Courier", "Tracking Number", "Created At",
}

func exportRow(o backend.Order) []string {
	name := o.ShippingAddress.FullName
	if name == "" {
		name = o.User.Name
	}
	email := o.ShippingAddress.Email
	if email == "" {
		email = o.User.Email
	}
	items := 0
	for _, it := range o.Items {
		items += it.Quantity
	}
	created := ""
	if !o.CreatedAt.IsZero() {
		created = o.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}
	return []string{
		o.ID, name, email, o.ShippingAddress.Phone, o.ShippingAddress.City,
		strconv.Itoa(items),
		strconv.FormatFloat(o.TotalAmount, 'f', 2, 64),
		o.PaymentMethod, o.PaymentStatus, o.Status,
		o.Courier(), o.TrackingNumber(), created,
	}
}

// WriteCSV renders a list locally, one header row then one row per order.
func WriteCSV(w io.Writer, list []backend.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, o := range list {
		if err := cw.Write(exportRow(o)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders the same columns as WriteCSV into a single "Orders" sheet.
func WriteXLSX(w io.Writer, list []backend.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return err
	}
	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetValue(h)
	}
	for _, o := range list {
		row := sheet.AddRow()
		for _, v := range exportRow(o) {
			row.AddCell().SetValue(v)
		}
	}
	return file.Write(w)
}

// WriteLocal picks the writer for f.
func WriteLocal(w io.Writer, f Format, list []backend.Order) error {
	if f == FormatExcel {
		return WriteXLSX(w, list)
	}
	return WriteCSV(w, list)
}
