// Package receipt renders an order as a printable PDF and archives it in the
// object store.
package receipt

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"genfity-pricing-service/internal/merchant"
	"genfity-pricing-service/internal/orders"
	"genfity-pricing-service/internal/storage"
	"genfity-pricing-service/internal/utils"

	"github.com/phpdave11/gofpdf"
)

type Addon struct {
	Name     string
	Quantity int32
	Subtotal string
}

type Item struct {
	Name     string
	Quantity int32
	Unit     string
	Subtotal string
	Notes    string
	Addons   []Addon
}

type Data struct {
	MerchantName    string
	OrderNumber     string
	OrderType       string
	TableNumber     string
	DeliveryAddress string
	PlacedAt        string
	Items           []Item
	Subtotal        string
	TaxAmount       string
	ServiceCharge   string
	PackagingFee    string
	DiscountAmount  string
	DiscountLabel   string
	TotalAmount     string
	PaymentMethod   string
	PaymentStatus   string
}

// Build formats an order in the merchant's currency and timezone. Zero fee
// and discount amounts are left blank so Render skips them.
func Build(order *orders.Order, m *merchant.Config) Data {
	currency := m.Currency
	data := Data{
		MerchantName:    m.Name,
		OrderNumber:     order.OrderNumber,
		OrderType:       order.OrderType,
		TableNumber:     deref(order.TableNumber),
		DeliveryAddress: deref(order.DeliveryAddress),
		PlacedAt:        order.PlacedAt.In(utils.LoadLocation(m.Timezone)).Format("2006-01-02 15:04"),
		Subtotal:        utils.FormatMoney(order.Subtotal, currency),
		TaxAmount:       optionalMoney(order.TaxAmount, currency),
		ServiceCharge:   optionalMoney(order.ServiceChargeAmount, currency),
		PackagingFee:    optionalMoney(order.PackagingFeeAmount, currency),
		DiscountAmount:  optionalMoney(order.DiscountAmount, currency),
		TotalAmount:     utils.FormatMoney(order.TotalAmount, currency),
	}

	for _, item := range order.Items {
		line := Item{
			Name:     item.Name,
			Quantity: item.Quantity,
			Unit:     utils.FormatMoney(item.UnitPrice, currency),
			Subtotal: utils.FormatMoney(item.Subtotal, currency),
			Notes:    deref(item.Notes),
		}
		for _, addon := range item.Addons {
			line.Addons = append(line.Addons, Addon{
				Name:     addon.Name,
				Quantity: addon.Quantity,
				Subtotal: utils.FormatMoney(addon.Subtotal, currency),
			})
		}
		data.Items = append(data.Items, line)
	}

	labels := make([]string, 0, len(order.Discounts))
	for _, d := range order.Discounts {
		if label := strings.TrimSpace(d.Label); label != "" {
			labels = append(labels, label)
		}
	}
	data.DiscountLabel = strings.Join(labels, ", ")

	if order.Payment != nil {
		data.PaymentMethod = order.Payment.Method
		data.PaymentStatus = order.Payment.Status
	}
	return data
}

func Render(data Data) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, data.MerchantName, "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Order %s", data.OrderNumber), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, data.OrderType, "", 1, "C", false, 0, "")
	if data.TableNumber != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Table %s", data.TableNumber), "", 1, "C", false, 0, "")
	}
	if data.DeliveryAddress != "" {
		pdf.MultiCell(0, 4, data.DeliveryAddress, "", "C", false)
	}
	if data.PlacedAt != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Placed: %s", data.PlacedAt), "", 1, "C", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, item := range data.Items {
		pdf.CellFormat(130, 5, fmt.Sprintf("%dx %s @ %s", item.Quantity, item.Name, item.Unit), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, item.Subtotal, "", 1, "R", false, 0, "")
		for _, addon := range item.Addons {
			pdf.CellFormat(130, 4, fmt.Sprintf("  + %dx %s", addon.Quantity, addon.Name), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 4, addon.Subtotal, "", 1, "R", false, 0, "")
		}
		if item.Notes != "" {
			pdf.MultiCell(0, 4, fmt.Sprintf("Notes: %s", item.Notes), "", "L", false)
		}
		pdf.Ln(1)
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Totals", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	totalLine(pdf, "Subtotal", data.Subtotal)
	totalLine(pdf, "Tax", data.TaxAmount)
	totalLine(pdf, "Service", data.ServiceCharge)
	totalLine(pdf, "Packaging", data.PackagingFee)
	if data.DiscountAmount != "" {
		label := "Discount"
		if data.DiscountLabel != "" {
			label = fmt.Sprintf("Discount (%s)", data.DiscountLabel)
		}
		totalLine(pdf, label, "-"+data.DiscountAmount)
	}
	pdf.SetFont("Arial", "B", 11)
	totalLine(pdf, "Total", data.TotalAmount)

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 9)
	if data.PaymentMethod != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Payment: %s", data.PaymentMethod), "", 1, "L", false, 0, "")
	}
	if data.PaymentStatus != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Status: %s", data.PaymentStatus), "", 1, "L", false, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func totalLine(pdf *gofpdf.Fpdf, label, value string) {
	if value == "" {
		return
	}
	pdf.CellFormat(130, 5, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, value, "", 1, "R", false, 0, "")
}

// Putter is the slice of the object store receipts need.
type Putter interface {
	Put(ctx context.Context, obj storage.Object) (string, error)
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Key is where a receipt lives in the bucket.
func Key(merchantID int64, orderNumber string) string {
	name := strings.Trim(unsafeKeyChars.ReplaceAllString(orderNumber, "_"), "_")
	if name == "" {
		name = "order"
	}
	return fmt.Sprintf("receipts/%d/%s.pdf", merchantID, name)
}

// Archive uploads a rendered receipt. Receipts are re-rendered after edits so
// they are never cached as immutable.
func Archive(ctx context.Context, store Putter, merchantID int64, orderNumber string, pdf []byte) (string, error) {
	return store.Put(ctx, storage.Object{
		Key:          Key(merchantID, orderNumber),
		Body:         pdf,
		ContentType:  "application/pdf",
		CacheControl: "private, no-cache",
		Metadata: map[string]string{
			"merchant-id":  strconv.FormatInt(merchantID, 10),
			"order-number": orderNumber,
		},
	})
}

func optionalMoney(value float64, currency string) string {
	if value == 0 {
		return ""
	}
	return utils.FormatMoney(value, currency)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
