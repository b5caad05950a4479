// Package invoice renders a checkout result into a paginated PDF document.
// Rendering is a pure function of its input: identical data produces
// byte-identical documents.
package invoice

import (
	"bytes"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/xenking/smart-billing/internal/domain/order"
)

// Static shop identity printed on every invoice.
const (
	shopName    = "Smart Billing"
	shopAddress = "123 Business St, City, Country"
	shopContact = "Phone: 123-456-7890 | Email: info@smartbilling.example"
)

// Data is everything needed to render one invoice.
type Data struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Lines         []order.Line
	Total         decimal.Decimal
	Date          string
	Time          string
}

// creationDate pins the PDF metadata timestamp. fpdf would otherwise embed
// time.Now(), making identical inputs render different bytes.
var creationDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Render produces the invoice PDF: title block, shop identity, customer
// block, line-item table, and grand total. Money is formatted to two
// decimal places.
func Render(d Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(creationDate)
	pdf.SetModificationDate(creationDate)
	pdf.AddPage()

	pdf.SetFillColor(220, 230, 240)
	pdf.SetTextColor(50, 50, 50)

	// Title.
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 10, shopName+" - Invoice", "", 1, "C", true, 0, "")
	pdf.Ln(10)

	// Shop identity.
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, shopName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, shopAddress, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, shopContact, "", 1, "L", false, 0, "")
	pdf.Ln(10)

	// Customer block.
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, "Bill To:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, "Name: "+d.CustomerName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Phone: "+d.CustomerPhone, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Email: "+d.CustomerEmail, "", 1, "L", false, 0, "")
	pdf.Ln(10)

	pdf.CellFormat(0, 5, "Invoice Date: "+d.Date, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Invoice Time: "+d.Time, "", 1, "L", false, 0, "")
	pdf.Ln(10)

	// Line-item table.
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 210, 220)
	pdf.CellFormat(80, 8, "Item", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range d.Lines {
		lineTotal := line.PriceAtSale.Mul(decimal.NewFromInt(int64(line.Quantity)))
		pdf.CellFormat(80, 8, line.ProductName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, strconv.Itoa(line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 8, money(line.PriceAtSale), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, money(lineTotal), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(10)

	// Grand total.
	pdf.SetFillColor(220, 230, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(150, 10, "GRAND TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 10, money(d.Total), "1", 1, "R", true, 0, "")

	pdf.Ln(20)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, "Thank you for your business!", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
