package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/manga-store/manga-store-api/models"
)

// GenerateInvoicePDF renders an A4 invoice for an order: shop header, items
// table with the snapshotted prices, totals, and a QR code carrying a
// human-readable order summary.
func GenerateInvoicePDF(order *models.Order, settings *models.ShopSettings) ([]byte, error) {
	shopName := "Manga Store"
	currency := "USD"
	if settings != nil {
		if settings.ShopName != "" {
			shopName = settings.ShopName
		}
		if settings.Currency != "" {
			currency = settings.Currency
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Invoice %s", order.OrderNumber), false)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(120, 12, shopName)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(120, 6, fmt.Sprintf("Date: %s", order.CreatedAt.Format("2006-01-02")))
	pdf.CellFormat(0, 6, fmt.Sprintf("Invoice no: %s", order.OrderNumber), "", 1, "R", false, 0, "")
	pdf.Cell(120, 6, fmt.Sprintf("Customer: %s %s", order.Customer.FirstName, order.Customer.LastName))
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", order.Status), "", 1, "R", false, 0, "")
	pdf.Cell(0, 6, fmt.Sprintf("Shipping address: %s", order.ShippingAddress))
	pdf.Ln(10)

	// Items table
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(229, 231, 235)
	pdf.CellFormat(90, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Unit price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range order.Items {
		name := item.Product.Name
		if name == "" {
			name = fmt.Sprintf("Product #%d", item.ProductID)
		}
		pdf.CellFormat(90, 8, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f %s", item.Price, currency), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f %s", item.Price*float64(item.Quantity), currency), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 10, "TOTAL", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 10, fmt.Sprintf("%.2f %s", order.TotalAmount, currency), "1", 1, "R", false, 0, "")

	summary := fmt.Sprintf("Shop: %s\nCustomer: %s %s\nOrder: %s\nTotal: %.2f %s\nDate: %s",
		shopName, order.Customer.FirstName, order.Customer.LastName,
		order.OrderNumber, order.TotalAmount, currency, order.CreatedAt.Format("2006-01-02"))
	if err := drawQRCode(pdf, summary); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateStockCatalogPDF renders the admin stock catalog: every product with
// its price and on-hand quantity, plus a QR code with the generation stamp.
func GenerateStockCatalogPDF(products []models.Product, settings *models.ShopSettings) ([]byte, error) {
	shopName := "Manga Store"
	currency := "USD"
	if settings != nil {
		if settings.ShopName != "" {
			shopName = settings.ShopName
		}
		if settings.Currency != "" {
			currency = settings.Currency
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Stock catalog", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, fmt.Sprintf("%s - Stock catalog", shopName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", time.Now().UTC().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(229, 231, 235)
	pdf.CellFormat(95, 8, "Product", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(45, 8, "In stock", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, product := range products {
		pdf.CellFormat(95, 8, product.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 8, fmt.Sprintf("%.2f %s", product.Price, currency), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 8, fmt.Sprintf("%d", product.Quantity), "1", 1, "C", false, 0, "")
	}

	summary := fmt.Sprintf("Stock catalog - %s\nGenerated %s\nCurrency: %s\nProducts: %d",
		shopName, time.Now().UTC().Format("2006-01-02 15:04"), currency, len(products))
	if err := drawQRCode(pdf, summary); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render catalog PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// drawQRCode places a QR code with the given content at the bottom right of
// the current page
func drawQRCode(pdf *gofpdf.Fpdf, content string) error {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr-summary", opts, bytes.NewReader(png))
	pageWidth, pageHeight := pdf.GetPageSize()
	pdf.ImageOptions("qr-summary", pageWidth-45, pageHeight-45, 30, 30, false, opts, 0, "")
	return nil
}
