package services

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/avinashd07/shop_mitra/apperrors"
	"github.com/avinashd07/shop_mitra/models"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// InvoiceService renders a PDF invoice for a confirmed order by printing the
// HTML template through headless Chrome.
type InvoiceService struct {
	templatePath string
}

func NewInvoiceService() *InvoiceService {
	return &InvoiceService{templatePath: "templates/invoice.html"}
}

type invoiceData struct {
	OrderNumber   string
	CustomerName  string
	Address       string
	City          string
	State         string
	Pincode       string
	Items         []models.OrderItem
	TotalAmount   float64
	PaymentMethod string
	InvoiceDate   string
}

// GenerateInvoice produces the invoice PDF bytes. Only confirmed or refunded
// orders have collected funds to invoice against.
func (s *InvoiceService) GenerateInvoice(ctx context.Context, order *models.Order, payment *models.Payment) ([]byte, error) {
	if order.Status != models.OrderStatusConfirmed && order.Status != models.OrderStatusRefunded {
		return nil, apperrors.InvalidState("an invoice is only available once the order is confirmed")
	}

	method := payment.Provider
	if payment.Method != nil {
		method = *payment.Method
	}

	htmlContent, err := s.renderHTML(invoiceData{
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.ShippingName,
		Address:       order.ShippingAddress,
		City:          order.ShippingCity,
		State:         order.ShippingState,
		Pincode:       order.ShippingPincode,
		Items:         order.Items,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: method,
		InvoiceDate:   time.Now().Format("January 2, 2006"),
	})
	if err != nil {
		return nil, err
	}

	return s.printToPDF(ctx, htmlContent)
}

func (s *InvoiceService) renderHTML(data invoiceData) (string, error) {
	tmpl, err := template.ParseFiles(s.templatePath)
	if err != nil {
		return "", err
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

func (s *InvoiceService) printToPDF(parent context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}
