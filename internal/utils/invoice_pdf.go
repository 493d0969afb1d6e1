package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/skip2/go-qrcode"

	"vitacart_back_end/internal/models"
)

// GenerateSepaQR génère un QR SEPA (EPC) en base64 prêt à mettre dans <img src="...">
func GenerateSepaQR(iban, bic, name, ref string, amountCents int64) (string, error) {
	// format EPC basique
	sepa := fmt.Sprintf(`BCD
001
1
SCT
%s
%s
%s
EUR%.2f
%s`, bic, name, iban, float64(amountCents)/100, ref)

	png, err := qrcode.Encode(sepa, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// GenerateInvoicePDF rend la facture d'une commande en PDF via Chrome headless.
func GenerateInvoicePDF(order models.Order, userEmail string) ([]byte, error) {
	qr := ""
	if iban := os.Getenv("INVOICE_IBAN"); iban != "" {
		var err error
		qr, err = GenerateSepaQR(iban, os.Getenv("INVOICE_BIC"), "VitaCart", order.OrderNumber, order.TotalCents)
		if err != nil {
			return nil, err
		}
	}

	html := generateInvoiceHTML(order, userEmail, qr)
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var pdfBuf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate(dataURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return pdfBuf, nil
}

func generateInvoiceHTML(order models.Order, userEmail, qrBase64 string) string {
	rows := ""
	for _, it := range order.Items {
		if !it.Active() {
			continue
		}
		rows += fmt.Sprintf(`<tr><td>%s (%s, %s)</td><td>%d</td><td>%s</td><td>%s</td></tr>`,
			it.ProductName, it.Flavor, it.PackSize, it.Quantity,
			Euros(it.SalePriceCents), Euros(it.LineTotalCents()))
	}

	qrImg := ""
	if qrBase64 != "" {
		qrImg = fmt.Sprintf(`<img src="%s" width="128" height="128" alt="QR SEPA">`, qrBase64)
	}

	couponRow := ""
	if order.CouponCode != "" {
		couponRow = fmt.Sprintf(`<tr><td colspan="3">Coupon %s</td><td>-%s</td></tr>`,
			order.CouponCode, Euros(order.CouponCents))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Facture %s</title>
<style>
body { font-family: Arial, sans-serif; margin: 40px; color: #222; }
table { width: 100%%; border-collapse: collapse; margin: 20px 0; }
th, td { border-bottom: 1px solid #ddd; padding: 8px; text-align: left; }
h1 { color: #11998e; }
.total { font-size: 18px; font-weight: bold; }
</style>
</head>
<body>
	<h1>VitaCart</h1>
	<p>Facture %s — émise le %s</p>
	<p>Client : %s</p>
	<table>
		<tr><th>Article</th><th>Qté</th><th>Prix</th><th>Total</th></tr>
		%s
		%s
		<tr><td colspan="3">Livraison (%s)</td><td>%s</td></tr>
		<tr class="total"><td colspan="3">Total</td><td>%s</td></tr>
	</table>
	%s
</body>
</html>`, order.OrderNumber, order.OrderNumber, order.CreatedAt.Format("02/01/2006"),
		userEmail, rows, couponRow, order.ShippingName, Euros(order.ShippingCents),
		Euros(order.TotalCents), qrImg)
}
