package utils

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/wneessen/go-mail"

	"vitacart_back_end/internal/models"
)

// Euros formate un montant en centimes pour l'affichage.
func Euros(cents int64) string {
	return fmt.Sprintf("%.2f€", float64(cents)/100)
}

func SendConfirmationEmail(to, subject, htmlBody string, pdfAttachment []byte) error {
	msg := mail.NewMsg()

	if err := msg.From(fromAddress()); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if pdfAttachment != nil {
		msg.AttachReader("facture_vitacart.pdf", bytes.NewReader(pdfAttachment))
	}

	client, err := smtpClient()
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

func fromAddress() string {
	if from := os.Getenv("SMTP_FROM"); from != "" {
		return from
	}
	return "noreply@vitacart.fr"
}

func smtpClient() (*mail.Client, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "ssl0.ovh.net"
	}
	return mail.NewClient(host,
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
}

// GenerateOrderConfirmationHTML génère le HTML de confirmation de commande
func GenerateOrderConfirmationHTML(order models.Order, userEmail string) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td>%s (%s, %s)</td>
				<td>%d</td>
				<td>%s</td>
				<td>%s</td>
			</tr>`, item.ProductName, item.Flavor, item.PackSize,
			item.Quantity, Euros(item.SalePriceCents), Euros(item.LineTotalCents()))
	}

	couponRow := ""
	if order.CouponCode != "" {
		couponRow = fmt.Sprintf(`<p>Coupon %s : -%s</p>`, order.CouponCode, Euros(order.CouponCents))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Confirmation de commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Confirmation de votre commande %s</h2>
		<p>Bonjour,</p>
		<p>Merci pour votre commande chez VitaCart. Voici le récapitulatif :</p>
		<table width="100%%" border="0" cellpadding="8" cellspacing="0" style="border-collapse: collapse;">
			<tr style="background-color: #f0f0f0;">
				<th align="left">Produit</th>
				<th align="left">Qté</th>
				<th align="left">Prix</th>
				<th align="left">Total</th>
			</tr>
			%s
		</table>
		%s
		<p>Livraison : %s</p>
		<h3>Total : %s</h3>
		<p>Votre facture est jointe à cet e-mail.</p>
		<p style="color: #888; font-size: 12px;">Cet e-mail a été envoyé à %s</p>
	</div>
</body>
</html>`, order.OrderNumber, itemsHTML, couponRow,
		Euros(order.ShippingCents), Euros(order.TotalCents), userEmail)
}
