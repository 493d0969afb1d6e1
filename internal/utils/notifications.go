package utils

import (
	"fmt"
	"log"
	"os"

	"vitacart_back_end/internal/models"
)

// SendItemStatusEmail envoie un email de notification de changement de statut
// d'un article de commande.
func SendItemStatusEmail(order models.Order, item models.OrderItem, userEmail string) error {
	subject := getStatusEmailSubject(item.Status)
	html := generateStatusEmailHTML(order, item)

	if err := SendConfirmationEmail(userEmail, subject, html, nil); err != nil {
		log.Printf("❌ Erreur envoi email statut: %v", err)
		return err
	}

	log.Printf("📧 Email de statut envoyé: %s → %s", item.Status, userEmail)
	return nil
}

func getStatusEmailSubject(status string) string {
	switch status {
	case models.ItemShipped:
		return "📦 Votre article a été expédié - VitaCart"
	case models.ItemDelivered:
		return "🎉 Votre article a été livré - VitaCart"
	case models.ItemCancelled:
		return "❌ Article annulé - VitaCart"
	case models.ItemReturnRequested:
		return "↩️ Demande de retour reçue - VitaCart"
	case models.ItemReturned:
		return "💰 Retour accepté et remboursé - VitaCart"
	default:
		return "📋 Mise à jour de votre commande - VitaCart"
	}
}

func generateStatusEmailHTML(order models.Order, item models.OrderItem) string {
	statusMessage := getStatusMessage(item.Status)
	statusIcon := getStatusIcon(item.Status)
	statusColor := getStatusColor(item.Status)

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Mise à jour de commande</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5f5f5;">
	<table role="presentation" style="width: 100%%; border-collapse: collapse; background-color: #f5f5f5;">
		<tr>
			<td style="padding: 40px 20px;">
				<table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
					<tr>
						<td style="background: linear-gradient(135deg, #2dce89 0%%, #11998e 100%%); padding: 40px 30px; text-align: center; border-radius: 12px 12px 0 0;">
							<h1 style="margin: 0; color: #ffffff; font-size: 28px; font-weight: 600;">%s VitaCart</h1>
							<p style="margin: 10px 0 0 0; color: #ffffff; font-size: 16px; opacity: 0.9;">Mise à jour de votre commande</p>
						</td>
					</tr>
					<tr>
						<td style="padding: 30px 30px 0 30px; text-align: center;">
							<div style="display: inline-block; padding: 12px 24px; background-color: %s; color: #ffffff; border-radius: 25px; font-weight: 600; font-size: 14px; text-transform: uppercase;">
								%s %s
							</div>
						</td>
					</tr>
					<tr>
						<td style="padding: 30px;">
							<p style="margin: 0 0 20px 0; color: #333333; font-size: 16px; line-height: 1.6;">%s</p>
							<table role="presentation" style="width: 100%%; border-collapse: collapse; background-color: #f8f9fa; border-radius: 8px;">
								<tr>
									<td style="padding: 20px;">
										<p style="margin: 0 0 8px 0; color: #666666; font-size: 14px;"><strong style="color: #333333;">Commande :</strong> %s</p>
										<p style="margin: 0 0 8px 0; color: #666666; font-size: 14px;"><strong style="color: #333333;">Article :</strong> %s (%s, %s) x%d</p>
										<p style="margin: 0; color: #666666; font-size: 14px;"><strong style="color: #333333;">Total commande :</strong> %s</p>
									</td>
								</tr>
							</table>
							<table role="presentation" style="width: 100%%; margin: 30px 0;">
								<tr>
									<td style="text-align: center;">
										<a href="%s/orders" style="display: inline-block; padding: 14px 32px; background-color: #2dce89; color: #ffffff; text-decoration: none; border-radius: 6px; font-weight: 600;">Suivre ma commande</a>
									</td>
								</tr>
							</table>
						</td>
					</tr>
				</table>
			</td>
		</tr>
	</table>
</body>
</html>`, statusIcon, statusColor, statusIcon, item.Status, statusMessage,
		order.OrderNumber, item.ProductName, item.Flavor, item.PackSize, item.Quantity,
		Euros(order.TotalCents), frontendURL())
}

func getStatusMessage(status string) string {
	switch status {
	case models.ItemShipped:
		return "Bonne nouvelle ! Votre article est en route."
	case models.ItemDelivered:
		return "Votre article a été livré. Vous disposez de 5 jours pour demander un retour."
	case models.ItemCancelled:
		return "Cet article a été annulé. Si la commande était déjà payée, le remboursement est crédité sur votre portefeuille VitaCart."
	case models.ItemReturnRequested:
		return "Nous avons bien reçu votre demande de retour. Elle sera examinée sous 48h."
	case models.ItemReturned:
		return "Votre retour a été accepté. Le remboursement est crédité sur votre portefeuille VitaCart."
	default:
		return "Le statut de votre article a été mis à jour."
	}
}

func getStatusIcon(status string) string {
	switch status {
	case models.ItemShipped:
		return "📦"
	case models.ItemDelivered:
		return "🎉"
	case models.ItemCancelled:
		return "❌"
	case models.ItemReturnRequested:
		return "↩️"
	case models.ItemReturned:
		return "💰"
	default:
		return "📋"
	}
}

func getStatusColor(status string) string {
	switch status {
	case models.ItemShipped:
		return "#5e72e4"
	case models.ItemDelivered:
		return "#2dce89"
	case models.ItemCancelled:
		return "#f5365c"
	case models.ItemReturnRequested:
		return "#fb6340"
	case models.ItemReturned:
		return "#11cdef"
	default:
		return "#8898aa"
	}
}

// SendWelcomeEmail envoie l'e-mail de bienvenue, avec le code de parrainage
// du nouveau compte.
func SendWelcomeEmail(userEmail, userName, referralCode string) error {
	html := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #2dce89;">Bienvenue chez VitaCart, %s !</h2>
		<p>Votre compte est prêt. Découvrez nos protéines, vitamines et compléments.</p>
		<p>Votre code de parrainage : <strong>%s</strong></p>
		<p>Partagez-le : vous recevez %s et votre filleul %s dès sa première commande livrée.</p>
		<p><a href="%s" style="color: #2dce89;">Commencer mes achats</a></p>
	</div>
</body>
</html>`, userName, referralCode, "50.00€", "25.00€", frontendURL())

	return SendConfirmationEmail(userEmail, "🌱 Bienvenue chez VitaCart", html, nil)
}

func frontendURL() string {
	if url := os.Getenv("FRONTEND_URL"); url != "" {
		return url
	}
	return "http://localhost:5173"
}
