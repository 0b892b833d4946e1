package notify

import (
	"fmt"
	"time"
)

func membershipActivatedEmail(name, planName string) (subject, body string) {
	subject = "Your membership is active"
	body = fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Your purchase of <strong>%s</strong> is confirmed and your membership is now active.</p>
<p>Your interview credits have been added to your account. Head to your dashboard to start practicing.</p>
<p>The LaPieza team</p>
</body></html>`, displayName(name), planName)
	return subject, body
}

func servicePurchasedEmail(name, serviceName string, expiresAt time.Time) (subject, body string) {
	subject = fmt.Sprintf("Booking window open: %s", serviceName)
	body = fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Thanks for purchasing <strong>%s</strong>.</p>
<p>You can schedule your session any time before <strong>%s</strong>. After that the booking window closes.</p>
<p>The LaPieza team</p>
</body></html>`, displayName(name), serviceName, expiresAt.Format("January 2, 2006"))
	return subject, body
}

func interviewReadyEmail(name, jobTitle string) (subject, body string) {
	subject = "Your practice interview is ready"
	body = fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Your AI practice interview for the <strong>%s</strong> position has finished processing.</p>
<p>Log in to review your session and feedback.</p>
<p>The LaPieza team</p>
</body></html>`, displayName(name), jobTitle)
	return subject, body
}

func purchaseAlertEmail(buyerEmail, productName string) (subject, body string) {
	subject = fmt.Sprintf("New purchase: %s", productName)
	body = fmt.Sprintf(`<html><body>
<p>New purchase reconciled.</p>
<p>Product: <strong>%s</strong><br>
Buyer: %s</p>
</body></html>`, productName, buyerEmail)
	return subject, body
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
