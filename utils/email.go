package utils

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SendEmail sends an HTML email using the configured SMTP server.
// Callers in the payment flow treat failures as best-effort.
func SendEmail(to, subject, body string) error {
	host := os.Getenv("SMTP_HOST")
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	username := os.Getenv("SMTP_USERNAME")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = username
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(host, port, username, password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// SendPaymentApprovedEmail notifies the store contact that a payment was
// approved by the provider
func SendPaymentApprovedEmail(to, storeOrderID string, totalSum float64) error {
	subject := fmt.Sprintf("Payment approved for order %s", storeOrderID)
	body := fmt.Sprintf(
		"<p>Payment for store order <b>%s</b> was approved.</p><p>Total: %.2f UAH</p>",
		storeOrderID, totalSum,
	)
	return SendEmail(to, subject, body)
}
