// Package emailer delivers the rendered brief over SMTP.
package emailer

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/gomail.v2"

	"morningbrief/internal/config"
	appLog "morningbrief/internal/log"
)

const briefSubject = "Morning Tech Brief"

// SendBrief emails the rendered HTML to the configured recipients. Disabled
// or incomplete email config is a logged no-op, not an error; only an actual
// transport failure propagates.
//
// Delivery tries implicit TLS on the SSL port first, then falls back to
// STARTTLS when enabled, matching common provider setups (465 then 587).
func SendBrief(cfg *config.Config, htmlPath string) error {
	em := cfg.Email
	if !em.Enabled {
		appLog.Info("email: disabled in config")
		return nil
	}

	sender := em.From
	if sender == "" {
		sender = em.SMTP.User
	}
	if sender == "" || len(em.To) == 0 {
		appLog.Warn("email: missing 'from' or 'to', skipping send")
		return nil
	}
	if em.SMTP.User == "" || em.SMTP.Password == "" {
		appLog.Warn("email: missing SMTP user/password, skipping send")
		return nil
	}

	body, err := os.ReadFile(htmlPath)
	if err != nil {
		return fmt.Errorf("email: read brief: %w", err)
	}

	return send(em, sender, briefSubject, string(body))
}

// SendPagesLink emails the published site URL.
func SendPagesLink(cfg *config.Config, siteURL string) error {
	em := cfg.Email
	if !em.Enabled || siteURL == "" {
		return nil
	}

	sender := em.From
	if sender == "" {
		sender = em.SMTP.User
	}
	if sender == "" || len(em.To) == 0 || em.SMTP.User == "" || em.SMTP.Password == "" {
		appLog.Warn("email: incomplete config, skipping pages link")
		return nil
	}

	body := fmt.Sprintf(`<p>Today's brief is live: <a href="%s">%s</a></p>`, siteURL, siteURL)
	return send(em, sender, briefSubject+" (link)", body)
}

func send(em config.EmailConfig, sender, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", sender)
	m.SetHeader("To", em.To...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	// 1) Implicit TLS on the SSL port.
	d := gomail.NewDialer(em.SMTP.Host, em.SMTP.PortSSL, em.SMTP.User, em.SMTP.Password)
	d.SSL = true
	errSSL := d.DialAndSend(m)
	if errSSL == nil {
		appLog.Info("email: sent", "host", em.SMTP.Host, "port", em.SMTP.PortSSL, "mode", "ssl")
		return nil
	}
	appLog.Warn("email: implicit TLS failed", "port", em.SMTP.PortSSL, "err", errSSL.Error())

	// 2) STARTTLS fallback.
	if em.SMTP.StartTLS {
		d = gomail.NewDialer(em.SMTP.Host, em.SMTP.Port, em.SMTP.User, em.SMTP.Password)
		if err := d.DialAndSend(m); err != nil {
			appLog.Error("email: STARTTLS failed", err, "port", em.SMTP.Port)
			return errors.Join(errSSL, err)
		}
		appLog.Info("email: sent", "host", em.SMTP.Host, "port", em.SMTP.Port, "mode", "starttls")
		return nil
	}

	return errSSL
}
