package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/orbit-portfolio/internal/content"
)

var errSMTPNotConfigured = errors.New("SMTP credentials not configured")

type mailer interface {
	Send(name, email, message string) error
}

type smtpMailer struct {
	host, port string
	user, pass string
	to         string
}

func newSMTPMailer(cfg Config, p *content.Portfolio) *smtpMailer {
	to := cfg.ToEmail
	if to == "" {
		to = contactEmail(p)
	}
	return &smtpMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		to:   to,
	}
}

// contactEmail pulls the address out of the first mailto link.
func contactEmail(p *content.Portfolio) string {
	for _, l := range p.Contact.Links {
		if addr, ok := strings.CutPrefix(l.Href, "mailto:"); ok {
			return addr
		}
	}
	return ""
}

func (m *smtpMailer) Send(name, email, message string) error {
	if m.user == "" || m.pass == "" || m.to == "" {
		return errSMTPNotConfigured
	}

	msg := composeMail(m.user, m.to, name, email, message)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.user, []string{m.to}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func composeMail(from, to, name, email, message string) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", oneLine(name))
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, email, message)

	return []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"Reply-To: " + oneLine(email) + "\r\n" +
		"\r\n" +
		body + "\r\n")
}

// oneLine strips line breaks so form input cannot add headers.
func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func (s *server) handleContact(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("fullName"))
	email := strings.TrimSpace(c.PostForm("email"))
	message := strings.TrimSpace(c.PostForm("message"))

	if name == "" || email == "" || message == "" {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, email and message.",
		})
		return
	}

	if err := s.mailer.Send(name, email, message); err != nil {
		log.Printf("Error sending email: %v", err)
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	log.Printf("Email sent successfully from %s", s.admin.hashIP(c.ClientIP()))
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}
