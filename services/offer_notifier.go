package services

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"strings"
)

// OfferDetail is one labelled line of domain content shown in an offer email.
type OfferDetail struct {
	Label string
	Value string
}

// OfferNotice is everything the applicant needs to answer an offer.
type OfferNotice struct {
	To         string
	Name       string
	Domain     string
	Details    []OfferDetail
	AcceptURL  string
	RejectURL  string
	ExpiryDays int
}

// CredentialsNotice carries a freshly generated password to a new accountholder.
type CredentialsNotice struct {
	To       string
	Name     string
	Email    string
	Password string
	LoginURL string
}

// RejectionNotice informs an applicant of an administrator rejection.
type RejectionNotice struct {
	To     string
	Name   string
	Domain string
}

// Notifier delivers workflow emails. Each call blocks until delivery succeeds or fails.
type Notifier interface {
	SendOffer(ctx context.Context, notice OfferNotice) error
	SendCredentials(ctx context.Context, notice CredentialsNotice) error
	SendRejection(ctx context.Context, notice RejectionNotice) error
}

// MailSender is satisfied by config.Mailer.
type MailSender interface {
	SendMail(ctx context.Context, to []string, subject, html string) error
}

// EmailNotifier renders workflow emails as HTML and hands them to a MailSender.
type EmailNotifier struct {
	sender   MailSender
	logoHTML string
}

func NewEmailNotifier(sender MailSender) *EmailNotifier {
	return &EmailNotifier{sender: sender, logoHTML: renderLogos(os.Getenv("EMAIL_LOGO_URLS"))}
}

func (n *EmailNotifier) SendOffer(ctx context.Context, notice OfferNotice) error {
	subject := fmt.Sprintf("Your %s offer", domainTitle(notice.Domain))
	meta := make([]emailMetaItem, 0, len(notice.Details)+1)
	for _, d := range notice.Details {
		meta = append(meta, emailMetaItem{Label: d.Label, Value: d.Value})
	}
	expiresIn := fmt.Sprintf("%d days", notice.ExpiryDays)
	meta = append(meta, emailMetaItem{Label: "Offer valid for", Value: expiresIn})

	html := renderEmail(emailContent{
		Subject: subject,
		Paragraphs: []string{
			fmt.Sprintf("Dear %s,", displayName(notice.Name)),
			fmt.Sprintf("We are pleased to extend you an offer following your %s application.", notice.Domain),
			fmt.Sprintf("Please accept or decline using the buttons below. This offer expires in %s.", expiresIn),
		},
		Meta: meta,
		Buttons: []emailButton{
			{Text: "Accept offer", URL: notice.AcceptURL, Color: "#16a34a"},
			{Text: "Decline offer", URL: notice.RejectURL, Color: "#dc2626"},
		},
		FooterHTML: linkFooter(notice.AcceptURL),
	}, n.logoHTML)
	return n.sender.SendMail(ctx, []string{notice.To}, subject, html)
}

func (n *EmailNotifier) SendCredentials(ctx context.Context, notice CredentialsNotice) error {
	subject := "Your university portal account"
	html := renderEmail(emailContent{
		Subject: subject,
		Paragraphs: []string{
			fmt.Sprintf("Dear %s,", displayName(notice.Name)),
			"Your account has been created. Sign in with the credentials below and change your password after the first login.",
		},
		Meta: []emailMetaItem{
			{Label: "Email", Value: notice.Email},
			{Label: "Temporary password", Value: notice.Password},
		},
		Buttons:    []emailButton{{Text: "Sign in", URL: notice.LoginURL}},
		FooterHTML: linkFooter(notice.LoginURL),
	}, n.logoHTML)
	return n.sender.SendMail(ctx, []string{notice.To}, subject, html)
}

func (n *EmailNotifier) SendRejection(ctx context.Context, notice RejectionNotice) error {
	subject := fmt.Sprintf("Update on your %s application", notice.Domain)
	html := renderEmail(emailContent{
		Subject: subject,
		Paragraphs: []string{
			fmt.Sprintf("Dear %s,", displayName(notice.Name)),
			fmt.Sprintf("Thank you for your interest. After careful review we are unable to offer you a place through this %s application.", notice.Domain),
		},
	}, n.logoHTML)
	return n.sender.SendMail(ctx, []string{notice.To}, subject, html)
}

func linkFooter(link string) string {
	if strings.TrimSpace(link) == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(link)
	return fmt.Sprintf(
		"If the button does not work, copy this link into your browser:<br /><a href=\"%s\" style=\"color:#2563eb;\">%s</a>",
		escaped, escaped,
	)
}

func displayName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return "Applicant"
}

func domainTitle(domain string) string {
	if domain == "" {
		return domain
	}
	return strings.ToUpper(domain[:1]) + domain[1:]
}
