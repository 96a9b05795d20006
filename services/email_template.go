package services

import (
	"fmt"
	"html/template"
	"strings"
)

type emailMetaItem struct {
	Label string
	Value string
}

type emailButton struct {
	Text  string
	URL   string
	Color string
}

type emailContent struct {
	Subject    string
	Paragraphs []string
	Meta       []emailMetaItem
	Buttons    []emailButton
	FooterHTML string
}

var basicHTMLReplacer = strings.NewReplacer(
	"&lt;strong&gt;", "<strong>",
	"&lt;/strong&gt;", "</strong>",
)

func renderEmail(content emailContent, logoHTML string) string {
	var body strings.Builder
	for _, paragraph := range content.Paragraphs {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}
		escaped := template.HTMLEscapeString(trimmed)
		escaped = strings.ReplaceAll(strings.ReplaceAll(escaped, "\r\n", "\n"), "\r", "\n")
		escaped = strings.ReplaceAll(escaped, "\n", "<br />")
		escaped = basicHTMLReplacer.Replace(escaped)
		body.WriteString(`<p style="margin:0 0 18px 0;line-height:1.7;word-break:break-word;">`)
		body.WriteString(escaped)
		body.WriteString(`</p>`)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
<div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
<div style="text-align:center;">
%s
<h1 style="margin:18px 0 0 0;font-size:22px;font-weight:700;color:#111827;line-height:1.35;word-break:break-word;">%s</h1>
</div>
<div style="margin-top:20px;color:#1f2937;font-size:16px;line-height:1.75;word-break:break-word;">
%s
</div>
%s
%s
%s
</div>
</div>
</body>
</html>`,
		template.HTMLEscapeString(content.Subject),
		logoHTML,
		template.HTMLEscapeString(content.Subject),
		body.String(),
		renderMeta(content.Meta),
		renderButtons(content.Buttons),
		renderFooter(content.FooterHTML),
	)
}

func renderMeta(meta []emailMetaItem) string {
	rows := make([]emailMetaItem, 0, len(meta))
	for _, item := range meta {
		label := strings.TrimSpace(item.Label)
		value := strings.TrimSpace(item.Value)
		if label == "" || value == "" {
			continue
		}
		rows = append(rows, emailMetaItem{Label: label, Value: value})
	}
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div style="margin:0 0 24px 0;">
<table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;">
<tbody>`)
	for i, row := range rows {
		border := "border-bottom:1px solid #e5e7eb;"
		if i == len(rows)-1 {
			border = ""
		}
		b.WriteString(fmt.Sprintf(`<tr>
<td style="padding:12px 16px;font-size:13px;color:#6b7280;width:38%%;%s;word-break:break-word;">%s</td>
<td style="padding:12px 16px;font-size:15px;color:#111827;font-weight:600;%s;word-break:break-word;white-space:pre-wrap;">%s</td>
</tr>
`, border, template.HTMLEscapeString(row.Label), border, template.HTMLEscapeString(row.Value)))
	}
	b.WriteString(`</tbody>
</table>
</div>`)
	return b.String()
}

func renderButtons(buttons []emailButton) string {
	var links []string
	for _, btn := range buttons {
		if strings.TrimSpace(btn.Text) == "" || strings.TrimSpace(btn.URL) == "" {
			continue
		}
		color := btn.Color
		if color == "" {
			color = "#2563eb"
		}
		links = append(links, fmt.Sprintf(
			`<a href="%s" style="display:inline-block;margin:0 6px;padding:12px 28px;background-color:%s;color:#ffffff;text-decoration:none;border-radius:999px;font-weight:600;word-break:break-word;">%s</a>`,
			template.HTMLEscapeString(btn.URL), template.HTMLEscapeString(color), template.HTMLEscapeString(btn.Text)))
	}
	if len(links) == 0 {
		return ""
	}
	return `<div style="text-align:center;margin:12px 0 24px 0;">` + strings.Join(links, "") + `</div>`
}

func renderFooter(footerHTML string) string {
	if strings.TrimSpace(footerHTML) == "" {
		return ""
	}
	return fmt.Sprintf(`<div style="color:#6b7280;font-size:13px;line-height:1.7;">%s</div>`, footerHTML)
}

// renderLogos builds the header logo strip from a comma, semicolon or newline separated URL list.
func renderLogos(raw string) string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r':
			return true
		}
		return false
	})
	snippets := make([]string, 0, len(parts))
	for _, part := range parts {
		escaped := template.HTMLEscapeString(strings.TrimSpace(part))
		if escaped == "" {
			continue
		}
		snippets = append(snippets, fmt.Sprintf(`<span style="display:inline-block;margin:0 12px;"><img src="%s" alt="University Portal" style="display:block;height:64px;width:auto;max-width:100%%;object-fit:contain;" /></span>`, escaped))
	}
	if len(snippets) == 0 {
		return ""
	}
	return fmt.Sprintf(`<div style="text-align:center;margin:0 auto 18px auto;">%s</div>`, strings.Join(snippets, ""))
}
