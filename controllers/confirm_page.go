package controllers

import "html/template"

// ConfirmPageName is the template the confirmation link renders for browsers.
const ConfirmPageName = "confirm_offer.html"

const confirmPageHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Prompt}}</p>
{{if .Details}}<table>
{{range .Details}}<tr><th align="left">{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>{{end}}
<p>This link expires on {{.Expiry}}.</p>
<form method="post">
<input type="hidden" name="token" value="{{.Token}}">
<input type="hidden" name="action" value="{{.Action}}">
<button type="submit">{{.Button}}</button>
</form>
</body>
</html>
`

// ConfirmPageTemplate is installed on the engine with SetHTMLTemplate.
func ConfirmPageTemplate() *template.Template {
	return template.Must(template.New(ConfirmPageName).Parse(confirmPageHTML))
}

type confirmPage struct {
	Title   string
	Prompt  string
	Details interface{}
	Expiry  string
	Token   string
	Action  string
	Button  string
}
