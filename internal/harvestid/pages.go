package harvestid

import (
	"html/template"
	"net/http"
)

// Callback pages shown in the operator's browser. Wording matters less
// than the instruction to return to the terminal, since the flow outcome
// is reported there.

var errorPage = template.Must(template.New("error").Parse(
	`<html><body><h1>{{.Title}}</h1><p>{{.Message}}</p><p>{{.Hint}}</p></body></html>`))

var successPage = template.Must(template.New("success").Parse(
	`<html><body><h1>Authentication Successful</h1>` +
		`<p>You have successfully authenticated with Harvest.</p>` +
		`<p>You are now connected to: {{.AccountName}}</p>` +
		`<p>You can close this window and return to the terminal.</p></body></html>`))

func renderErrorPage(w http.ResponseWriter, status int, title, message, hint string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = errorPage.Execute(w, map[string]string{
		"Title":   title,
		"Message": message,
		"Hint":    hint,
	})
}

func renderSuccessPage(w http.ResponseWriter, accountName string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = successPage.Execute(w, map[string]string{
		"AccountName": accountName,
	})
}
