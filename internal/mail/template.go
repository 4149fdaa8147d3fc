package mail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"autopost/internal/recipients"
)

const untitled = "（無題）"

var bodyTemplate = template.Must(template.New("body").Funcs(template.FuncMap{
	"title": func(w recipients.Work) string {
		if t := strings.TrimSpace(w.Title); t != "" {
			return t
		}
		return untitled
	},
}).Parse(`{{.Salutation}}

いつも教室にお越しいただきありがとうございます。
{{if gt (len .Works) 1}}以下の作品{{else}}こちらの作品{{end}}をInstagramとXでご紹介しました。

{{range .Works}}・{{title .}}
{{end}}
ぜひご覧ください。
`))

// Render returns the plain-text body for one notification.
func Render(n recipients.Notification) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, n); err != nil {
		return "", fmt.Errorf("render mail body: %w", err)
	}
	return buf.String(), nil
}
