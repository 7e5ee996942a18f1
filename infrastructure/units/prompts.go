package units

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// DefaultDraftPrompt sends the prospect description as-is. Persona
// instructions travel separately as the system prompt.
const DefaultDraftPrompt = "{{.Prospect}}"

// promptFuncs are available to configured draft prompt templates.
//
//	Prospect: {{truncate (trim .Prospect) 500}}
var promptFuncs = template.FuncMap{
	"trim":  strings.TrimSpace,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"truncate": func(s string, n int) string {
		if n <= 0 {
			return ""
		}
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		if n > 3 {
			return string(r[:n-3]) + "..."
		}
		return string(r[:n])
	},
}

// promptData is the value templates are executed against.
type promptData struct {
	Prospect string
	Persona  string
}

// parsePrompt compiles a draft prompt template.
func parsePrompt(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultDraftPrompt
	}
	tmpl, err := template.New("draft").Funcs(promptFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
