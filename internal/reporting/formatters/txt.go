package formatters

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"github.com/bl4ck0w1/hostbrute/pkg/models"
)

const TXTTemplateName = "report.txt.tmpl"

const defaultTXTTemplate = `hostbrute run {{ .Metadata.RunID }}
target:     {{ .Metadata.Target }} (scan={{ .Metadata.Scan }}, depth={{ .Metadata.Depth }})
nameserver: {{ .Metadata.Nameserver }}
status:     {{ .Metadata.Status }} in {{ .Metadata.Duration }}

{{ .Summary.TotalHosts }} total hosts found.
{{ .Summary.NewHosts }} NEW hosts found.
{{ .Summary.NewSubdomains }} subdomains found.

DOMAINS
{{- range .Domains }}
  {{ pad .Domain 40 }} level={{ .Level }} {{ .Status }}{{ if .Wildcard.HostWildcard }} wildcard{{ end }}{{ if .Error }} ({{ .Error }}){{ end }}
{{- end }}

HOSTS
{{- range .Hosts }}
  {{ if .New }}+{{ else }} {{ end }} {{ pad .Name 40 }} {{ join .Types "," }}{{ if .Values }} {{ join .Values ", " }}{{ end }}{{ if .Subdomain }} [subdomain]{{ end }}
{{- end }}
`

// TXTFormatter renders the human readable report. Templates loaded into
// Templates under TXTTemplateName override the default layout.
type TXTFormatter struct {
	Templates *TemplateManager
}

func NewTXTFormatter() *TXTFormatter {
	tm := NewTemplateManager(template.FuncMap{
		"join": strings.Join,
		"pad": func(s string, n int) string {
			if len(s) >= n {
				return s
			}
			return s + strings.Repeat(" ", n-len(s))
		},
	})
	if err := tm.Register(TXTTemplateName, defaultTXTTemplate); err != nil {
		panic(err)
	}
	return &TXTFormatter{Templates: tm}
}

func (f *TXTFormatter) Format(report *models.RunReport) ([]byte, error) {
	tpl, ok := f.Templates.Get(TXTTemplateName)
	if !ok {
		return nil, fmt.Errorf("template %s not registered", TXTTemplateName)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("render txt report: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *TXTFormatter) FileExtension() string { return models.ReportFormatTXT }
