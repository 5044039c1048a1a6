package mailer

import (
	"bytes"
	_ "embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Site carries the values every template can reference.
type Site struct {
	Name        string
	FrontendURL string
	BackendURL  string
}

type templateSpec struct {
	Subject string `yaml:"subject"`
	Heading string `yaml:"heading"`
	Accent  string `yaml:"accent"`
	Body    string `yaml:"body"`
}

type compiled struct {
	subject *template.Template
	body    *template.Template
	heading string
	accent  string
}

// Renderer turns a template kind plus data into subject, text and HTML.
type Renderer struct {
	site      Site
	templates map[Kind]compiled
	markdown  goldmark.Markdown
	policy    *bluemonday.Policy
	layout    *htmltemplate.Template
	now       func() time.Time
}

// NewRenderer parses the embedded templates.
func NewRenderer(site Site) (*Renderer, error) {
	if site.Name == "" {
		site.Name = "MMS"
	}
	site.FrontendURL = strings.TrimRight(site.FrontendURL, "/")
	site.BackendURL = strings.TrimRight(site.BackendURL, "/")

	var specs map[Kind]templateSpec
	if err := yaml.Unmarshal(templatesYAML, &specs); err != nil {
		return nil, fmt.Errorf("mailer: parse templates: %w", err)
	}
	templates := make(map[Kind]compiled, len(specs))
	for kind, spec := range specs {
		subject, err := template.New(string(kind) + ".subject").Parse(spec.Subject)
		if err != nil {
			return nil, fmt.Errorf("mailer: %s subject: %w", kind, err)
		}
		body, err := template.New(string(kind) + ".body").Parse(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("mailer: %s body: %w", kind, err)
		}
		templates[kind] = compiled{subject: subject, body: body, heading: spec.Heading, accent: spec.Accent}
	}

	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(false)

	return &Renderer{
		site:      site,
		templates: templates,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:    policy,
		layout:    htmltemplate.Must(htmltemplate.New("layout").Parse(layoutHTML)),
		now:       time.Now,
	}, nil
}

// Kinds lists the loaded template names.
func (r *Renderer) Kinds() []Kind {
	out := make([]Kind, 0, len(r.templates))
	for k := range r.templates {
		out = append(out, k)
	}
	return out
}

// Render fills the templates for kind. The markdown body becomes TextBody;
// its sanitized HTML rendering is wrapped in the layout for HTMLBody.
func (r *Renderer) Render(kind Kind, data Data) (Email, error) {
	tpl, ok := r.templates[kind]
	if !ok {
		return Email{}, fmt.Errorf("mailer: unknown template %q", kind)
	}
	data.SiteName = r.site.Name
	data.FrontendURL = r.site.FrontendURL
	data.BackendURL = r.site.BackendURL
	if data.Date == "" {
		data.Date = r.now().Format("Jan 2, 2006 15:04")
	}

	var subject bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Email{}, fmt.Errorf("mailer: %s subject: %w", kind, err)
	}
	var text bytes.Buffer
	if err := tpl.body.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("mailer: %s body: %w", kind, err)
	}

	var rendered bytes.Buffer
	if err := r.markdown.Convert(text.Bytes(), &rendered); err != nil {
		return Email{}, fmt.Errorf("mailer: %s markdown: %w", kind, err)
	}
	safe := r.policy.SanitizeBytes(rendered.Bytes())

	var page bytes.Buffer
	err := r.layout.Execute(&page, map[string]any{
		"SiteName": r.site.Name,
		"Heading":  tpl.heading,
		"Accent":   htmltemplate.CSS("color: " + tpl.accent),
		"Body":     htmltemplate.HTML(safe),
	})
	if err != nil {
		return Email{}, fmt.Errorf("mailer: %s layout: %w", kind, err)
	}

	return Email{
		Subject:  strings.TrimSpace(subject.String()),
		TextBody: strings.TrimSpace(text.String()),
		HTMLBody: page.String(),
	}, nil
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Heading}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f3f4f6;">
  <div style="max-width: 600px; margin: 0 auto; padding: 24px; background-color: #ffffff;">
    <h2 style="{{.Accent}}">{{.Heading}}</h2>
    <div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
      {{.Body}}
    </div>
    <p style="font-size: 12px; color: #9ca3af;">{{.SiteName}}</p>
  </div>
</body>
</html>`
