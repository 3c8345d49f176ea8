// Package templates renders the bilingual notification emails.
package templates

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
	"sync"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/models"
)

// Template is one (kind, language) entry. Parts use {name} placeholders.
type Template struct {
	Subject  string
	Greeting string
	Body     string
	Footer   string
	Extras   map[string]string
}

// Rendered is a message ready for delivery. PlainBody is always set.
type Rendered struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	Language  models.Language
}

type Options struct {
	FrontendURL  string
	ContactEmail string
	ContactPhone string
}

type Registry struct {
	opts           Options
	mu             sync.RWMutex
	templates      map[string]map[models.Language]Template
	statusMessages map[models.Language]map[models.RequestStatus]string
	layout         *template.Template
}

func NewRegistry(opts Options) *Registry {
	if opts.ContactEmail == "" {
		opts.ContactEmail = "support@studentservices.com"
	}
	if opts.ContactPhone == "" {
		opts.ContactPhone = "+1 (555) 123-4567"
	}
	opts.FrontendURL = strings.TrimRight(opts.FrontendURL, "/")

	return &Registry{
		opts:           opts,
		templates:      builtinTemplates(),
		statusMessages: builtinStatusMessages(),
		layout:         template.Must(template.New("layout").Parse(layoutHTML)),
	}
}

// Register adds or replaces a template.
func (r *Registry) Register(kind string, language models.Language, t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.templates[kind] == nil {
		r.templates[kind] = make(map[models.Language]Template)
	}
	r.templates[kind][language] = t
}

// Lookup returns the template for (kind, language), falling back to English.
func (r *Registry) Lookup(kind string, language models.Language) (Template, models.Language, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byLang := r.templates[kind]
	if t, ok := byLang[language]; ok {
		return t, language, nil
	}
	if t, ok := byLang[models.LanguageEnglish]; ok {
		return t, models.LanguageEnglish, nil
	}
	return Template{}, "", apperrors.NewTemplateNotFoundError(kind, string(language))
}

// Render produces subject, HTML and plain bodies. Missing context fields
// never fail rendering: the affected part is emitted with those
// placeholders dropped.
func (r *Registry) Render(kind string, language models.Language, data map[string]interface{}, notificationType string) (*Rendered, error) {
	tmpl, lang, err := r.Lookup(kind, language)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]string, len(data)+8)
	for k, v := range data {
		vars[k] = stringify(v)
	}

	requestID := vars["request_id"]
	vars["language"] = string(lang)
	vars["direction"] = direction(lang)
	vars["tracking_url"] = fmt.Sprintf("%s/track/%s", r.opts.FrontendURL, requestID)
	vars["admin_url"] = fmt.Sprintf("%s/admin/requests/%s", r.opts.FrontendURL, requestID)
	vars["contact_email"] = firstNonEmpty(tmpl.Extras["contact_email"], r.opts.ContactEmail)
	vars["contact_phone"] = firstNonEmpty(tmpl.Extras["contact_phone"], r.opts.ContactPhone)

	if kind == StatusUpdate {
		vars["status_message"] = r.statusMessage(lang, vars)
	}

	vars["urgency_note"] = ""
	if kind == AdminNotification {
		if key, ok := urgencyKeys[notificationType]; ok {
			vars["urgency_note"] = tmpl.Extras[key]
		}
	}

	escaped := make(map[string]string, len(vars))
	for k, v := range vars {
		escaped[k] = html.EscapeString(v)
	}
	// Pre-rendered HTML fragments go in unescaped.
	escaped["status_message"] = vars["status_message"]
	escaped["urgency_note"] = vars["urgency_note"]

	subject, _ := interpolate(tmpl.Subject, vars)
	greeting, _ := interpolate(tmpl.Greeting, escaped)
	body, _ := interpolate(tmpl.Body, escaped)
	footer, _ := interpolate(tmpl.Footer, escaped)
	subject = strings.TrimSpace(subject)

	htmlBody := r.wrap(subject, greeting, body, footer, lang)
	plain := strings.TrimSpace(strings.Join([]string{
		toPlain(greeting), toPlain(body), toPlain(footer),
	}, "\n\n"))
	if plain == "" {
		plain = subject
	}

	return &Rendered{
		Subject:   subject,
		HTMLBody:  htmlBody,
		PlainBody: plain,
		Language:  lang,
	}, nil
}

func (r *Registry) statusMessage(lang models.Language, vars map[string]string) string {
	key := vars["new_status_key"]
	if key == "" {
		key = vars["new_status"]
	}
	msgs, ok := r.statusMessages[lang]
	if !ok {
		msgs = r.statusMessages[models.LanguageEnglish]
	}
	msg, ok := msgs[models.RequestStatus(key)]
	if !ok {
		return ""
	}
	out, _ := interpolate(msg, vars)
	return out
}

type layoutData struct {
	Title     string
	Lang      string
	Direction string
	Greeting  template.HTML
	Body      template.HTML
	Footer    template.HTML
}

func (r *Registry) wrap(subject, greeting, body, footer string, lang models.Language) string {
	body = strings.ReplaceAll(body, "\n", "<br>\n")
	var buf bytes.Buffer
	err := r.layout.Execute(&buf, layoutData{
		Title:     subject,
		Lang:      string(lang),
		Direction: direction(lang),
		Greeting:  template.HTML(greeting),
		Body:      template.HTML(body),
		Footer:    template.HTML(footer),
	})
	if err != nil {
		return fmt.Sprintf("<html><body><p>%s</p><div>%s</div><p>%s</p></body></html>", greeting, body, footer)
	}
	return buf.String()
}

var placeholderRe = regexp.MustCompile(`\{([a-z_][a-z0-9_]*)\}`)

// interpolate replaces {name} placeholders. ok is false when at least one
// placeholder had no value; those placeholders are removed from the result.
func interpolate(s string, vars map[string]string) (string, bool) {
	ok := true
	out := placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		if v, found := vars[name]; found {
			return v
		}
		ok = false
		return ""
	})
	return out, ok
}

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

func toPlain(s string) string {
	s = strings.ReplaceAll(s, "<br>\n", "\n")
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func direction(lang models.Language) string {
	if lang == models.LanguageArabic {
		return "rtl"
	}
	return "ltr"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

const layoutHTML = `<!DOCTYPE html>
<html dir="{{.Direction}}" lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9f9f9; }
        .email-container { background-color: white; padding: 30px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        .header { border-bottom: 3px solid #3b82f6; padding-bottom: 20px; margin-bottom: 30px; }
        .logo { font-size: 24px; font-weight: bold; color: #3b82f6; }
        .content { margin-bottom: 30px; }
        .footer { border-top: 1px solid #e5e7eb; padding-top: 20px; margin-top: 30px; color: #6b7280; font-size: 14px; }
    </style>
</head>
<body>
    <div class="email-container">
        <div class="header">
            <div class="logo">Student Services</div>
        </div>
        <div class="content">
            <p>{{.Greeting}}</p>
            <div>{{.Body}}</div>
        </div>
        <div class="footer">
            {{.Footer}}
        </div>
    </div>
</body>
</html>
`
