// Package message turns template kinds plus caller data into rendered
// email markup. Kinds form a closed set, each with its own required-field
// contract checked before any I/O, so missing fields surface as client
// errors instead of blank interpolations in outgoing mail.
package message

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
)

// Kind identifies a message template.
type Kind string

const (
	// KindMarketing is the promotional layout: title, body, optional CTA.
	KindMarketing Kind = "marketing"
	// KindNotice is the plain transactional layout: body only.
	KindNotice Kind = "notice"
)

// Data carries the caller-supplied template fields.
type Data struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	CTALink string `json:"ctaLink"`
	CTAText string `json:"ctaText"`
}

// ParseKind validates a raw template name against the closed kind set.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMarketing, KindNotice:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown template kind %q", s)
}

// Validate checks the kind's required-field contract.
func (k Kind) Validate(d Data) error {
	switch k {
	case KindMarketing:
		if d.Title == "" {
			return fmt.Errorf("template %q requires field \"title\"", k)
		}
		if d.Message == "" {
			return fmt.Errorf("template %q requires field \"message\"", k)
		}
	case KindNotice:
		if d.Message == "" {
			return fmt.Errorf("template %q requires field \"message\"", k)
		}
	default:
		return fmt.Errorf("unknown template kind %q", k)
	}
	return nil
}

// DefaultSubject is used when the caller supplies none. Empty means the
// kind has no subject of its own and the service default applies.
func (k Kind) DefaultSubject(d Data) string {
	if k == KindMarketing && d.Title != "" {
		return d.Title
	}
	return ""
}

const marketingTemplate = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f4f4f7;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:24px;">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;">
        <tr><td style="padding:32px;">
          <h1 style="margin:0 0 16px;font-size:22px;color:#111827;">{{ title }}</h1>
          <p style="margin:0 0 24px;font-size:15px;line-height:1.6;color:#374151;">{{ message }}</p>
          {% if cta_link != "" %}
          <a href="{{ cta_link }}" style="display:inline-block;padding:12px 24px;background:#2563eb;color:#ffffff;text-decoration:none;border-radius:6px;font-size:15px;">{{ cta_text | default: "Learn more" }}</a>
          {% endif %}
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

const noticeTemplate = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;font-family:Arial,Helvetica,sans-serif;">
  <p style="font-size:15px;line-height:1.6;color:#374151;">{{ message }}</p>
</body>
</html>`

var kindTemplates = map[Kind]string{
	KindMarketing: marketingTemplate,
	KindNotice:    noticeTemplate,
}

// Renderer renders template kinds through Liquid with parsed-template
// caching. Rendering is pure: same kind and data always produce the same
// markup.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[Kind]*liquid.Template
}

// NewRenderer creates a renderer with the custom filters registered.
func NewRenderer() *Renderer {
	engine := liquid.NewEngine()

	// Fallback filter: {{ cta_text | default: "Learn more" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &Renderer{engine: engine}
}

// Render validates the contract and produces the markup for kind.
func (r *Renderer) Render(kind Kind, d Data) (string, error) {
	if err := kind.Validate(d); err != nil {
		return "", err
	}

	tpl, err := r.template(kind)
	if err != nil {
		return "", err
	}

	return tpl.RenderString(map[string]interface{}{
		"title":    d.Title,
		"message":  d.Message,
		"cta_link": d.CTALink,
		"cta_text": d.CTAText,
	})
}

// PlainText produces the text/plain alternative body for kind.
func (r *Renderer) PlainText(kind Kind, d Data) string {
	if kind == KindMarketing && d.Title != "" {
		if d.CTALink != "" {
			return d.Title + "\n\n" + d.Message + "\n\n" + d.CTALink
		}
		return d.Title + "\n\n" + d.Message
	}
	return d.Message
}

func (r *Renderer) template(kind Kind) (*liquid.Template, error) {
	if cached, ok := r.cache.Load(kind); ok {
		return cached.(*liquid.Template), nil
	}
	src, ok := kindTemplates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown template kind %q", kind)
	}
	tpl, err := r.engine.ParseString(src)
	if err != nil {
		return nil, err
	}
	r.cache.Store(kind, tpl)
	return tpl, nil
}
