// Package templates provides email template components
package templates

import (
	"bytes"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type ButtonProps struct {
	Text            string
	URL             string
	BackgroundColor string
	TextColor       string
}

// PublishNoticeProps feeds the publish notification body
type PublishNoticeProps struct {
	DocumentName string
	DocumentID   string
	PublishedAt  time.Time
	PreviewURL   string
	ElementCount int
}

var (
	buttonTemplate = template.Must(template.New("emailButton").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="btn btn-primary" style="border-collapse: separate; box-sizing: border-box; width: 100%;" width="100%">
      <tbody>
        <tr>
          <td align="left" style="font-family: Helvetica, sans-serif; font-size: 16px; vertical-align: top; padding-bottom: 16px;" valign="top">
            <a href="{{.URL}}" target="_blank" style="border: solid 2px {{.BackgroundColor}}; border-radius: 4px; display: inline-block; font-size: 16px; font-weight: bold; padding: 12px 24px; text-decoration: none; background-color: {{.BackgroundColor}}; color: {{.TextColor}};">{{.Text}}</a>
          </td>
        </tr>
      </tbody>
    </table>`))

	paragraphTemplate = template.Must(template.New("emailParagraph").Parse(`<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">{{.}}</p>`))
)

// GetButton renders a call to action. Unsafe URLs drop the button.
func GetButton(props ButtonProps) string {
	props.URL = sanitizeEmailURL(props.URL)
	if props.URL == "" {
		return ""
	}
	props.BackgroundColor = sanitizeColor(props.BackgroundColor, "#0867ec")
	props.TextColor = sanitizeColor(props.TextColor, "#ffffff")

	var buf bytes.Buffer
	if err := buttonTemplate.Execute(&buf, props); err != nil {
		return ""
	}
	return buf.String()
}

// GetParagraph renders escaped text
func GetParagraph(text string) string {
	var buf bytes.Buffer
	if err := paragraphTemplate.Execute(&buf, text); err != nil {
		return ""
	}
	return buf.String()
}

// GetPublishNoticeContent composes the body of a publish notification
func GetPublishNoticeContent(props PublishNoticeProps) string {
	name := props.DocumentName
	if name == "" {
		name = props.DocumentID
	}
	var b strings.Builder
	b.WriteString(GetParagraph("A new version of \"" + name + "\" has been published."))
	b.WriteString(GetParagraph("Published at " + props.PublishedAt.UTC().Format("2006-01-02 15:04 MST") + "."))
	if props.ElementCount > 0 {
		b.WriteString(GetParagraph(pluralElements(props.ElementCount) + " on the page."))
	}
	b.WriteString(GetButton(ButtonProps{Text: "View page", URL: props.PreviewURL}))
	return b.String()
}

func pluralElements(n int) string {
	if n == 1 {
		return "1 element"
	}
	return strconv.Itoa(n) + " elements"
}

// sanitizeEmailURL allows only http, https and mailto links
func sanitizeEmailURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto":
		return parsed.String()
	}
	return ""
}

// sanitizeColor accepts #rgb or #rrggbb and falls back otherwise
func sanitizeColor(color, fallback string) string {
	color = strings.TrimSpace(color)
	if !strings.HasPrefix(color, "#") {
		return fallback
	}
	hex := color[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return fallback
	}
	for _, c := range hex {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return fallback
		}
	}
	return color
}
