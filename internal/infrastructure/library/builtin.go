// Package library serves the element template library: a built-in set plus
// JSON templates loaded from a watched directory.
package library

import "github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"

// Builtins returns the templates that are always available
func Builtins() []*canvas.ElementTemplate {
	return []*canvas.ElementTemplate{
		{
			ID: "section", Name: "Section", Category: "layout", Tag: "section",
			DefaultStyles: canvas.Styles{
				Base:    canvas.StyleMap{"padding": "32px 16px", "display": "block"},
				Desktop: canvas.StyleMap{"padding": "64px 48px"},
			},
			Children: []canvas.ElementTemplate{{
				ID: "row", Name: "Row", Tag: "div",
				DefaultProps:  canvas.TemplateProps{ClassList: []string{"row"}},
				DefaultStyles: rowStyles(),
			}},
		},
		{
			ID: "row", Name: "Row", Category: "layout", Tag: "div",
			DefaultProps:  canvas.TemplateProps{ClassList: []string{"row"}},
			DefaultStyles: rowStyles(),
		},
		{
			ID: "heading", Name: "Heading", Category: "text", Tag: "h2",
			DefaultProps: canvas.TemplateProps{TextContent: "Heading"},
			DefaultStyles: canvas.Styles{
				Base:    canvas.StyleMap{"fontSize": "28px", "fontWeight": "700", "margin": "0 0 16px"},
				Desktop: canvas.StyleMap{"fontSize": "40px"},
			},
		},
		{
			ID: "paragraph", Name: "Paragraph", Category: "text", Tag: "p",
			DefaultProps:  canvas.TemplateProps{TextContent: "Write something here."},
			DefaultStyles: canvas.Styles{Base: canvas.StyleMap{"fontSize": "16px", "lineHeight": "1.6"}},
		},
		{
			ID: "image", Name: "Image", Category: "media", Tag: "img",
			DefaultProps: canvas.TemplateProps{Attributes: map[string]string{"src": "", "alt": ""}},
			DefaultStyles: canvas.Styles{Base: canvas.StyleMap{"maxWidth": "100%", "height": "auto", "display": "block"}},
		},
		{
			ID: "button", Name: "Button", Category: "interactive", Tag: "button",
			DefaultProps: canvas.TemplateProps{TextContent: "Click me", Attributes: map[string]string{"type": "button"}},
			DefaultStyles: canvas.Styles{
				Base:  canvas.StyleMap{"padding": "12px 24px", "borderRadius": "6px", "background": "#1f6feb", "color": "#ffffff", "border": "none"},
				Hover: canvas.StyleMap{"background": "#1158c7"},
			},
		},
		{
			ID: "link", Name: "Link", Category: "interactive", Tag: "a",
			DefaultProps:  canvas.TemplateProps{TextContent: "Link", Attributes: map[string]string{"href": "#"}},
			DefaultStyles: canvas.Styles{Base: canvas.StyleMap{"color": "#1f6feb"}, Hover: canvas.StyleMap{"textDecoration": "underline"}},
		},
		{
			ID: "nav", Name: "Navigation", Category: "layout", Tag: "nav",
			DefaultStyles: canvas.Styles{
				Base:    canvas.StyleMap{"display": "flex", "flexDirection": "column", "gap": "8px"},
				Desktop: canvas.StyleMap{"flexDirection": "row", "gap": "24px"},
			},
			Children: []canvas.ElementTemplate{
				{ID: "nav-link-1", Name: "Link", Tag: "a", DefaultProps: canvas.TemplateProps{TextContent: "Home", Attributes: map[string]string{"href": "/"}}},
				{ID: "nav-link-2", Name: "Link", Tag: "a", DefaultProps: canvas.TemplateProps{TextContent: "About", Attributes: map[string]string{"href": "/about"}}},
			},
		},
	}
}

func rowStyles() canvas.Styles {
	return canvas.Styles{
		Base:   canvas.StyleMap{"display": "flex", "flexDirection": "column", "gap": "16px"},
		Tablet: canvas.StyleMap{"flexDirection": "row"},
	}
}
