package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/tree"
	"github.com/conneroisu/blockwright/internal/validation"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
ul{list-style:none;padding-left:1.25rem;border-left:1px solid #ddd}
code{color:#666}.slot{color:#0a58ca}.prop{color:#555}.dup{color:#b02a37}`

// layout wraps body in the shared page chrome.
func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body><h1>%s</h1>",
			templ.EscapeString(title), pageStyle, templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")

		return err
	})
}

type sessionLink struct {
	ID    string
	Nodes int
	Valid bool
}

// indexPage lists the live sessions and the registry categories.
func indexPage(reg *registry.Registry, sessions []sessionLink) templ.Component {
	return layout("Blockwright", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b bytes.Buffer
		b.WriteString("<h2>Sessions</h2>")
		if len(sessions) == 0 {
			b.WriteString("<p>No sessions.</p>")
		} else {
			b.WriteString("<ul>")
			for _, s := range sessions {
				status := "valid"
				if !s.Valid {
					status = "invalid"
				}
				fmt.Fprintf(&b, `<li><a href="/sessions/%s">%s</a> %d nodes, %s</li>`,
					templ.EscapeString(s.ID), templ.EscapeString(s.ID), s.Nodes, status)
			}
			b.WriteString("</ul>")
		}

		b.WriteString("<h2>Components</h2>")
		byCategory := reg.ByCategory()
		for _, category := range reg.Categories() {
			fmt.Fprintf(&b, "<h3>%s</h3><ul>", templ.EscapeString(category))
			for _, d := range byCategory[category] {
				fmt.Fprintf(&b, "<li>%s <code>%s</code></li>",
					templ.EscapeString(d.DisplayName), templ.EscapeString(d.Path))
			}
			b.WriteString("</ul>")
		}

		_, err := w.Write(b.Bytes())

		return err
	}))
}

// outlinePage renders the component tree of one session with its exposed
// props and the current validation report.
func outlinePage(id string, t *tree.Tree, result validation.Result) templ.Component {
	return layout("Session "+id, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b bytes.Buffer
		if result.Valid {
			b.WriteString("<p>No duplicate exposed props.</p>")
		} else {
			b.WriteString(`<h2 class="dup">Duplicate exposed props</h2><ul>`)
			for _, d := range result.Duplicates {
				fmt.Fprintf(&b, `<li class="dup">%s (%d locations)</li>`,
					templ.EscapeString(d.ExposedName), len(d.Locations))
			}
			b.WriteString("</ul>")
		}

		b.WriteString("<ul>")
		for _, root := range t.Roots() {
			writeOutlineNode(&b, t, root)
		}
		b.WriteString("</ul>")

		_, err := w.Write(b.Bytes())

		return err
	}))
}

func writeOutlineNode(b *bytes.Buffer, t *tree.Tree, id tree.NodeID) {
	n, ok := t.Node(id)
	if !ok {
		return
	}

	fmt.Fprintf(b, "<li><strong>%s</strong> <code>%s</code>",
		templ.EscapeString(t.Registry().DisplayName(n.Component)), templ.EscapeString(string(id)))
	for _, prop := range t.ExposedProps(id) {
		name := t.ExposedName(id, prop)
		if name == prop {
			fmt.Fprintf(b, ` <span class="prop">%s</span>`, templ.EscapeString(prop))
			continue
		}
		fmt.Fprintf(b, ` <span class="prop">%s as %s</span>`,
			templ.EscapeString(prop), templ.EscapeString(name))
	}

	for _, slot := range t.SlotNames(id) {
		fmt.Fprintf(b, `<div class="slot">%s (%s)</div><ul>`,
			templ.EscapeString(slot), t.Mode(id, slot))
		for _, child := range t.Children(id, slot) {
			writeOutlineNode(b, t, child)
		}
		b.WriteString("</ul>")
	}
	b.WriteString("</li>")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	entries := s.entries()
	links := make([]sessionLink, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		links = append(links, sessionLink{
			ID:    e.id,
			Nodes: e.session.Tree().Len(),
			Valid: e.session.Validation().Valid,
		})
		e.mu.Unlock()
	}

	templ.Handler(indexPage(s.Registry(), links)).ServeHTTP(w, r)
}

// handleOutline renders under the session lock and writes afterwards.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request, e *entry) {
	var buf bytes.Buffer

	e.mu.Lock()
	err := outlinePage(e.id, e.session.Tree(), e.session.Validation()).Render(r.Context(), &buf)
	e.mu.Unlock()
	if err != nil {
		s.logger.Error(r.Context(), err, "failed to render outline")
		writeErrorMessage(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
