package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/conneroisu/blockwright/internal/tree"
)

var astroFile = template.Must(template.New("astro").Parse(`---
{{range .Imports}}{{.}}
{{end}}
const {
{{range $i, $p := .Props}}{{if $i}},
{{end}}  {{$p}}{{end}}
} = Astro.props;
---

{{.Usage}}

<style lang="pcss" is:global>
  @layer page-sections {
    .{{.Name}} {

    }
  }
</style>
`))

type astroData struct {
	Imports []string
	Props   []string
	Usage   string
	Name    string
}

// astroWriter renders the component template of one export.
type astroWriter struct {
	plan    *plan
	aliases *AliasTable
	name    string

	imports []string
	seen    map[string]bool
}

func renderAstro(p *plan, aliases *AliasTable, name string) (string, error) {
	w := &astroWriter{
		plan:    p,
		aliases: aliases,
		name:    name,
		seen:    make(map[string]bool),
	}

	blocks := make([]string, 0, len(p.tree.Roots()))
	for _, root := range p.tree.Roots() {
		blocks = append(blocks, w.block(root, 0, "", true))
	}

	lines := make([]string, 0, len(w.imports))
	for _, path := range w.imports {
		lines = append(lines, fmt.Sprintf("import %s from %q;", ImportName(p.reg, path), aliases.ImportPath(p.reg, path)))
	}

	props := []string{"label", "class: className", "_component"}
	props = append(props, p.names()...)
	props = append(props, "...htmlAttributes")

	var buf bytes.Buffer
	err := astroFile.Execute(&buf, astroData{
		Imports: lines,
		Props:   props,
		Usage:   strings.Join(blocks, "\n\n"),
		Name:    name,
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (w *astroWriter) use(path string) {
	if w.seen[path] {
		return
	}
	w.seen[path] = true
	w.imports = append(w.imports, path)
}

func pad(level int) string {
	return strings.Repeat("  ", level)
}

// attributes renders the props of a node. Exposed props reference the
// destructured variable, or a field of ctx inside a list item.
func (w *astroWriter) attributes(id tree.NodeID, ctx string, root bool) []string {
	t := w.plan.tree

	var keys []string
	seen := make(map[string]bool)
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range t.ValueNames(id) {
		add(k)
	}
	for _, k := range t.ExposedProps(id) {
		add(k)
	}
	for _, k := range t.PropModeSlots(id) {
		add(k)
	}

	var attrs []string
	for _, key := range keys {
		isSlot := t.HasSlot(id, key)
		if isSlot && t.Mode(id, key) != tree.ModeProp {
			continue
		}
		if w.plan.exposed(id, key) {
			ref := t.ExposedName(id, key)
			if ctx != "" {
				ref = ctx + "." + ref
			}
			attrs = append(attrs, key+"={"+ref+"}")
			continue
		}
		v, _ := t.Value(id, key)
		if a := literal(key, v); a != "" {
			attrs = append(attrs, a)
		}
	}

	if root {
		attrs = append(attrs, fmt.Sprintf("class:list={[%q, className]}", w.name))
		attrs = append(attrs, "{...htmlAttributes}")
	}

	return attrs
}

func literal(key string, v any) string {
	switch val := v.(type) {
	case string:
		return key + `="` + strings.ReplaceAll(val, `"`, "&quot;") + `"`
	case bool:
		if val {
			return key
		}
		return ""
	case int:
		return key + "={" + strconv.Itoa(val) + "}"
	case int64:
		return key + "={" + strconv.FormatInt(val, 10) + "}"
	case float64:
		return key + "={" + strconv.FormatFloat(val, 'f', -1, 64) + "}"
	case map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return key + "={" + string(data) + "}"
	default:
		return ""
	}
}

func formatAttrs(attrs []string, indent string) string {
	if len(attrs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	for _, a := range attrs {
		b.WriteString(indent + "  " + a + "\n")
	}
	b.WriteString(indent)

	return b.String()
}

func element(name, attrs, indent, content string) string {
	if content == "" {
		if attrs == "" {
			return indent + "<" + name + " />"
		}
		return indent + "<" + name + attrs + "/>"
	}

	return indent + "<" + name + attrs + ">\n" + content + "\n" + indent + "</" + name + ">"
}

// block renders one node and its subtree at the given indent level.
func (w *astroWriter) block(id tree.NodeID, level int, ctx string, root bool) string {
	t := w.plan.tree
	n, _ := t.Node(id)
	w.use(n.Component)

	name := ImportName(w.plan.reg, n.Component)
	indent := pad(level)
	attrs := formatAttrs(w.attributes(id, ctx, root), indent)
	defaultSlot := w.plan.reg.FallbackSlot(n.Component)

	var parts []string
	for _, slot := range t.SlotNames(id) {
		if t.Mode(id, slot) == tree.ModeProp || len(t.Children(id, slot)) == 0 {
			continue
		}

		inner := level + 1
		if slot != defaultSlot {
			inner = level + 2
		}

		var content string
		if scope := w.plan.list(id, slot); scope != nil && ctx == "" {
			content = w.listBlock(id, scope, inner-1)
		} else {
			lines := make([]string, 0, len(t.Children(id, slot)))
			for _, child := range t.Children(id, slot) {
				lines = append(lines, w.block(child, inner, ctx, false))
			}
			content = strings.Join(lines, "\n")
		}

		if slot != defaultSlot {
			content = pad(level+1) + `<Fragment slot="` + slot + `">` + "\n" + content + "\n" + pad(level+1) + "</Fragment>"
		}
		parts = append(parts, content)
	}

	return element(name, attrs, indent, strings.Join(parts, "\n"))
}

// listBlock renders a list-pattern slot as an iteration over its exposed
// array, materializing one wrapper per item. level is the indent of the
// owning element.
func (w *astroWriter) listBlock(parent tree.NodeID, scope *listScope, level int) string {
	t := w.plan.tree
	reg := w.plan.reg
	indent := pad(level)
	itemIndent := pad(level + 2)

	n, _ := t.Node(parent)
	wrapperPath, _ := reg.ChildComponentPath(n.Component)
	w.use(wrapperPath)
	wrapper := ImportName(reg, wrapperPath)

	tmpl, _ := t.Node(scope.template)
	isWrapper := tmpl.Component == wrapperPath

	var attrs []string
	bound := make(map[string]bool)
	for _, f := range scope.fields {
		if f.kind == fieldWrapper || (isWrapper && f.node == scope.template) {
			if bound[f.prop] {
				continue
			}
			bound[f.prop] = true
			attrs = append(attrs, f.prop+"={"+scope.singular+"."+f.name+"}")
		}
	}

	var inner string
	if isWrapper {
		slotProps, _ := reg.ChildProps(n.Component)
		slot := "contentSections"
		if len(slotProps) > 0 {
			slot = slotProps[0]
		}
		var lines []string
		for _, gc := range t.Children(scope.template, slot) {
			lines = append(lines, w.block(gc, level+3, scope.singular, false))
		}
		inner = strings.Join(lines, "\n")
	} else {
		inner = w.block(scope.template, level+3, scope.singular, false)
	}

	var b strings.Builder
	b.WriteString(indent + "  {\n")
	b.WriteString(indent + "    " + scope.name + ".map((" + scope.singular + ") => (\n")
	b.WriteString(element(wrapper, formatAttrs(attrs, itemIndent), itemIndent, inner) + "\n")
	b.WriteString(indent + "    ))\n")
	b.WriteString(indent + "  }")

	return b.String()
}
