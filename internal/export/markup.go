package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/conneroisu/blockwright/internal/errors"
	"golang.org/x/net/html"
)

// CheckMarkup tokenizes the body of a generated template, skipping the
// frontmatter fence, and reports the first unbalanced element.
func CheckMarkup(src string) error {
	body := src
	if strings.HasPrefix(body, "---\n") {
		if end := strings.Index(body[4:], "\n---"); end >= 0 {
			body = body[4+end+4:]
		}
	}

	var stack []string
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return markupError("tokenize template", err)
			}
			if len(stack) > 0 {
				return markupError(fmt.Sprintf("unclosed <%s>", stack[len(stack)-1]), nil)
			}
			return nil
		case html.StartTagToken:
			name, _ := z.TagName()
			stack = append(stack, string(name))
		case html.EndTagToken:
			name, _ := z.TagName()
			if len(stack) == 0 || stack[len(stack)-1] != string(name) {
				return markupError(fmt.Sprintf("unexpected </%s>", name), nil)
			}
			stack = stack[:len(stack)-1]
		}
	}
}

func markupError(msg string, cause error) error {
	return errors.NewExportError(errors.ErrCodeExportFailed, "generated template is malformed: "+msg, cause)
}
