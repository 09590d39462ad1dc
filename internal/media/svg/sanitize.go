package svg

import (
	"bytes"
	"errors"
	"regexp"
)

var (
	doctypePattern    = regexp.MustCompile(`(?is)<!DOCTYPE[^\[>]*(\[.*?\])?\s*>`)
	scriptTagPattern  = regexp.MustCompile(`(?is)<\s*script[\s>].*?<\s*/\s*script\s*>`)
	foreignObjPattern = regexp.MustCompile(`(?is)<\s*foreignObject[\s>].*?<\s*/\s*foreignObject\s*>`)
	embedTagPattern   = regexp.MustCompile(`(?is)<\s*(iframe|embed|object)\b[^>]*?(/\s*>|>.*?<\s*/\s*(iframe|embed|object)\s*>)`)
	eventAttrPattern  = regexp.MustCompile(`(?is)\son[a-z]+\s*=\s*("[^"]*"|'[^']*')`)
	jsHrefPattern     = regexp.MustCompile(`(?is)\s(xlink:)?href\s*=\s*("\s*javascript:[^"]*"|'\s*javascript:[^']*')`)
)

var ErrNotSVG = errors.New("not an svg document")

// Sanitize makes an uploaded avatar or cover SVG inert. Entity declarations
// go first so nothing can expand into a tag after the other passes.
func Sanitize(input []byte) ([]byte, error) {
	if !bytes.Contains(bytes.ToLower(input), []byte("<svg")) {
		return nil, ErrNotSVG
	}

	clean := input
	for _, pattern := range []*regexp.Regexp{
		doctypePattern,
		scriptTagPattern,
		foreignObjPattern,
		embedTagPattern,
		eventAttrPattern,
		jsHrefPattern,
	} {
		clean = pattern.ReplaceAll(clean, nil)
	}

	return clean, nil
}
