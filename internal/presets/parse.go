// package presets reads Arma 3 launcher preset exports into keep sets.
package presets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/shared"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseError describes why a preset document was rejected.
type ParseError struct {
	Source string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("preset %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == shared.ErrParse }

// Parse reads one preset document.
//
// The preset name comes from the arma:PresetName meta tag, else the first <strong> element, else
// fallbackName. Each row marked data-type="ModContainer" yields one entry; rows without a link are
// local mods and are skipped. A row whose link carries no workshop id is logged at warn level and
// skipped. A nil logger discards.
func Parse(r io.Reader, fallbackName string, logger *log.Logger) (models.KeepSet, error) {
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	doc, err := html.Parse(r)
	if err != nil {
		return models.KeepSet{}, &ParseError{Source: fallbackName, Reason: "invalid html", Err: err}
	}

	var (
		metaName string
		strong   string
		isPreset bool
		rows     []*html.Node
	)
	walk(doc, func(n *html.Node) bool {
		switch {
		case n.DataAtom == atom.Meta:
			switch attr(n, "name") {
			case "arma:PresetName":
				metaName = strings.TrimSpace(attr(n, "content"))
			case "arma:Type":
				isPreset = true
			}
		case n.DataAtom == atom.Strong && strong == "":
			strong = text(n)
		case attr(n, "data-type") == "ModContainer":
			rows = append(rows, n)
			return false
		}
		return true
	})

	if !isPreset && len(rows) == 0 {
		return models.KeepSet{}, &ParseError{Source: fallbackName, Reason: "not a launcher preset"}
	}

	set := models.KeepSet{Name: fallbackName, Entries: []models.KeepEntry{}}
	switch {
	case metaName != "":
		set.Name = metaName
	case strong != "":
		set.Name = strong
	}

	for i, row := range rows {
		entry, ok, err := parseRow(row)
		if err != nil {
			logger.Warn("skipping preset row", "preset", set.Name, "row", i+1, "error", err)
			continue
		}
		if ok {
			set.Entries = append(set.Entries, entry)
		}
	}
	return set, nil
}

func parseRow(row *html.Node) (models.KeepEntry, bool, error) {
	var name, href string
	var hasLink bool
	walk(row, func(n *html.Node) bool {
		if n.DataAtom == atom.Td && name == "" {
			name = text(n)
		}
		if n.DataAtom == atom.A && !hasLink {
			if v, ok := attrOK(n, "href"); ok {
				href, hasLink = v, true
			}
		}
		return true
	})

	if !hasLink {
		return models.KeepEntry{}, false, nil
	}

	id, err := models.ParseItemID(href)
	if err != nil {
		return models.KeepEntry{}, false, fmt.Errorf("mod %q: %w", name, err)
	}
	return models.KeepEntry{ID: id, Name: name, URL: href}, true, nil
}

// ParseFile parses the preset at path, falling back to the file name for the preset name.
func ParseFile(path string, logger *log.Logger) (models.KeepSet, error) {
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	f, err := os.Open(path)
	if err != nil {
		return models.KeepSet{}, err
	}
	defer f.Close()

	base := filepath.Base(path)
	set, err := Parse(f, strings.TrimSuffix(base, filepath.Ext(base)), shared.WithLogger(logger, "file", path))
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Source = path
		}
		return models.KeepSet{}, err
	}
	set.Source = path
	return set, nil
}

// walk visits n and its descendants depth-first. Returning false from fn skips the node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if n.Type == html.ElementNode && !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
