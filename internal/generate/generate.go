// Package generate renders collection-level summaries: a markdown
// table of contents and a Graphviz graph of record relationships.
package generate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/repo"
)

// TOCOptions tweak table-of-contents output.
type TOCOptions struct {
	// Prefix is prepended to every link target, e.g. when the TOC
	// lives outside the collection directory.
	Prefix string
	// Intro and Outro are emitted verbatim before and after the list.
	Intro string
	Outro string
}

// TOC renders a markdown table of contents, one list item per record
// in number order.
func TOC(r *repo.Repository, opts TOCOptions) (string, error) {
	recs, err := r.List()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Architecture Decision Records\n\n")
	if opts.Intro != "" {
		b.WriteString(opts.Intro)
		b.WriteString("\n\n")
	}
	for _, rec := range recs {
		name := filepath.Base(rec.Path)
		if name == "." {
			name = rec.Filename()
		}
		fmt.Fprintf(&b, "* [%s](%s%s)\n", rec.FullTitle(), opts.Prefix, name)
	}
	if opts.Outro != "" {
		b.WriteString("\n")
		b.WriteString(opts.Outro)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// GraphOptions tweak Graphviz output.
type GraphOptions struct {
	// LinkExtension replaces the .md extension in node URLs, e.g.
	// ".html" for a published site.
	LinkExtension string
	// LinkPrefix is prepended to node URLs.
	LinkPrefix string
}

// Graph renders the collection as a Graphviz digraph. Every record is
// a node; consecutive records are chained with invisible edges to keep
// the layout in number order, and every link becomes a labeled edge.
func Graph(r *repo.Repository, opts GraphOptions) (string, error) {
	recs, err := r.List()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("digraph {\n")
	b.WriteString("  node [shape=plaintext];\n")
	b.WriteString("  subgraph {\n")
	for i, rec := range recs {
		fmt.Fprintf(&b, "    _%d [label=%q; URL=%q];\n",
			rec.Number, rec.FullTitle(), nodeURL(rec, opts))
		if i > 0 {
			fmt.Fprintf(&b, "    _%d -> _%d [style=\"dotted\", weight=1];\n",
				recs[i-1].Number, rec.Number)
		}
	}
	b.WriteString("  }\n")
	for _, rec := range recs {
		for _, l := range rec.Links {
			fmt.Fprintf(&b, "  _%d -> _%d [label=%q, weight=0];\n",
				rec.Number, l.Target, l.Kind.String())
		}
	}
	b.WriteString("}\n")
	return b.String(), nil
}

func nodeURL(rec *models.Record, opts GraphOptions) string {
	name := filepath.Base(rec.Path)
	if name == "." {
		name = rec.Filename()
	}
	if opts.LinkExtension != "" {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + opts.LinkExtension
	}
	return opts.LinkPrefix + name
}
