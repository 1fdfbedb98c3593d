// Package opml imports and exports RSS sources as OPML 2.0 documents,
// the standard feed-list exchange format. Folders map to category;
// only entity.SourceTypeRSS sources participate.
package opml

import (
	"encoding/xml"
	"fmt"
	"sort"
	"time"

	"sentinelpi/internal/domain/entity"
)

// Document is the root <opml> element.
type Document struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head carries document-level metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
	OwnerName   string `xml:"ownerName,omitempty"`
	Docs        string `xml:"docs,omitempty"`
}

// Body holds the top-level outline tree.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline is either a folder (Outlines non-empty, XMLURL empty) or a
// feed (XMLURL set).
type Outline struct {
	Text        string    `xml:"text,attr"`
	Title       string    `xml:"title,attr,omitempty"`
	Type        string    `xml:"type,attr,omitempty"`
	XMLURL      string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL     string    `xml:"htmlUrl,attr,omitempty"`
	Category    string    `xml:"category,attr,omitempty"`
	Description string    `xml:"description,attr,omitempty"`
	Outlines    []Outline `xml:"outline,omitempty"`
}

// IsFeed reports whether this outline represents a single feed rather
// than a folder.
func (o Outline) IsFeed() bool { return o.XMLURL != "" }

// Export builds an OPML 2.0 document from the given sources, grouping
// RSS sources into folders by category when groupByCategory is true.
// Non-RSS sources are skipped: OPML is an RSS-feed exchange format.
func Export(sources []*entity.Source, title, ownerName string, groupByCategory bool, now time.Time) Document {
	rss := make([]*entity.Source, 0, len(sources))
	for _, s := range sources {
		if s.Type == entity.SourceTypeRSS {
			rss = append(rss, s)
		}
	}

	doc := Document{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: now.UTC().Format(time.RFC1123Z),
			OwnerName:   ownerName,
			Docs:        "http://opml.org/spec2.opml",
		},
	}

	if !groupByCategory {
		for _, s := range rss {
			doc.Body.Outlines = append(doc.Body.Outlines, sourceOutline(s))
		}
		return doc
	}

	byCategory := make(map[string][]*entity.Source)
	var uncategorized []*entity.Source
	for _, s := range rss {
		if s.Category == "" {
			uncategorized = append(uncategorized, s)
			continue
		}
		byCategory[s.Category] = append(byCategory[s.Category], s)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		folder := Outline{Text: category, Title: category}
		for _, s := range byCategory[category] {
			folder.Outlines = append(folder.Outlines, sourceOutline(s))
		}
		doc.Body.Outlines = append(doc.Body.Outlines, folder)
	}
	for _, s := range uncategorized {
		doc.Body.Outlines = append(doc.Body.Outlines, sourceOutline(s))
	}

	return doc
}

func sourceOutline(s *entity.Source) Outline {
	outline := Outline{
		Text:   s.Name,
		Title:  s.Name,
		Type:   "rss",
		XMLURL: s.URL,
	}
	if s.Category != "" {
		outline.Category = s.Category
	}
	if htmlURL, ok := s.Config["html_url"].(string); ok {
		outline.HTMLURL = htmlURL
	}
	if description, ok := s.Config["description"].(string); ok {
		outline.Description = description
	}
	return outline
}

// Marshal renders a Document as an XML byte slice with a standard
// declaration, matching the output conventions RSS readers expect.
func Marshal(doc Document) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("opml: marshal: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// ImportedFeed is a flattened feed outline with its inherited category,
// ready to become an entity.Source.
type ImportedFeed struct {
	Name        string
	URL         string
	Category    string
	Description string
}

// Parse parses an OPML document from raw XML bytes.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("opml: parse: %w", err)
	}
	if doc.XMLName.Local != "opml" {
		return Document{}, fmt.Errorf("opml: root element must be <opml>, got <%s>", doc.XMLName.Local)
	}
	return doc, nil
}

// Feeds flattens a Document's outline tree into a list of importable
// feeds, inheriting a folder's text/title as category for any child
// feed that doesn't set its own.
func Feeds(doc Document) []ImportedFeed {
	var feeds []ImportedFeed
	var walk func(outlines []Outline, parentCategory string)
	walk = func(outlines []Outline, parentCategory string) {
		for _, o := range outlines {
			if o.IsFeed() {
				category := o.Category
				if category == "" {
					category = parentCategory
				}
				feeds = append(feeds, ImportedFeed{
					Name:        firstNonEmpty(o.Title, o.Text),
					URL:         o.XMLURL,
					Category:    category,
					Description: o.Description,
				})
				continue
			}
			childCategory := firstNonEmpty(o.Text, o.Title, parentCategory)
			walk(o.Outlines, childCategory)
		}
	}
	walk(doc.Body.Outlines, "")
	return feeds
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
