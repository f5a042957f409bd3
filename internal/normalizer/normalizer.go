// Package normalizer maps raw arXiv RSS documents to article records.
package normalizer

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/paperwire/arxiv-ingest/internal/ingest"
)

// Markers used to derive an article identifier from feed entries.
// arXiv guids look like "oai:arXiv.org:2203.01250v3" and canonical
// links like "https://arxiv.org/abs/2203.01250v3".
const (
	guidMarker = "oai:arXiv.org:"
	linkMarker = "arxiv.org/abs/"
)

// Normalizer parses a syndication feed document into the flat record
// shape consumed by the uploader.
type Normalizer struct {
	logger *zap.Logger
}

// New constructs a Normalizer.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize extracts one record per usable entry, preserving feed
// order. Entries with no derivable identifier are dropped silently;
// an unparseable document is an error.
func (n *Normalizer) Normalize(rawXML string) ([]ingest.ArticleRecord, error) {
	feed, err := gofeed.NewParser().ParseString(rawXML)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	records := make([]ingest.ArticleRecord, 0, len(feed.Items))
	dropped := 0
	for _, item := range feed.Items {
		identifier := deriveIdentifier(item)
		if identifier == "" {
			dropped++
			continue
		}
		records = append(records, ingest.ArticleRecord{
			Identifier:  identifier,
			Title:       item.Title,
			Link:        item.Link,
			Description: deriveDescription(item),
			Creator:     deriveCreator(item),
			DOI:         deriveDOI(item),
		})
	}
	if dropped > 0 {
		n.logger.Debug("entries dropped for missing identifier", zap.Int("dropped", dropped))
	}
	return records, nil
}

// deriveIdentifier prefers the namespaced guid, falls back to the
// trailing segment of the canonical abstract link, and returns empty
// when neither yields a value.
func deriveIdentifier(item *gofeed.Item) string {
	if idx := strings.Index(item.GUID, guidMarker); idx >= 0 {
		if id := item.GUID[idx+len(guidMarker):]; id != "" {
			return id
		}
	}
	if idx := strings.Index(item.Link, linkMarker); idx >= 0 {
		if id := item.Link[idx+len(linkMarker):]; id != "" {
			return id
		}
	}
	return ""
}

// deriveCreator prefers the single author field, then a comma-joined
// structured author list, then the Dublin Core creator elements.
func deriveCreator(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	names := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) > 0 {
		return strings.Join(names, ", ")
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return strings.Join(item.DublinCoreExt.Creator, ", ")
	}
	return ""
}

func deriveDescription(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Content
}

// deriveDOI reads the arxiv extension namespace; the element name
// casing varies across feed generations.
func deriveDOI(item *gofeed.Item) string {
	arxivExt, ok := item.Extensions["arxiv"]
	if !ok {
		return ""
	}
	for _, name := range []string{"DOI", "doi"} {
		if elems, ok := arxivExt[name]; ok && len(elems) > 0 && elems[0].Value != "" {
			return elems[0].Value
		}
	}
	return ""
}
