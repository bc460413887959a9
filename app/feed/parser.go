package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses a syndication document into an ordered item sequence. Missing
// optional fields yield empty values rather than errors.
func (p *Parser) Run(data []byte) ([]Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.normalizeItem(item))
	}

	return items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		GUID:        cmp.Or(strings.TrimSpace(item.GUID), item.Link),
		Title:       strings.TrimSpace(item.Title),
		Link:        item.Link,
		Description: item.Description,
	}

	if item.PublishedParsed != nil {
		t := *item.PublishedParsed
		normalized.PublishedAt = &t
	} else if item.Published != "" {
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			normalized.PublishedAt = &t
		}
	}

	normalized.ImageURL = p.resolveImage(item)

	return normalized
}

// resolveImage picks an image for the item: media/enclosure URLs first, then
// the first <img> inside the description markup. Empty when neither exists.
func (p *Parser) resolveImage(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		if strings.HasPrefix(enclosure.Type, "image/") || hasImageExtension(enclosure.URL) {
			return enclosure.URL
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	return FirstImageSrc(item.Description)
}

func hasImageExtension(url string) bool {
	lower := strings.ToLower(url)
	if idx := strings.IndexAny(lower, "?#"); idx >= 0 {
		lower = lower[:idx]
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
