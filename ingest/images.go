package ingest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// FindImage returns the first image URL found on a feed entry, or nil. The
// lookup order is: media:content with an image/* type, media:thumbnail, an
// image/* enclosure, the image gofeed itself attached to the item, and
// finally the first <img> inside the entry's HTML.
func FindImage(item *gofeed.Item) *string {
	for _, find := range []func(*gofeed.Item) string{
		mediaContentImage,
		mediaThumbnail,
		enclosureImage,
		itemImage,
		embeddedImage,
	} {
		if u := strings.TrimSpace(find(item)); u != "" {
			return &u
		}
	}
	return nil
}

// mediaElements collects the named Media RSS elements on an item, including
// those nested in <media:group>.
func mediaElements(item *gofeed.Item, name string) []ext.Extension {
	media, ok := item.Extensions["media"]
	if !ok {
		return nil
	}

	found := append([]ext.Extension(nil), media[name]...)
	for _, group := range media["group"] {
		found = append(found, group.Children[name]...)
	}
	return found
}

func mediaContentImage(item *gofeed.Item) string {
	for _, c := range mediaElements(item, "content") {
		if strings.HasPrefix(c.Attrs["type"], "image/") && c.Attrs["url"] != "" {
			return c.Attrs["url"]
		}
	}
	return ""
}

func mediaThumbnail(item *gofeed.Item) string {
	thumbs := mediaElements(item, "thumbnail")
	for _, c := range mediaElements(item, "content") {
		thumbs = append(thumbs, c.Children["thumbnail"]...)
	}
	for _, t := range thumbs {
		if u := t.Attrs["url"]; u != "" {
			return u
		}
	}
	return ""
}

func enclosureImage(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func itemImage(item *gofeed.Item) string {
	if item.Image == nil {
		return ""
	}
	return item.Image.URL
}

func embeddedImage(item *gofeed.Item) string {
	for _, html := range []string{item.Description, item.Content} {
		if !strings.Contains(html, "<img") {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			continue
		}
		if src, ok := doc.Find("img[src]").First().Attr("src"); ok && src != "" {
			return src
		}
	}
	return ""
}
