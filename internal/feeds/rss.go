package feeds

import (
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/studio-cli/internal/model"
)

// rssFeed covers RSS 2.0 documents.
type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Creator     string `xml:"creator"` // dc:creator
	Author      string `xml:"author"`
}

// atomFeed covers Atom documents.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	Links   []atomLink `xml:"link"`
	Summary string     `xml:"summary"`
	Updated string     `xml:"updated"`
	Author  struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

var pubDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02",
}

// ParseFeed reads an RSS 2.0 or Atom document and returns its entries as
// articles. Entries without a link are logged and skipped.
func ParseFeed(r io.Reader) ([]model.Article, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "feeds: read feed")
	}

	var rss rssFeed
	if err := decodeXML(raw, &rss); err == nil {
		return rssArticles(rss), nil
	}

	var atom atomFeed
	if err := decodeXML(raw, &atom); err == nil {
		return atomArticles(atom), nil
	}

	return nil, eris.New("feeds: document is neither RSS nor Atom")
}

func decodeXML(raw []byte, out any) error {
	decoder := xml.NewDecoder(strings.NewReader(string(raw)))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "feeds: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return decoder.Decode(out)
}

func rssArticles(feed rssFeed) []model.Article {
	articles := make([]model.Article, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			zap.L().Warn("feed item has no link, skipping",
				zap.String("title", item.Title),
				zap.String("feed", feed.Channel.Title),
			)
			continue
		}

		author := strings.TrimSpace(item.Creator)
		if author == "" {
			author = strings.TrimSpace(item.Author)
		}

		articles = append(articles, model.Article{
			URL:         link,
			Title:       strings.TrimSpace(item.Title),
			Author:      author,
			Publication: strings.TrimSpace(feed.Channel.Title),
			Summary:     strings.TrimSpace(item.Description),
			PublishedAt: parsePubDate(item.PubDate),
		})
	}
	return articles
}

func atomArticles(feed atomFeed) []model.Article {
	articles := make([]model.Article, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		link := entryLink(entry.Links)
		if link == "" {
			zap.L().Warn("feed entry has no link, skipping",
				zap.String("title", entry.Title),
				zap.String("feed", feed.Title),
			)
			continue
		}

		articles = append(articles, model.Article{
			URL:         link,
			Title:       strings.TrimSpace(entry.Title),
			Author:      strings.TrimSpace(entry.Author.Name),
			Publication: strings.TrimSpace(feed.Title),
			Summary:     strings.TrimSpace(entry.Summary),
			PublishedAt: parsePubDate(entry.Updated),
		})
	}
	return articles
}

// entryLink prefers rel="alternate" (or no rel), falling back to the
// first link present.
func entryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range pubDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	zap.L().Debug("unparseable feed date", zap.String("value", raw))
	return time.Time{}
}
