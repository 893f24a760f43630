package feeds

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Wired</title>
    <item>
      <title>The Budget App Boom</title>
      <link>https://example.com/budget-apps</link>
      <description>Why everyone is budgeting again.</description>
      <pubDate>Mon, 24 Aug 2026 10:30:00 -0400</pubDate>
      <dc:creator>Jane Doe</dc:creator>
    </item>
    <item>
      <title>No Link Here</title>
      <description>Should be skipped.</description>
    </item>
    <item>
      <title>AI Tutors Everywhere</title>
      <link>https://example.com/ai-tutors</link>
      <author>sam@example.com (Sam Smith)</author>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Health Weekly</title>
  <entry>
    <title>Sleep Tracking Backlash</title>
    <link rel="alternate" href="https://example.com/sleep"/>
    <link rel="self" href="https://example.com/sleep.atom"/>
    <summary>Wearables under scrutiny.</summary>
    <updated>2026-08-20T08:00:00Z</updated>
    <author><name>Alex Kim</name></author>
  </entry>
</feed>`

func TestParseFeed_RSS(t *testing.T) {
	articles, err := ParseFeed(strings.NewReader(sampleRSS))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	a := articles[0]
	assert.Equal(t, "The Budget App Boom", a.Title)
	assert.Equal(t, "https://example.com/budget-apps", a.URL)
	assert.Equal(t, "Jane Doe", a.Author)
	assert.Equal(t, "Wired", a.Publication)
	assert.Equal(t, "Why everyone is budgeting again.", a.Summary)
	assert.Equal(t, time.Date(2026, 8, 24, 14, 30, 0, 0, time.UTC), a.PublishedAt)

	// dc:creator absent, author element used instead.
	assert.Equal(t, "sam@example.com (Sam Smith)", articles[1].Author)
}

func TestParseFeed_Atom(t *testing.T) {
	articles, err := ParseFeed(strings.NewReader(sampleAtom))
	require.NoError(t, err)
	require.Len(t, articles, 1)

	a := articles[0]
	assert.Equal(t, "Sleep Tracking Backlash", a.Title)
	assert.Equal(t, "https://example.com/sleep", a.URL)
	assert.Equal(t, "Alex Kim", a.Author)
	assert.Equal(t, "Health Weekly", a.Publication)
	assert.Equal(t, time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC), a.PublishedAt)
}

func TestParseFeed_Latin1Charset(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<rss version=\"2.0\"><channel><title>Le Journal</title>" +
		"<item><title>Caf\xe9 Economics</title><link>https://example.com/cafe</link></item>" +
		"</channel></rss>"

	articles, err := ParseFeed(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Café Economics", articles[0].Title)
}

func TestParseFeed_EmptyRSS(t *testing.T) {
	doc := `<rss version="2.0"><channel><title>Quiet</title></channel></rss>`

	articles, err := ParseFeed(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestParseFeed_NotAFeed(t *testing.T) {
	_, err := ParseFeed(strings.NewReader(`<html><body>nope</body></html>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither RSS nor Atom")
}

func TestParsePubDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"Mon, 24 Aug 2026 10:30:00 GMT", time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)},
		{"2026-08-24T10:30:00Z", time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)},
		{"2026-08-24", time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)},
		{"garbage", time.Time{}},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parsePubDate(tt.raw), "raw=%q", tt.raw)
	}
}

func TestEntryLink(t *testing.T) {
	assert.Equal(t, "https://a", entryLink([]atomLink{
		{Rel: "self", Href: "https://self"},
		{Rel: "alternate", Href: "https://a"},
	}))
	assert.Equal(t, "https://self", entryLink([]atomLink{
		{Rel: "self", Href: "https://self"},
	}))
	assert.Empty(t, entryLink(nil))
}
