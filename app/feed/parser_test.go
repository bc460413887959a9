package feed

import (
	"testing"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Oldtimer Classifieds</title>
    <link>https://example.com</link>
    <description>Classic car listings</description>
    <item>
      <title>Mercedes 450SL 1978</title>
      <link>https://example.com/listing/450sl</link>
      <description>Very clean 450SL, hardtop included</description>
      <guid>abc123</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <enclosure url="https://example.com/photos/450sl.jpg" type="image/jpeg" length="12345"/>
    </item>
    <item>
      <title>SL rear bumper chrome</title>
      <link>https://example.com/listing/bumper</link>
      <description>Rear bumper for 107 series</description>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	items, err := parser.Run([]byte(rssData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	first := items[0]
	if first.Title != "Mercedes 450SL 1978" {
		t.Errorf("Expected title 'Mercedes 450SL 1978', got: %s", first.Title)
	}
	if first.GUID != "abc123" {
		t.Errorf("Expected GUID 'abc123', got: %s", first.GUID)
	}
	if first.ImageURL != "https://example.com/photos/450sl.jpg" {
		t.Errorf("Expected enclosure image URL, got: %s", first.ImageURL)
	}
	if first.PublishedAt == nil {
		t.Error("Expected publish date to be parsed")
	}

	second := items[1]
	if second.GUID != "https://example.com/listing/bumper" {
		t.Errorf("Expected GUID to fall back to link, got: %s", second.GUID)
	}
	if second.PublishedAt != nil {
		t.Error("Expected nil publish date for item without pubDate")
	}
	if second.ImageURL != "" {
		t.Errorf("Expected empty image URL, got: %s", second.ImageURL)
	}
}

func TestParseImageFromDescription(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Feed</title>
    <link>https://example.com</link>
    <description>d</description>
    <item>
      <title>SL grille star</title>
      <link>https://example.com/listing/grille</link>
      <description>&lt;p&gt;Grille with star&lt;/p&gt;&lt;img src="https://example.com/img/grille.jpg" alt=""&gt;</description>
      <guid>grille-1</guid>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	items, err := parser.Run([]byte(rssData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}

	if items[0].ImageURL != "https://example.com/img/grille.jpg" {
		t.Errorf("Expected image from description markup, got: %s", items[0].ImageURL)
	}
}

func TestParseMediaThumbnail(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Feed</title>
    <link>https://example.com</link>
    <description>d</description>
    <item>
      <title>560SL project car</title>
      <link>https://example.com/listing/560sl</link>
      <guid>560-1</guid>
      <media:thumbnail url="https://example.com/thumbs/560sl.jpg"/>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	items, err := parser.Run([]byte(rssData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}

	if items[0].ImageURL != "https://example.com/thumbs/560sl.jpg" {
		t.Errorf("Expected media thumbnail URL, got: %s", items[0].ImageURL)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Parts Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>W107 door seals</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <summary>New old stock door seals</summary>
  </entry>
</feed>`

	parser := NewParser()
	items, err := parser.Run([]byte(atomData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}
	if items[0].GUID != "urn:uuid:entry-1" {
		t.Errorf("Expected GUID 'urn:uuid:entry-1', got: %s", items[0].GUID)
	}
}

func TestParseInvalidData(t *testing.T) {
	parser := NewParser()

	_, err := parser.Run([]byte("this is not a feed"))
	if err == nil {
		t.Error("Expected error for non-feed data")
	}

	_, err = parser.Run([]byte(""))
	if err == nil {
		t.Error("Expected error for empty data")
	}
}
