package advisory

import (
	"bytes"
	"encoding/xml"
	"io"
)

// Feed shapes are small and fixed, so plain encoding/xml structs suffice.

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	GUID        string        `xml:"guid"`
	PubDate     string        `xml:"pubDate"`
	Description string        `xml:"description"`
	Categories  []rssCategory `xml:"category"`
}

type rssCategory struct {
	Domain string `xml:"domain,attr"`
	Value  string `xml:",chardata"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Updated string     `xml:"updated"`
	Links   []atomLink `xml:"link"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

func parseRSS(body []byte) (*rssFeed, error) {
	var feed rssFeed
	if err := newDecoder(body).Decode(&feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

func parseAtom(body []byte) (*atomFeed, error) {
	var feed atomFeed
	if err := newDecoder(body).Decode(&feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// newDecoder tolerates the legacy charsets some government feeds declare.
func newDecoder(body []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		// Feeds occasionally declare ISO-8859-1 while shipping ASCII-safe
		// bytes. Reading them as-is is fine for the fields we extract.
		return input, nil
	}
	return dec
}
