// Package advisory merges two independent government travel-advisory feeds
// for a country: the US State Department bulk RSS feed and the UK
// foreign-travel-advice per-country atom feed plus its human-readable page.
// The two sides do not need to agree and are surfaced next to each other.
package advisory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tripwatch/travel-safety-api/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultUSFeedURL = "https://travel.state.gov/_res/rss/TAsTWs.xml"
	defaultUKBaseURL = "https://www.gov.uk/foreign-travel-advice"

	// Some upstreams reject requests without a browser-looking agent.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Alert is one inline alert block scraped from the UK advice page, in
// document order.
type Alert struct {
	Type    string `json:"type" bson:"type"` // "note" or "risk"
	Content string `json:"content" bson:"content"`
}

// UKData carries everything obtained from the UK side of the merge.
type UKData struct {
	ArticleLink    string  `json:"articleLink" bson:"articleLink"`
	PublishedDate  string  `json:"publishedDate,omitempty" bson:"publishedDate,omitempty"`
	ArticleSummary string  `json:"articleSummary" bson:"articleSummary"`
	MetadataHTML   string  `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Alerts         []Alert `json:"alerts" bson:"alerts"`
}

// Result is the merged advisory. Fields keep their zero/"Unknown" defaults
// when a side is unreachable; the merge itself never fails.
type Result struct {
	Country              string `json:"country" bson:"country"`
	RiskLevel            string `json:"riskLevel" bson:"riskLevel"`
	RiskLevelDescription string `json:"riskLevelDescription" bson:"riskLevelDescription"`
	ArticleLink          string `json:"articleLink" bson:"articleLink"`
	PublishedDate        string `json:"publishedDate,omitempty" bson:"publishedDate,omitempty"`
	ArticleSummary       string `json:"articleSummary" bson:"articleSummary"`
	Article              string `json:"article,omitempty" bson:"article,omitempty"`
	UKData               UKData `json:"ukData" bson:"ukData"`
}

// Service fetches and merges the two advisory sources.
type Service struct {
	client    *http.Client
	usFeedURL string
	ukBaseURL string
	log       *zap.SugaredLogger
}

func NewService(client *http.Client) *Service {
	return &Service{
		client:    client,
		usFeedURL: defaultUSFeedURL,
		ukBaseURL: defaultUKBaseURL,
		log:       logger.GetLogger("advisory"),
	}
}

func emptyResult(country string) Result {
	return Result{
		Country:              country,
		RiskLevel:            "Unknown",
		RiskLevelDescription: "No data available",
		UKData:               UKData{Alerts: []Alert{}},
	}
}

// TravelAdvisory returns the merged advisory for a country. Each side is
// processed independently; a failed side leaves its fields at their defaults
// rather than failing the merge.
func (s *Service) TravelAdvisory(ctx context.Context, country string) Result {
	result := emptyResult(country)

	if err := s.applyUSFeed(ctx, country, &result); err != nil {
		s.log.Warnw("us advisory feed failed", "country", country, "error", err)
	}

	if err := s.applyUKFeed(ctx, country, &result); err != nil {
		// Common: the per-country UK feed may simply not exist.
		s.log.Debugw("uk advisory feed failed", "country", country, "error", err)
	}

	return result
}

// applyUSFeed locates the country's entry in the US bulk RSS feed by
// case-insensitive substring match on the title. First match wins; country
// names that are substrings of others (e.g. Niger/Nigeria) are ambiguous.
// That matches the upstream feed's own presentation and is a known
// limitation, not silently worked around here.
func (s *Service) applyUSFeed(ctx context.Context, country string, result *Result) error {
	feed, err := s.fetchUSFeed(ctx)
	if err != nil {
		return err
	}

	var item *rssItem
	needle := strings.ToLower(country)
	for i := range feed.Channel.Items {
		if strings.Contains(strings.ToLower(feed.Channel.Items[i].Title), needle) {
			item = &feed.Channel.Items[i]
			break
		}
	}
	if item == nil {
		return fmt.Errorf("no advisory entry for %q", country)
	}

	titleParts := strings.SplitN(item.Title, " - ", 2)
	if p := strings.TrimSpace(titleParts[0]); p != "" {
		result.Country = p
	}

	// Prefer the explicit Threat-Level category; fall back to the title
	// suffix. Either way the field reads "Level N: Description".
	threat := ""
	for _, c := range item.Categories {
		if c.Domain == "Threat-Level" {
			threat = strings.TrimSpace(c.Value)
			break
		}
	}
	if threat == "" && len(titleParts) > 1 {
		threat = strings.TrimSpace(titleParts[1])
	}
	if threat != "" {
		threatParts := strings.SplitN(threat, ":", 2)
		result.RiskLevel = strings.TrimSpace(threatParts[0])
		if len(threatParts) > 1 {
			result.RiskLevelDescription = strings.TrimSpace(threatParts[1])
		}
	}

	result.ArticleLink = item.GUID
	if result.ArticleLink == "" {
		result.ArticleLink = item.Link
	}
	result.PublishedDate = item.PubDate
	result.Article = item.Description
	result.ArticleSummary = summarizeDescription(item.Description)

	return nil
}

// summarizeDescription extracts the summary paragraph from the advisory body:
// the second paragraph when present, otherwise the first. Positional, but the
// feed's first paragraph is boilerplate often enough that this holds up.
func summarizeDescription(descriptionHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(descriptionHTML))
	if err != nil {
		return ""
	}
	paragraphs := doc.Find("p")
	if paragraphs.Length() >= 2 {
		return strings.TrimSpace(paragraphs.Eq(1).Text())
	}
	if paragraphs.Length() > 0 {
		return strings.TrimSpace(paragraphs.Eq(0).Text())
	}
	return ""
}

// applyUKFeed reads the per-country UK atom feed, then scrapes the advice
// page it links to for inline "note" and "call-to-action" alert blocks.
func (s *Service) applyUKFeed(ctx context.Context, country string, result *Result) error {
	slug := ukSlug(country)
	feedURL := fmt.Sprintf("%s/%s.atom", s.ukBaseURL, slug)

	body, err := s.get(ctx, feedURL)
	if err != nil {
		return err
	}

	feed, err := parseAtom(body)
	if err != nil {
		return err
	}
	if len(feed.Entries) == 0 {
		return fmt.Errorf("empty uk feed for %q", country)
	}

	entry := feed.Entries[0]
	result.UKData.PublishedDate = entry.Updated

	pageURL := fmt.Sprintf("%s/%s", s.ukBaseURL, slug)
	for _, l := range entry.Links {
		if l.Rel == "alternate" && l.Href != "" {
			pageURL = l.Href
			break
		}
	}
	result.UKData.ArticleLink = pageURL
	result.UKData.ArticleSummary = fmt.Sprintf("Foreign travel advice %s", country)

	page, err := s.get(ctx, pageURL)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		return err
	}

	if html, err := doc.Find(`[data-module="metadata"]`).Html(); err == nil && html != "" {
		result.UKData.MetadataHTML = strings.TrimSpace(html)
	}

	doc.Find(`div[role="note"]`).Each(func(_ int, sel *goquery.Selection) {
		if html, err := sel.Html(); err == nil {
			result.UKData.Alerts = append(result.UKData.Alerts, Alert{Type: "note", Content: html})
		}
	})
	doc.Find(`.call-to-action, div[role="call-to-action"]`).Each(func(_ int, sel *goquery.Selection) {
		if html, err := sel.Html(); err == nil {
			result.UKData.Alerts = append(result.UKData.Alerts, Alert{Type: "risk", Content: html})
		}
	})

	return nil
}

// AllAdvisories returns the full country-name to numeric-risk-level mapping
// from the US bulk feed, for map overlays. Independent of the per-location
// cache path.
func (s *Service) AllAdvisories(ctx context.Context) (map[string]int, error) {
	feed, err := s.fetchUSFeed(ctx)
	if err != nil {
		return nil, err
	}

	levels := make(map[string]int)
	for _, item := range feed.Channel.Items {
		parts := strings.SplitN(item.Title, " - Level ", 2)
		if len(parts) < 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		levelPart := strings.SplitN(parts[1], ":", 2)[0]
		level, err := strconv.Atoi(strings.TrimSpace(levelPart))
		if err != nil {
			continue
		}
		levels[name] = level
	}
	return levels, nil
}

func (s *Service) fetchUSFeed(ctx context.Context) (*rssFeed, error) {
	body, err := s.get(ctx, s.usFeedURL)
	if err != nil {
		return nil, err
	}
	return parseRSS(body)
}

func (s *Service) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}
