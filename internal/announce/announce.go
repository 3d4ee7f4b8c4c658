// Package announce reads the NBN "more fibre" page, which lists, per state, the suburbs
// announced for fibre upgrades and the month each becomes eligible.
package announce

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"fibre-tracker/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Announcement is one suburb named on the page. Date is nil when the page gives no
// readable month.
type Announcement struct {
	State  string
	Suburb string
	Date   *time.Time
}

var lineRe = regexp.MustCompile(`(?m)^\s*(.+?) - from (.+?)\s*$`)

// Parse extracts announcements from the page's accordion: one item per state, its title
// naming the state and its text paragraphs holding "<suburb> - from <Month YYYY>" lines.
// Unknown state headings are skipped. The result is ordered by state, then suburb.
func Parse(r io.Reader) ([]Announcement, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("announce: parse page: %w", err)
	}

	var out []Announcement
	doc.Find("div.cmp-accordion__item").Each(func(_ int, item *goquery.Selection) {
		heading := strings.TrimSpace(item.Find("span.cmp-accordion__title").First().Text())
		state, ok := models.StateNames[heading]
		if !ok {
			log.Debug().Str("heading", heading).Msg("skipping unknown state heading")
			return
		}
		item.Find("div.cmp-text p").Each(func(_ int, p *goquery.Selection) {
			for _, m := range lineRe.FindAllStringSubmatch(p.Text(), -1) {
				suburb := cleanSuburb(m[1])
				if suburb == "" {
					continue
				}
				a := Announcement{State: state, Suburb: suburb}
				if date, err := time.Parse("January 2006", strings.TrimSpace(m[2])); err == nil {
					a.Date = &date
				}
				out = append(out, a)
			}
		})
	})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].Suburb < out[j].Suburb
	})
	return out, nil
}

// cleanSuburb strips footnote markers and non-breaking spaces and title-cases the name.
func cleanSuburb(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.Trim(s, "*#. \r\n\t")
	return models.DisplayName(s)
}

// Fetcher downloads and parses the announcement page.
type Fetcher struct {
	http *resty.Client
	url  string
}

func NewFetcher(url string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(2).
			SetHeader("User-Agent", "fibre-tracker").
			SetDoNotParseResponse(true),
		url: url,
	}
}

func (f *Fetcher) Fetch(ctx context.Context) ([]Announcement, error) {
	log.Info().Str("url", f.url).Msg("fetching announced suburbs")
	res, err := f.http.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("announce: fetch %s: %w", f.url, err)
	}
	body := res.RawBody()
	defer body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("announce: fetch %s: unexpected status %d", f.url, res.StatusCode())
	}
	return Parse(body)
}
