// Package listings scrapes property search result pages with a headless
// browser and returns the cards as raw rows for the import pipeline.
package listings

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"property-ingest/models"
	"property-ingest/utils"
)

// Headers are the column names of the rows Scrape returns.
var Headers = []string{
	"title", "address", "postcode", "price", "property type", "bedrooms", "bathrooms",
	"tenure", "image url", "estate agent", "description", "key features", "listing url",
}

var postcodeRegexp = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d[A-Z\d]?)\s*(\d[A-Z]{2})\b`)

type Options struct {
	StartURL       string
	Pages          int
	PerPage        int
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	ChromeBin      string
}

// Card is one listing as read from the results page and its detail page.
type Card struct {
	Title        string   `json:"title"`
	Address      string   `json:"address"`
	Price        string   `json:"price"`
	PropertyType string   `json:"type"`
	Bedrooms     string   `json:"beds"`
	Bathrooms    string   `json:"baths"`
	Tenure       string   `json:"tenure"`
	Image        string   `json:"image"`
	Agent        string   `json:"agent"`
	URL          string   `json:"url"`
	Description  string   `json:"description"`
	Features     []string `json:"features"`
}

// Row renders the card under Headers.
func (c *Card) Row() models.RawRow {
	return models.RawRow{
		"title":         c.Title,
		"address":       c.Address,
		"postcode":      extractPostcode(c.Address),
		"price":         c.Price,
		"property type": c.PropertyType,
		"bedrooms":      c.Bedrooms,
		"bathrooms":     c.Bathrooms,
		"tenure":        c.Tenure,
		"image url":     c.Image,
		"estate agent":  c.Agent,
		"description":   c.Description,
		"key features":  strings.Join(c.Features, "; "),
		"listing url":   c.URL,
	}
}

// extractPostcode finds a UK postcode in s and formats it "OUT IN".
func extractPostcode(s string) string {
	m := postcodeRegexp.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1] + " " + m[2])
}

// Scraper walks paginated search results and visits each listing once.
type Scraper struct {
	opts       Options
	logger     *utils.Logger
	pool       *utils.WorkerPool
	visitedURL *utils.SeenSet[string]
	retry      *utils.RetryConfig

	mu    sync.Mutex
	cards []*Card
}

func New(opts Options, logger *utils.Logger) *Scraper {
	if opts.Pages < 1 {
		opts.Pages = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = 25
	}
	return &Scraper{
		opts:       opts,
		logger:     logger,
		pool:       utils.NewWorkerPool(opts.MaxConcurrency, opts.RateLimitMs),
		visitedURL: utils.NewSeenSet[string](),
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Scrape drives pagination and detail-page enrichment, returning the
// collected listings as headers and raw rows.
func (s *Scraper) Scrape(ctx context.Context) ([]string, []models.RawRow, error) {
	if s.opts.StartURL == "" {
		return nil, nil, fmt.Errorf("listings: start URL is required")
	}
	s.logger.Info("[listings] Starting scrape of %s, up to %d pages", s.opts.StartURL, s.opts.Pages)

	chromeBin := s.opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Info("[listings] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	currentURL := s.opts.StartURL
	for page := 1; page <= s.opts.Pages; page++ {
		s.logger.Info("[listings] Scraping page %d: %s", page, currentURL)

		cards, nextURL, err := s.scrapePage(browserCtx, currentURL, page)
		if err != nil {
			s.logger.Error("[listings] Page %d failed: %v", page, err)
			break
		}
		if len(cards) == 0 {
			s.logger.Warn("[listings] Page %d returned 0 listings, stopping", page)
			break
		}

		s.enrichCards(browserCtx, cards)

		s.mu.Lock()
		s.cards = append(s.cards, cards...)
		total := len(s.cards)
		s.mu.Unlock()
		s.logger.Info("[listings] Page %d done, %d listings so far", page, total)

		if nextURL == "" {
			break
		}
		currentURL = nextURL

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(time.Duration(s.opts.RateLimitMs) * time.Millisecond):
		}
	}

	rows := make([]models.RawRow, len(s.cards))
	for i, c := range s.cards {
		rows[i] = c.Row()
	}
	s.logger.Info("[listings] Scrape complete, %d listings", len(rows))
	return Headers, rows, nil
}

// cardScript reads listing cards using schema.org markup first, then
// common data-testid attributes, then any link that looks like a listing.
const cardScript = `
(function(limit) {
	var text = function(root, sels) {
		for (var i = 0; i < sels.length; i++) {
			var el = root.querySelector(sels[i]);
			if (el && el.innerText && el.innerText.trim()) return el.innerText.trim();
		}
		return '';
	};
	var cards = document.querySelectorAll(
		'[itemtype*="SingleFamilyResidence"], [itemtype*="Residence"], [data-testid*="property-card"], ' +
		'[data-testid*="search-result"], article[class*="property"], li[class*="listing"]');
	var results = [], seen = {};
	for (var i = 0; i < cards.length && results.length < limit; i++) {
		var card = cards[i];
		var link = card.querySelector('a[href*="/propert"], a[href*="/details"], a[href*="/for-sale/"], a[href]');
		var url = link ? link.href : '';
		if (!url || seen[url]) continue;
		seen[url] = true;
		var img = card.querySelector('img');
		var body = card.innerText || '';
		var beds = body.match(/(\d+)\s*(bed|bedroom)/i);
		var baths = body.match(/(\d+)\s*(bath|bathroom)/i);
		var price = body.match(/£\s*[\d,]+(\s*(pcm|pw))?/i);
		results.push({
			title:   text(card, ['h2', 'h3', '[data-testid*="title"]']),
			address: text(card, ['address', '[itemprop="address"]', '[data-testid*="address"]']),
			price:   price ? price[0] : text(card, ['[data-testid*="price"]', '[class*="price"]']),
			type:    text(card, ['[data-testid*="property-type"]', '[class*="propertyType"]']),
			beds:    beds ? beds[1] : '',
			baths:   baths ? baths[1] : '',
			tenure:  (body.match(/freehold|leasehold|share of freehold/i) || [''])[0],
			image:   img ? (img.currentSrc || img.src || '') : '',
			agent:   text(card, ['[data-testid*="agent"]', '[class*="agent"]', '[class*="branch"]']),
			url:     url
		});
	}
	return results;
})(%d)`

const nextPageScript = `
(function() {
	var candidates = [
		document.querySelector('a[rel="next"]'),
		document.querySelector('a[aria-label="Next"]'),
		document.querySelector('a[aria-label="Next page"]'),
		document.querySelector('[data-testid="pagination-next"]')
	];
	for (var i = 0; i < candidates.length; i++) {
		if (candidates[i] && candidates[i].href) return candidates[i].href;
	}
	var links = document.querySelectorAll('nav a, [role="navigation"] a');
	for (var j = 0; j < links.length; j++) {
		var t = (links[j].innerText || '').trim().toLowerCase();
		if (t === 'next' || t === '>' || t === '›') return links[j].href;
	}
	return '';
})()`

func (s *Scraper) scrapePage(browserCtx context.Context, pageURL string, pageNum int) ([]*Card, string, error) {
	var found []*Card
	var nextURL string

	err := s.retry.Do(browserCtx, fmt.Sprintf("scrape-page-%d", pageNum), func(ctx context.Context) error {
		tabCtx, cancel := chromedp.NewContext(ctx)
		defer cancel()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 90*time.Second)
		defer cancelTimeout()

		var cards []*Card
		var next string
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(4*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(fmt.Sprintf(cardScript, s.opts.PerPage), &cards),
			chromedp.Evaluate(nextPageScript, &next),
		)
		if err != nil {
			return fmt.Errorf("chromedp page scrape: %w", err)
		}

		s.logger.Debug("[listings] Page %d, found %d cards", pageNum, len(cards))

		found = found[:0]
		for _, c := range cards {
			if c.URL == "" {
				continue
			}
			if !s.visitedURL.Add(c.URL) {
				s.logger.Debug("[listings] Skipping duplicate: %s", c.URL)
				continue
			}
			found = append(found, c)
		}
		nextURL = next
		return nil
	})
	return found, nextURL, err
}

type detailData struct {
	Title       string   `json:"title"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Tenure      string   `json:"tenure"`
}

const detailScript = `
(function() {
	var result = {title: '', address: '', description: '', features: [], tenure: ''};
	var h1 = document.querySelector('h1');
	if (h1) result.title = h1.innerText.trim();
	var addr = document.querySelector('[itemprop="streetAddress"], address, [data-testid*="address"]');
	if (addr) result.address = addr.innerText.trim();
	var desc = document.querySelector('[itemprop="description"], [data-testid*="description"], [class*="description"]');
	if (desc) result.description = desc.innerText.trim().substring(0, 2000);
	var items = document.querySelectorAll('[data-testid*="feature"] li, [class*="keyFeatures"] li, [class*="key-features"] li');
	for (var i = 0; i < items.length && i < 20; i++) {
		var t = items[i].innerText.trim();
		if (t) result.features.push(t);
	}
	var body = document.body.innerText || '';
	result.tenure = (body.match(/tenure:?\s*(freehold|leasehold|share of freehold)/i) || ['', ''])[1];
	return result;
})()`

// enrichCards visits each detail page through the worker pool and fills
// in whatever the results page did not show.
func (s *Scraper) enrichCards(browserCtx context.Context, cards []*Card) {
	for _, card := range cards {
		c := card
		s.pool.Submit(browserCtx, func(ctx context.Context) {
			d, err := s.scrapeDetailPage(ctx, c.URL)
			if err != nil {
				s.logger.Warn("[listings] Detail page failed for %s: %v", c.URL, err)
				return
			}
			mergeDetail(c, d)
			s.logger.Debug("[listings] Enriched: %s", c.Title)
		})
	}
	s.pool.Wait()
}

func mergeDetail(c *Card, d *detailData) {
	if c.Title == "" {
		c.Title = d.Title
	}
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.Tenure == "" {
		c.Tenure = d.Tenure
	}
	if len(c.Features) == 0 {
		c.Features = d.Features
	}
	c.Description = d.Description
}

func (s *Scraper) scrapeDetailPage(browserCtx context.Context, url string) (*detailData, error) {
	var details detailData
	err := s.retry.Do(browserCtx, "detail-page", func(ctx context.Context) error {
		tabCtx, cancel := chromedp.NewContext(ctx)
		defer cancel()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
		defer cancelTimeout()

		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(detailScript, &details),
		); err != nil {
			return fmt.Errorf("chromedp detail extract: %w", err)
		}
		return nil
	})
	return &details, err
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
