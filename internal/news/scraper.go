package news

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const scraperUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Article is one scraped headline with optional body text.
type Article struct {
	Title     string
	Content   string
	URL       string
	Source    string
	FetchedAt time.Time
}

// Scraper pulls headlines from the configured forex news sources. Sources
// are generic financial news pages, so extraction uses broad selectors
// rather than per-site ones.
type Scraper struct {
	sources []string
	timeout time.Duration
	perSrc  int
	now     func() time.Time
}

// NewScraper creates a scraper over the given source URLs.
func NewScraper(sources []string, timeout time.Duration, maxPerSource int) *Scraper {
	if maxPerSource < 1 {
		maxPerSource = 1
	}
	return &Scraper{
		sources: sources,
		timeout: timeout,
		perSrc:  maxPerSource,
		now:     time.Now,
	}
}

// Scrape fetches headlines from every source. Per-source failures are
// returned alongside whatever was collected; the caller decides whether a
// partial result is usable.
func (s *Scraper) Scrape() ([]Article, []error) {
	var all []Article
	var errs []error

	for _, src := range s.sources {
		articles, err := s.scrapeSource(src)
		if err != nil {
			errs = append(errs, fmt.Errorf("scrape %s: %w", src, err))
			continue
		}
		all = append(all, articles...)
	}

	return dedupe(all), errs
}

// scrapeSource scrapes headlines from a single news page.
func (s *Scraper) scrapeSource(src string) ([]Article, error) {
	domain := hostOf(src)
	if domain == "" {
		return nil, fmt.Errorf("invalid source URL %q", src)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(domain),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", scraperUserAgent)
	})

	articles := []Article{}

	c.OnHTML("article, li, div", func(e *colly.HTMLElement) {
		if len(articles) >= s.perSrc {
			return
		}
		class := strings.ToLower(e.Attr("class"))
		if e.Name != "article" && !strings.Contains(class, "article") &&
			!strings.Contains(class, "news") && !strings.Contains(class, "story") {
			return
		}

		title := strings.TrimSpace(e.ChildText("h1, h2, h3, h4"))
		if title == "" {
			title = strings.TrimSpace(e.ChildText("a"))
		}
		if len(title) <= 10 {
			return
		}

		link := e.ChildAttr("a", "href")
		if link != "" && !strings.HasPrefix(link, "http") {
			link = strings.TrimSuffix(src, "/") + "/" + strings.TrimPrefix(link, "/")
		}

		articles = append(articles, Article{
			Title:     title,
			Content:   strings.TrimSpace(e.ChildText("p")),
			URL:       link,
			Source:    domain,
			FetchedAt: s.now(),
		})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	if err := c.Visit(src); err != nil {
		return nil, err
	}
	c.Wait()

	if visitErr != nil && len(articles) == 0 {
		return nil, visitErr
	}
	return articles, nil
}

// FetchBody fetches the full article page and extracts its paragraph text.
// Used when the listing page gave only a one-line summary.
func (s *Scraper) FetchBody(articleURL string) string {
	domain := hostOf(articleURL)
	if domain == "" {
		return ""
	}

	c := colly.NewCollector(colly.AllowedDomains(domain))
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", scraperUserAgent)
	})

	var body string
	c.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			return
		}
		body = extractParagraphs(doc)
	})

	if err := c.Visit(articleURL); err != nil {
		return ""
	}
	c.Wait()
	return body
}

// extractParagraphs joins the substantial paragraphs of an article page.
func extractParagraphs(doc *goquery.Document) string {
	scope := doc.Find("article, div.article-body, div.content-body, div.story-content")
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	paragraphs := []string{}
	scope.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 20 {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

// dedupe drops articles whose title prefix was already seen.
func dedupe(articles []Article) []Article {
	seen := map[string]bool{}
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		key := strings.ToLower(a.Title)
		if len(key) > 50 {
			key = key[:50]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
