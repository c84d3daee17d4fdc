// SPDX-License-Identifier: GPL-3.0-or-later

// Package spamtest reads the published score for the most recent spam test
// mail from the scoring provider's result page.
package spamtest

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/mezorian/mail-health-exporter/domain"
	"github.com/mezorian/mail-health-exporter/log"
)

// Some scoring providers serve bots a different page, so the scrape
// pretends to be a browser.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var scorePattern = regexp.MustCompile(`(?i)Your lovely total:\s*(\d+(?:\.\d+)?)/\d+`)

type ScoreFetcher struct {
	httpClient *http.Client

	l *logrus.Logger
}

func NewScoreFetcher() *ScoreFetcher {
	return &ScoreFetcher{
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		l: log.Logger(log.LOG_SPAMTEST),
	}
}

// FetchScore downloads the result page and extracts the reported score.
func (sf *ScoreFetcher) FetchScore(url string) (float64, error) {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("could not create score page request: %w: %w", domain.ErrScrape, err)
	}
	request.Header.Set("User-Agent", userAgent)

	response, err := sf.httpClient.Do(request)
	if err != nil {
		return 0, fmt.Errorf("could not fetch score page: %w: %w", domain.ErrConnection, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from score page, expected 200: %w", response.StatusCode, domain.ErrScrape)
	}

	text, err := visibleText(response.Body)
	if err != nil {
		return 0, fmt.Errorf("could not read score page: %w: %w", domain.ErrScrape, err)
	}

	match := scorePattern.FindStringSubmatch(text)
	if match == nil {
		return 0, fmt.Errorf("no score found on page: %w", domain.ErrScrape)
	}

	score, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse score %q: %w: %w", match[1], domain.ErrScrape, err)
	}

	sf.l.WithFields(logrus.Fields{"score": score}).Debug("Score page scraped")
	return score, nil
}

// visibleText flattens the page to its text nodes so the score pattern also
// matches when the number sits in its own markup element.
func visibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	builder := &strings.Builder{}
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
		}
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return builder.String(), nil
}
