// SPDX-License-Identifier: GPL-3.0-or-later

// Package status renders the human-facing dashboard page. The page is a
// self-contained HTML file carrying a `let mailServerData = {...}` block
// that gets rewritten with live values on every request.
package status

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/mezorian/mail-health-exporter/log"
	"github.com/mezorian/mail-health-exporter/metrics"
)

//go:embed status.html
var defaultTemplate string

// dataBlock matches the mailServerData object literal including one level
// of nested braces, enough for the lastUpdated sub-object.
var dataBlock = regexp.MustCompile(`let\s+mailServerData\s*=\s*\{(?:[^{}]*(?:\{[^{}]*\})*)*\};`)

// Renderer substitutes live metric values into the status template. The
// template is loaded once at startup, a missing or unusable file is a
// configuration error.
type Renderer struct {
	template    string
	spamTestURL string
}

// NewRenderer loads the template from filename, or uses the built-in page
// when filename is empty.
func NewRenderer(filename, spamTestURL string) (*Renderer, error) {
	template := defaultTemplate
	if filename != "" {
		raw, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("could not read status template: %w", err)
		}
		template = string(raw)
		log.Logger(log.LOG_HTTP).WithField("file", filename).Info("Status template loaded")
	}

	if !dataBlock.MatchString(template) {
		return nil, fmt.Errorf("status template has no mailServerData block")
	}

	return &Renderer{
		template:    template,
		spamTestURL: spamTestURL,
	}, nil
}

// Render returns the page with the mailServerData block rewritten from the
// given snapshot.
func (r *Renderer) Render(data metrics.StatusData) string {
	replacement := fmt.Sprintf(`let mailServerData = {
    sendingWorks: %t,
    receivingWorks: %t,
    spamScore: %s,
    spamTestUrl: %q,
    lastUpdated: {
        sending: %s,
        receiving: %s,
        spam: %s
    }
};`,
		data.SendingWorks,
		data.ReceivingWorks,
		jsNumber(data.SpamScore),
		r.spamTestURL,
		jsNumber(data.SendReceiveCheckedAt),
		jsNumber(data.SendReceiveCheckedAt),
		jsNumber(data.SpamCheckedAt),
	)

	return dataBlock.ReplaceAllLiteralString(r.template, replacement)
}

func jsNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
