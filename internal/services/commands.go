package services

import (
	"fmt"
	"strings"

	"github.com/botpanel/core/internal/models"
)

// Curl renders a job as an equivalent curl invocation for manual
// crontab setup. Pure string construction, no I/O.
func Curl(job *models.CronJob) string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl -X %s", job.Method)

	for _, h := range job.HeaderPairs() {
		if h.Key == "" || h.Value == "" {
			continue
		}
		fmt.Fprintf(&b, " -H \"%s: %s\"", h.Key, h.Value)
	}

	if job.HasBody() {
		fmt.Fprintf(&b, " -d '%s'", escapeSingleQuotes(string(job.Body)))
	}

	fmt.Fprintf(&b, " --silent --output /dev/null \"%s\"", job.Endpoint)
	return b.String()
}

// Wget renders the same invocation for hosts without curl.
func Wget(job *models.CronJob) string {
	var b strings.Builder
	fmt.Fprintf(&b, "wget --method=%s", job.Method)

	for _, h := range job.HeaderPairs() {
		if h.Key == "" || h.Value == "" {
			continue
		}
		fmt.Fprintf(&b, " --header=\"%s: %s\"", h.Key, h.Value)
	}

	if job.HasBody() {
		fmt.Fprintf(&b, " --body-data='%s'", escapeSingleQuotes(string(job.Body)))
	}

	fmt.Fprintf(&b, " --output-document=- \"%s\" > /dev/null 2>&1", job.Endpoint)
	return b.String()
}

// escapeSingleQuotes makes a string safe inside a single-quoted shell
// argument by closing the quote, emitting an escaped quote, and
// reopening it.
func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
