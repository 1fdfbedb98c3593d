package main

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/infra/adapter/persistence/sqlite"
	"sentinelpi/internal/infra/db"
)

// feedDiagnostic is the result of probing one configured source's feed URL
// directly over HTTP, independent of whatever the collector pipeline itself
// would do with it. Useful for spotting a source that has gone stale,
// started redirecting, or stopped returning parseable RSS/Atom before it
// shows up as a run of collector errors in the metrics.
type feedDiagnostic struct {
	SourceID      string `json:"source_id"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	Status        string `json:"status"` // OK, HTTP_ERROR, PARSE_ERROR, EMPTY, TIMEOUT, REDIRECT, REQUEST_ERROR, READ_ERROR
	HTTPCode      int    `json:"http_code"`
	ItemCount     int    `json:"item_count"`
	LatestDate    string `json:"latest_date,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	FeedType      string `json:"feed_type"` // RSS, ATOM, UNKNOWN
	RedirectURL   string `json:"redirect_url,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms"`
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			PubDate string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

type atomFeed struct {
	Entries []struct {
		Title   string `xml:"title"`
		Updated string `xml:"updated"`
	} `xml:"entry"`
}

// runDiagnoseFeeds probes every enabled RSS source's feed URL directly and
// writes a text and JSON report to the current directory. It deliberately
// bypasses the collector/dedup/filter pipeline: it exists to answer "is this
// URL still a working feed at all", not to collect items.
func runDiagnoseFeeds(args []string) {
	fs := flag.NewFlagSet("diagnose-feeds", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Second, "per-feed request timeout")
	delay := fs.Duration("delay", 500*time.Millisecond, "delay between feed requests")
	_ = fs.Parse(args)

	database := db.Open()
	defer func() { _ = database.Close() }()

	sourceRepo := sqlite.NewSourceRepo(database)
	sources, err := sourceRepo.List(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "diagnose-feeds: list sources:", err)
		os.Exit(1)
	}

	var feeds []*entity.Source
	for _, s := range sources {
		if s.Type == entity.SourceTypeRSS && s.Enabled {
			feeds = append(feeds, s)
		}
	}

	fmt.Printf("diagnosing %d RSS sources...\n", len(feeds))

	diagnostics := make([]feedDiagnostic, 0, len(feeds))
	for i, source := range feeds {
		fmt.Printf("[%d/%d] %s\n", i+1, len(feeds), source.Name)
		diagnostics = append(diagnostics, diagnoseFeed(source, *timeout))
		if i < len(feeds)-1 {
			time.Sleep(*delay)
		}
	}

	writeDiagnosticReport(diagnostics)
	writeDiagnosticJSON(diagnostics)
}

func diagnoseFeed(source *entity.Source, timeout time.Duration) feedDiagnostic {
	diag := feedDiagnostic{SourceID: source.ID, Name: source.Name, URL: source.URL}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		diag.Status = "REQUEST_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	req.Header.Set("User-Agent", "SentinelPi-Diagnostic/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	diag.ResponseTimeMS = time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			diag.Status = "TIMEOUT"
			diag.ErrorMessage = fmt.Sprintf("request timeout after %v", timeout)
		} else {
			diag.Status = "HTTP_ERROR"
			diag.ErrorMessage = err.Error()
		}
		return diag
	}
	defer func() { _ = resp.Body.Close() }()

	diag.HTTPCode = resp.StatusCode
	if resp.Request.URL.String() != source.URL {
		diag.RedirectURL = resp.Request.URL.String()
		diag.Status = "REDIRECT"
	}
	if resp.StatusCode != http.StatusOK {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)
		return diag
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		diag.Status = "READ_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	itemCount, latestDate, feedType, err := parseFeedBody(body)
	diag.ItemCount = itemCount
	diag.LatestDate = latestDate
	diag.FeedType = feedType
	if err != nil {
		diag.Status = "PARSE_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	if itemCount == 0 {
		diag.Status = "EMPTY"
		diag.ErrorMessage = "feed has no items"
		return diag
	}

	if diag.Status == "" {
		diag.Status = "OK"
	}
	return diag
}

func parseFeedBody(body []byte) (itemCount int, latestDate, feedType string, err error) {
	var rss rssFeed
	if xmlErr := xml.Unmarshal(body, &rss); xmlErr == nil && len(rss.Channel.Items) > 0 {
		if rss.Channel.Items[0].PubDate != "" {
			latestDate = rss.Channel.Items[0].PubDate
		}
		return len(rss.Channel.Items), latestDate, "RSS", nil
	}

	var atom atomFeed
	if xmlErr := xml.Unmarshal(body, &atom); xmlErr == nil && len(atom.Entries) > 0 {
		if atom.Entries[0].Updated != "" {
			latestDate = atom.Entries[0].Updated
		}
		return len(atom.Entries), latestDate, "ATOM", nil
	}

	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return 0, "", "UNKNOWN", fmt.Errorf("failed to parse as RSS or Atom, content preview: %s", preview)
}

func writeDiagnosticReport(diagnostics []feedDiagnostic) {
	var b strings.Builder
	fmt.Fprintf(&b, "Feed Diagnostic Report\nGenerated: %s\nTotal sources: %d\n\n", time.Now().Format(time.RFC3339), len(diagnostics))

	var ok, broken int
	byStatus := make(map[string]int)
	for _, d := range diagnostics {
		byStatus[d.Status]++
		if d.Status == "OK" || d.Status == "REDIRECT" {
			ok++
		} else {
			broken++
		}
	}
	fmt.Fprintf(&b, "Working: %d\nBroken: %d\n\n", ok, broken)
	for status, count := range byStatus {
		fmt.Fprintf(&b, "  %s: %d\n", status, count)
	}
	b.WriteString("\nBroken feeds:\n")
	for _, d := range diagnostics {
		if d.Status != "OK" && d.Status != "REDIRECT" {
			fmt.Fprintf(&b, "  %s (%s): %s — %s\n", d.Name, d.URL, d.Status, d.ErrorMessage)
		}
	}

	if err := os.WriteFile("feed_diagnostic_report.txt", []byte(b.String()), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "diagnose-feeds: write text report:", err)
		return
	}
	fmt.Println("report written: feed_diagnostic_report.txt")
}

func writeDiagnosticJSON(diagnostics []feedDiagnostic) {
	f, err := os.Create("feed_diagnostic_report.json")
	if err != nil {
		fmt.Fprintln(os.Stderr, "diagnose-feeds: create json report:", err)
		return
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(diagnostics); err != nil {
		fmt.Fprintln(os.Stderr, "diagnose-feeds: write json report:", err)
		return
	}
	fmt.Println("report written: feed_diagnostic_report.json")
}
