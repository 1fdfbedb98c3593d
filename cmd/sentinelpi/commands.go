package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/infra/adapter/persistence/sqlite"
	"sentinelpi/internal/infra/db"
	"sentinelpi/internal/opml"
	"sentinelpi/internal/preference"
	"sentinelpi/internal/report"
)

// runCLICommand handles the one-shot "opml-export", "opml-import",
// "report", "diagnose-feeds", and "record-action" subcommands, each
// opening the database just long enough to do
// its work and exiting. Any other argument (including none) falls through
// to the daemon in main(). Returns true if a subcommand ran.
func runCLICommand(args []string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "opml-export":
		runOPMLExport(args[1:])
	case "opml-import":
		runOPMLImport(args[1:])
	case "report":
		runReport(args[1:])
	case "diagnose-feeds":
		runDiagnoseFeeds(args[1:])
	case "record-action":
		runRecordAction(args[1:])
	default:
		return false
	}
	return true
}

// runRecordAction records a single star/archive/read/delete/ignore
// interaction against an item, feeding the preference learner's update
// rule. This is the learner's only write path outside its tests: without
// it, PreferenceScore would forever score against weights nobody ever
// recorded.
func runRecordAction(args []string) {
	fs := flag.NewFlagSet("record-action", flag.ExitOnError)
	itemID := fs.String("item", "", "item id the action applies to (required)")
	action := fs.String("action", "", "one of: star, archive, read, delete, ignore (required)")
	_ = fs.Parse(args)

	if *itemID == "" || *action == "" {
		fmt.Fprintln(os.Stderr, "record-action: -item and -action are required")
		os.Exit(1)
	}

	actionType := entity.ActionType(*action)
	if _, ok := entity.ActionSignals[actionType]; !ok {
		fmt.Fprintf(os.Stderr, "record-action: unknown action %q\n", *action)
		os.Exit(1)
	}

	database := db.Open()
	defer func() { _ = database.Close() }()

	itemRepo := sqlite.NewItemRepo(database)
	sourceRepo := sqlite.NewSourceRepo(database)
	preferenceRepo := sqlite.NewPreferenceRepo(database)

	ctx := context.Background()
	item, err := itemRepo.Get(ctx, *itemID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "record-action: load item:", err)
		os.Exit(1)
	}
	if item == nil {
		fmt.Fprintf(os.Stderr, "record-action: no such item %q\n", *itemID)
		os.Exit(1)
	}

	category := ""
	if source, err := sourceRepo.Get(ctx, item.SourceID); err == nil && source != nil {
		category = source.Category
	}

	learner := preference.New(preferenceRepo, preference.DefaultConfig())
	userAction := entity.UserAction{
		ItemID:    item.ID,
		Action:    actionType,
		Timestamp: time.Now(),
	}
	if err := learner.RecordAction(ctx, userAction, item, category); err != nil {
		fmt.Fprintln(os.Stderr, "record-action: record:", err)
		os.Exit(1)
	}

	switch actionType {
	case entity.ActionStar:
		item.Starred = true
		err = itemRepo.Update(ctx, item)
	case entity.ActionArchive:
		item.Archived = true
		err = itemRepo.Update(ctx, item)
	case entity.ActionRead:
		item.Read = true
		err = itemRepo.Update(ctx, item)
	case entity.ActionDelete:
		err = itemRepo.Delete(ctx, item.ID)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "record-action: update item state:", err)
		os.Exit(1)
	}

	fmt.Printf("recorded %s on item %s\n", *action, *itemID)
}

func runOPMLExport(args []string) {
	fs := flag.NewFlagSet("opml-export", flag.ExitOnError)
	out := fs.String("out", "sources.opml", "output OPML file path")
	title := fs.String("title", "SentinelPi Sources", "OPML document title")
	owner := fs.String("owner", "", "OPML owner name")
	byCategory := fs.Bool("group-by-category", true, "group sources into per-category folders")
	_ = fs.Parse(args)

	database := db.Open()
	defer func() { _ = database.Close() }()

	sourceRepo := sqlite.NewSourceRepo(database)
	sources, err := sourceRepo.List(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "opml-export: list sources:", err)
		os.Exit(1)
	}

	doc := opml.Export(sources, *title, *owner, *byCategory, time.Now())
	data, err := opml.Marshal(doc)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opml-export: marshal:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "opml-export: write file:", err)
		os.Exit(1)
	}
	fmt.Printf("exported %d sources to %s\n", len(sources), *out)
}

func runOPMLImport(args []string) {
	fs := flag.NewFlagSet("opml-import", flag.ExitOnError)
	in := fs.String("in", "", "input OPML file path")
	_ = fs.Parse(args)
	if *in == "" {
		fmt.Fprintln(os.Stderr, "opml-import: -in is required")
		os.Exit(1)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opml-import: read file:", err)
		os.Exit(1)
	}
	doc, err := opml.Parse(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opml-import: parse:", err)
		os.Exit(1)
	}
	feeds := opml.Feeds(doc)

	database := db.Open()
	defer func() { _ = database.Close() }()
	sourceRepo := sqlite.NewSourceRepo(database)

	imported := 0
	for _, feed := range feeds {
		source := &entity.Source{
			Name:     feed.Name,
			URL:      feed.URL,
			Type:     entity.SourceTypeRSS,
			Category: feed.Category,
			Enabled:  true,
		}
		if err := source.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "opml-import: skipping %q: %v\n", feed.URL, err)
			continue
		}
		if err := sourceRepo.Create(context.Background(), source); err != nil {
			fmt.Fprintf(os.Stderr, "opml-import: create %q: %v\n", feed.URL, err)
			continue
		}
		imported++
	}
	fmt.Printf("imported %d/%d feeds from %s\n", imported, len(feeds), *in)
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	days := fs.Int("days", 7, "number of trailing days to summarize")
	_ = fs.Parse(args)

	database := db.Open()
	defer func() { _ = database.Close() }()

	itemRepo := sqlite.NewItemRepo(database)
	sourceRepo := sqlite.NewSourceRepo(database)

	to := time.Now()
	from := to.AddDate(0, 0, -*days)

	summary, err := report.Generate(context.Background(), itemRepo, sourceRepo, from, to)
	if err != nil {
		fmt.Fprintln(os.Stderr, "report: generate:", err)
		os.Exit(1)
	}

	fmt.Printf("Summary: %s to %s\n", summary.From.Format(time.RFC3339), summary.To.Format(time.RFC3339))
	fmt.Printf("Total items: %d (highlighted: %d, excluded: %d)\n",
		summary.TotalItems, summary.HighlightedItems, summary.ExcludedItems)
	fmt.Println("By source:")
	for _, sc := range summary.BySource {
		fmt.Printf("  %-30s %d\n", sc.SourceName, sc.Count)
	}
	fmt.Println("By category:")
	for _, cc := range summary.ByCategory {
		fmt.Printf("  %-30s %d\n", cc.Category, cc.Count)
	}
}
