// chatctl 是 brandchat 的运维命令行工具，直连数据库做日常管理。
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ashwinyue/brandchat/internal/config"
	"github.com/ashwinyue/brandchat/internal/model"
	"github.com/ashwinyue/brandchat/internal/repository"
)

const usage = `Usage: chatctl <command> [flags]

Commands:
  list-brands       List all brands
  list-users        List captured users
  stats             Print dashboard statistics
  add-brand         Create a brand
  add-recipient     Add a transcript recipient to a brand
  remove-recipient  Remove a transcript recipient
  cleanup           Delete sessions older than N days
  export            Dump recent sessions with messages as JSON
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	repos := repository.NewRepositories(db.DB)

	switch os.Args[1] {
	case "list-brands":
		runListBrands(repos)
	case "list-users":
		runListUsers(repos, os.Args[2:])
	case "stats":
		runStats(repos)
	case "add-brand":
		runAddBrand(repos, os.Args[2:])
	case "add-recipient":
		runAddRecipient(repos, os.Args[2:])
	case "remove-recipient":
		runRemoveRecipient(repos, os.Args[2:])
	case "cleanup":
		runCleanup(repos, os.Args[2:])
	case "export":
		runExport(repos, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

func runListBrands(repos *repository.Repositories) {
	brands, err := repos.Brand.List(false)
	if err != nil {
		log.Fatalf("List brands failed: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKEY\tNAME\tMODEL\tEMAIL\tACTIVE")
	for _, b := range brands {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%v\n",
			b.ID, b.BrandKey, b.DisplayName, b.ModelName, b.Email, b.IsActive)
	}
	w.Flush()
}

func runListUsers(repos *repository.Repositories, args []string) {
	fs := flag.NewFlagSet("list-users", flag.ExitOnError)
	limit := fs.Int("limit", 50, "max rows")
	offset := fs.Int("offset", 0, "rows to skip")
	fs.Parse(args)

	users, err := repos.User.List(*offset, *limit)
	if err != nil {
		log.Fatalf("List users failed: %v", err)
	}
	total, err := repos.User.Count()
	if err != nil {
		log.Fatalf("Count users failed: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tPHONE\tCONVERSATIONS\tLAST SEEN")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			u.ID, u.Email, u.Name, u.Phone, u.TotalConversations,
			u.LastSeen.Format("2006-01-02 15:04"))
	}
	w.Flush()
	fmt.Printf("\n%d of %d users\n", len(users), total)
}

func runStats(repos *repository.Repositories) {
	stats, err := repos.Report.GetDashboardStats()
	if err != nil {
		log.Fatalf("Load stats failed: %v", err)
	}

	fmt.Printf("Sessions:        %d (%d active)\n", stats.TotalSessions, stats.ActiveSessions)
	fmt.Printf("Users:           %d\n", stats.TotalUsers)
	fmt.Printf("Messages:        %d\n", stats.TotalMessages)
	fmt.Printf("Emails sent:     %d\n", stats.EmailsSent)
	fmt.Printf("Tokens:          %d in / %d out / %d total\n",
		stats.TotalInputTokens, stats.TotalOutputTokens, stats.TotalTokens)
	fmt.Printf("Total cost:      $%.6f\n", stats.TotalCost)
	fmt.Printf("Avg duration:    %.0fs\n", stats.AvgDuration)
}

func runAddBrand(repos *repository.Repositories, args []string) {
	fs := flag.NewFlagSet("add-brand", flag.ExitOnError)
	key := fs.String("key", "", "brand key used in chat requests (required)")
	name := fs.String("name", "", "display name (required)")
	email := fs.String("email", "", "fallback transcript address")
	modelName := fs.String("model", "gpt-4.1-nano", "model name")
	persona := fs.String("persona", "", "system persona text")
	fallback := fs.String("fallback", "", "reply used when the agent is unavailable")
	vectorStore := fs.String("vector-store", "", "vector store id")
	fs.Parse(args)

	if *key == "" || *name == "" {
		fs.Usage()
		os.Exit(2)
	}

	brand := &model.Brand{
		BrandKey:      *key,
		DisplayName:   *name,
		Email:         *email,
		ModelName:     *modelName,
		Persona:       *persona,
		FallbackReply: *fallback,
		VectorStoreID: *vectorStore,
		Temperature:   0.7,
		TopP:          0.9,
		MaxTokens:     600,
		IsActive:      true,
	}
	if err := repos.Brand.Create(brand); err != nil {
		log.Fatalf("Create brand failed: %v", err)
	}
	fmt.Printf("Created brand %d (%s)\n", brand.ID, brand.BrandKey)
}

func runAddRecipient(repos *repository.Repositories, args []string) {
	fs := flag.NewFlagSet("add-recipient", flag.ExitOnError)
	brandKey := fs.String("brand", "", "brand key (required)")
	email := fs.String("email", "", "recipient address (required)")
	name := fs.String("name", "", "recipient name")
	fs.Parse(args)

	if *brandKey == "" || *email == "" {
		fs.Usage()
		os.Exit(2)
	}

	brand, err := repos.Brand.GetByKey(*brandKey)
	if err != nil {
		log.Fatalf("Load brand %q failed: %v", *brandKey, err)
	}

	recipient := &model.BrandRecipient{
		BrandID:  brand.ID,
		Email:    *email,
		Name:     *name,
		IsActive: true,
	}
	if err := repos.Brand.AddRecipient(recipient); err != nil {
		log.Fatalf("Add recipient failed: %v", err)
	}
	fmt.Printf("Added recipient %d (%s) to %s\n", recipient.ID, recipient.Email, brand.BrandKey)
}

func runRemoveRecipient(repos *repository.Repositories, args []string) {
	fs := flag.NewFlagSet("remove-recipient", flag.ExitOnError)
	id := fs.Uint("id", 0, "recipient id (required)")
	fs.Parse(args)

	if *id == 0 {
		fs.Usage()
		os.Exit(2)
	}
	if err := repos.Brand.RemoveRecipient(uint(*id)); err != nil {
		log.Fatalf("Remove recipient failed: %v", err)
	}
	fmt.Printf("Removed recipient %d\n", *id)
}

func runCleanup(repos *repository.Repositories, args []string) {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	days := fs.Int("days", 90, "delete sessions older than this many days")
	fs.Parse(args)

	cutoff := time.Now().AddDate(0, 0, -*days)
	deleted, err := repos.Session.DeleteOlderThan(cutoff)
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}
	fmt.Printf("Deleted %d sessions older than %s\n", deleted, cutoff.Format("2006-01-02"))
}

func runExport(repos *repository.Repositories, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	limit := fs.Int("limit", 100, "max sessions")
	brandID := fs.Uint("brand-id", 0, "restrict to one brand, 0 means all")
	fs.Parse(args)

	sessions, err := repos.Session.ListRecent(uint(*brandID), 0, *limit)
	if err != nil {
		log.Fatalf("List sessions failed: %v", err)
	}

	out := make([]*model.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		full, err := repos.Session.GetByID(s.ID)
		if err != nil {
			log.Fatalf("Load session %d failed: %v", s.ID, err)
		}
		out = append(out, full)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Encode failed: %v", err)
	}
}
