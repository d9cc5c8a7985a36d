package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/siterank/siterank-go/internal/adapters/cache"
	"github.com/siterank/siterank-go/internal/adapters/storage"
	"github.com/siterank/siterank-go/internal/application/services"
	"github.com/siterank/siterank-go/internal/domain/entities"
	"github.com/siterank/siterank-go/internal/domain/providers"
	"github.com/siterank/siterank-go/internal/infrastructure/clients/redis"
	"github.com/siterank/siterank-go/internal/infrastructure/clients/siterank"
	"github.com/siterank/siterank-go/internal/infrastructure/observability"
	"github.com/siterank/siterank-go/internal/session"
	"github.com/siterank/siterank-go/pkg/config"
	apperrors "github.com/siterank/siterank-go/pkg/errors"
)

const usage = `siterank - website analysis from the command line

Usage: siterank <command> [flags]

Account:
  register    create an account and sign in
  login       sign in
  logout      sign out
  whoami      show the signed-in account

Analyses:
  analyze     submit a competitor analysis and watch it complete
  watch       resume watching an existing analysis
  history     list recent analyses
  delete      delete an analysis
  report      download the text report for a completed analysis
  dashboard   show aggregate stats and recent activity

Audits:
  audit       audit a single site (SEO, speed, content) and generate fixes
  optimize    request a one-click optimization blueprint

Other:
  chat        talk to the support assistant
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "Error:", apperrors.UserMessage(err, "something went wrong, please try again"))
		os.Exit(1)
	}
}

// app bundles the wired client, session and services for command handlers
type app struct {
	cfg      *config.Config
	store    *session.Store
	api      *siterank.Client
	analyses *services.AnalysisService
	audits   *services.AuditService
	history  *storage.HistoryStore
}

func run(ctx context.Context, command string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.InitLogger("siterank-cli", cfg.Env)

	store := session.NewStore(cfg.Storage.SessionPath())
	if err := store.Restore(); err != nil {
		log.Warn().Err(err).Msg("could not restore saved session, continuing signed out")
	}

	api := siterank.NewClient(&cfg.Backend, store.Token)

	history, err := storage.NewHistoryStore(cfg.Storage.HistoryPath())
	if err != nil {
		log.Warn().Err(err).Msg("local history unavailable")
		history = nil
	} else {
		defer history.Close()
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		api:      api,
		analyses: services.NewAnalysisService(api, history),
		audits:   services.NewAuditService(api, history, cfg.ServerType),
		history:  history,
	}

	switch command {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami(ctx)
	case "analyze":
		return a.analyze(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	case "history":
		return a.listHistory(ctx, args)
	case "delete":
		return a.deleteAnalysis(ctx, args)
	case "report":
		return a.report(ctx, args)
	case "dashboard":
		return a.dashboard(ctx)
	case "audit":
		return a.audit(ctx, args)
	case "optimize":
		return a.optimize(ctx, args)
	case "chat":
		return a.chat(ctx)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) requireAuth() error {
	if a.store.State() != session.StateAuthenticated {
		return apperrors.NewUnauthorizedError("sign in first with `siterank login`")
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	user, err := a.store.Register(ctx, a.api, *name, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Welcome, %s! You are signed in as %s.\n", user.Name, user.Email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	user, err := a.store.Login(ctx, a.api, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s.\n", user.Email)
	return nil
}

func (a *app) logout() error {
	if err := a.store.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	user, err := a.api.Me(ctx)
	if err != nil {
		// fall back to the persisted identity when offline
		if sess, ok := a.store.Session(); ok {
			fmt.Printf("%s <%s> (cached)\n", sess.User.Name, sess.User.Email)
			return nil
		}
		return err
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) analyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	siteURL := fs.String("url", "", "your site URL")
	competitorsFlag := fs.String("competitors", "", "comma-separated competitor URLs (1-5)")
	noWait := fs.Bool("no-wait", false, "submit without waiting for completion")
	fs.Parse(args)

	if err := a.requireAuth(); err != nil {
		return err
	}

	var competitors []string
	for _, c := range strings.Split(*competitorsFlag, ",") {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			competitors = append(competitors, trimmed)
		}
	}

	analysis, err := a.analyses.Submit(ctx, *siteURL, competitors)
	if err != nil {
		return err
	}
	fmt.Printf("Analysis %s submitted (%s).\n", analysis.ID, analysis.Status)

	if *noWait {
		fmt.Printf("Run `siterank watch -id %s` to follow its progress.\n", analysis.ID)
		return nil
	}
	return a.followAnalysis(ctx, analysis.ID)
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	id := fs.String("id", "", "analysis id")
	fs.Parse(args)

	if err := a.requireAuth(); err != nil {
		return err
	}
	if *id == "" {
		return apperrors.NewValidationError("id", "analysis id is required")
	}
	return a.followAnalysis(ctx, *id)
}

// followAnalysis polls an analysis until it finishes, printing each state
// change. Ctrl-C stops watching without deleting the analysis.
func (a *app) followAnalysis(ctx context.Context, id string) error {
	w, err := a.analyses.WatchAnalysis(ctx, id)
	if err != nil {
		return err
	}
	defer w.Stop()

	var last entities.AnalysisStatus
	var final *entities.Analysis
	for analysis := range w.Updates() {
		if analysis.Status != last {
			fmt.Printf("Status: %s\n", analysis.Status)
			last = analysis.Status
		}
		final = analysis
	}
	if ctx.Err() != nil {
		fmt.Println("Stopped watching. The analysis keeps running on the server.")
		return nil
	}
	if final == nil {
		return fmt.Errorf("watch ended without a result")
	}

	switch final.Status {
	case entities.StatusFailed:
		return apperrors.NewTerminalFailureError(final.FailureReason())
	case entities.StatusCompleted:
		printAnalysis(final)
	}
	return nil
}

func printAnalysis(a *entities.Analysis) {
	fmt.Printf("\n%s — overall %d/100\n", a.UserSiteURL, a.UserSiteScores.OverallScore)
	fmt.Printf("  SEO %d  Speed %d  Content %d  UX %d\n",
		a.UserSiteScores.SEOScore, a.UserSiteScores.SpeedScore,
		a.UserSiteScores.ContentScore, a.UserSiteScores.UXScore)
	for _, c := range a.Competitors {
		fmt.Printf("  vs %s — overall %d/100\n", c.URL, c.Scores.OverallScore)
	}
	if len(a.ActionPlan) > 0 {
		fmt.Println("\nAction plan:")
		for i, step := range a.ActionPlan {
			fmt.Printf("  %d. %s\n", i+1, step)
		}
	}
	if a.AISuggestions != "" {
		fmt.Printf("\n%s\n", a.AISuggestions)
	}
	fmt.Printf("\nDownload the full report with `siterank report -id %s`.\n", a.ID)
}

func (a *app) listHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 10, "how many analyses to list")
	fs.Parse(args)

	if err := a.requireAuth(); err != nil {
		return err
	}

	summaries, err := a.analyses.List(ctx, *limit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No analyses yet. Start one with `siterank analyze`.")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("%-36s  %-10s  %3d/100  %s\n", s.ID, s.Status, s.OverallScore, s.UserSiteURL)
	}
	return nil
}

func (a *app) deleteAnalysis(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "analysis id")
	fs.Parse(args)

	if err := a.requireAuth(); err != nil {
		return err
	}
	if *id == "" {
		return apperrors.NewValidationError("id", "analysis id is required")
	}
	if err := a.analyses.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

func (a *app) report(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	id := fs.String("id", "", "analysis id")
	dir := fs.String("dir", ".", "directory to save the report in")
	fs.Parse(args)

	if err := a.requireAuth(); err != nil {
		return err
	}
	if *id == "" {
		return apperrors.NewValidationError("id", "analysis id is required")
	}

	path, err := a.analyses.DownloadReport(ctx, *id, *dir)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", path)
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	var cacheProvider providers.CacheProvider
	if a.cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&a.cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, dashboard cache disabled")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
		}
	}

	overview, err := services.NewDashboardService(a.api, cacheProvider).Overview(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Analyses: %d total, %d completed\n", overview.Stats.TotalAnalyses, overview.Stats.CompletedAnalyses)
	fmt.Printf("Scores:   avg %d, best %d\n", overview.Stats.AvgScore, overview.Stats.BestScore)
	if len(overview.Recent) > 0 {
		fmt.Println("\nRecent:")
		for _, s := range overview.Recent {
			fmt.Printf("  %-36s  %-10s  %3d/100  %s\n", s.ID, s.Status, s.OverallScore, s.UserSiteURL)
		}
	}
	return nil
}

func (a *app) audit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	siteURL := fs.String("url", "", "site URL to audit")
	keyword := fs.String("keyword", "", "target keyword for SEO and content fixes")
	clientName := fs.String("client", "", "client name for branded exports")
	agencyName := fs.String("agency", "", "agency name for branded exports")
	serverType := fs.String("server", "", "web server type for speed fixes (default nginx)")
	withFixes := fs.Bool("fixes", false, "generate fixes for every detected issue")
	zip := fs.Bool("zip", false, "download the fix package zip (implies -fixes)")
	pdf := fs.Bool("pdf", false, "download the white-label PDF report")
	dir := fs.String("dir", ".", "directory to save downloads in")
	fs.Parse(args)

	if err := a.requireAuth(); err != nil {
		return err
	}

	opts := services.AuditOptions{
		TargetKeyword: *keyword,
		ClientName:    *clientName,
		AgencyName:    *agencyName,
		ServerType:    *serverType,
	}
	fmt.Println("Auditing... this can take a minute.")
	if err := a.audits.Audit(ctx, *siteURL, opts); err != nil {
		return err
	}

	fmt.Printf("\n%s — overall %d/100\n", a.audits.SiteURL(), a.audits.OverallScore())
	for _, category := range entities.FixCategories() {
		report := a.audits.Report(category)
		fmt.Printf("\n[%s] %d/100, %d issues\n", category, report.Score, len(report.Issues))
		for i, issue := range report.Issues {
			fmt.Printf("  %d. %s\n", i+1, issue.Label())
		}
	}

	if *withFixes || *zip {
		fmt.Println("\nGenerating fixes...")
		if err := a.audits.GenerateAllFixes(ctx); err != nil {
			return err
		}
		for _, category := range entities.FixCategories() {
			printFixes(category, a.audits.Report(category), a.audits.Fixes(category))
		}
	}

	if *zip {
		path, err := a.audits.DownloadFixPackage(ctx, *dir, *clientName)
		if err != nil {
			return err
		}
		fmt.Printf("\nSaved %s\n", path)
	}
	if *pdf {
		path, err := a.audits.WhiteLabelReport(ctx, *dir, *clientName, *agencyName)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
	}
	return nil
}

func printFixes(category entities.FixCategory, report *entities.CategoryReport, fixes []*entities.Fix) {
	if report == nil || len(fixes) == 0 {
		return
	}
	fmt.Printf("\n[%s fixes]\n", category)
	for i, fix := range fixes {
		if fix == nil {
			continue
		}
		fmt.Printf("--- %s\n", report.Issues[i].Label())
		if fix.Instructions != "" {
			fmt.Println(fix.Instructions)
		}
		if fix.FixedCode != "" {
			fmt.Println(fix.FixedCode)
		}
	}
}

func (a *app) optimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	siteURL := fs.String("url", "", "site URL to optimize")
	autoDetect := fs.Bool("auto-competitors", true, "let the backend detect competitors")
	fs.Parse(args)

	if err := a.requireAuth(); err != nil {
		return err
	}

	fmt.Println("Building your optimization blueprint...")
	resp, err := services.NewOptimizeService(a.api).Optimize(ctx, *siteURL, *autoDetect)
	if err != nil {
		return err
	}

	fmt.Printf("\nCurrent overall score: %d/100\n", resp.UserScores.OverallScore)
	if len(resp.Blueprint.CriticalFixes) > 0 {
		fmt.Println("\nCritical fixes:")
		for _, fix := range resp.Blueprint.CriticalFixes {
			fmt.Printf("  - %s", fix.Title)
			if fix.Impact != "" {
				fmt.Printf(" (%s)", fix.Impact)
			}
			fmt.Println()
		}
	}
	if len(resp.Blueprint.QuickWins) > 0 {
		fmt.Println("\nQuick wins:")
		for _, win := range resp.Blueprint.QuickWins {
			fmt.Printf("  - %s\n", win.Title)
		}
	}
	if len(resp.Blueprint.SevenDayPlan) > 0 {
		fmt.Println("\n7-day plan:")
		for _, day := range resp.Blueprint.SevenDayPlan {
			fmt.Printf("  Day %d: %s\n", day.Day, day.Focus)
		}
	}
	return nil
}

func (a *app) chat(ctx context.Context) error {
	chat := services.NewChatService(a.api)

	messages := chat.Messages()
	fmt.Printf("assistant: %s\n", messages[len(messages)-1].Content)
	quickReplies := chat.QuickReplies()
	for i, reply := range quickReplies {
		fmt.Printf("  %d. %s\n", i+1, reply)
	}
	fmt.Println("(type your question or a number above, 'quit' to leave)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		// numbered shortcuts expand to the quick reply and go through
		// the same send path as typed questions
		if expanded, ok := quickReplyFor(quickReplies, line); ok {
			fmt.Printf("you: %s\n", expanded)
			line = expanded
		}

		reply, err := chat.Send(ctx, line)
		if err != nil {
			return err
		}
		fmt.Printf("assistant: %s\n", reply)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// quickReplyFor resolves a numbered shortcut (1-based) to its quick reply
func quickReplyFor(replies []string, line string) (string, bool) {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(replies) {
		return "", false
	}
	return replies[n-1], true
}
