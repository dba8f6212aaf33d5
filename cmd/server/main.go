/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tank operations server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env / environment, flag overrides)
  2. Initialize the SQLite sheet store and base sheets
  3. Assemble domain services (dispatcher, ledger, closer, biller)
  4. Configure HTTP router and background scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides TANKOPS_PORT)
  -db      SQLite database path (overrides TANKOPS_DB)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/tankops.db"

  # Run on a different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment configuration
  - sheet/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tanklink/tankops/api"
	"github.com/tanklink/tankops/billing"
	"github.com/tanklink/tankops/cache"
	"github.com/tanklink/tankops/config"
	"github.com/tanklink/tankops/inventory"
	"github.com/tanklink/tankops/money"
	"github.com/tanklink/tankops/notify"
	"github.com/tanklink/tankops/sheet"
	"github.com/tanklink/tankops/sheet/sqlite"
	"github.com/tanklink/tankops/staff"
)

func main() {
	cfg := config.Load()

	// Flags override the environment.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if err := ensureBaseSheets(context.Background(), store); err != nil {
		log.Fatalf("Failed to prepare base sheets: %v", err)
	}

	// Assemble domain services
	c := cache.New()
	dir := staff.NewDirectory(store)
	ledger := money.NewLedger(store, c, cfg.MasterCacheTTL)
	closer := money.NewCloser(ledger, dir)
	biller := billing.NewBiller(store)

	dispatcher := inventory.NewDispatcher(store, api.StaffResolver{Directory: dir})
	dispatcher.LockWait = cfg.LockWait
	dispatcher.Commission = ledger
	dispatcher.Cache = c

	views := inventory.NewViews(store, c)
	views.StatusTTL = cfg.StatusCacheTTL
	views.MasterTTL = cfg.MasterCacheTTL

	handler := api.NewHandler(dispatcher, views, dir, ledger, closer, biller, cfg)
	router := api.NewRouter(handler)

	// Background jobs
	channels := notify.Multi{notify.LogNotifier{}}
	if cfg.LineToken != "" && cfg.LineGroupID != "" {
		channels = append(channels, notify.NewLineNotifier(cfg.LineToken, cfg.LineGroupID))
	}
	if cfg.SMTPAddr != "" && len(cfg.NotifyEmails) > 0 {
		channels = append(channels, notify.EmailNotifier{
			Addr:    cfg.SMTPAddr,
			From:    cfg.SMTPFrom,
			To:      cfg.NotifyEmails,
			Subject: "タンク管理アラート",
		})
	}
	var notifier notify.Notifier = channels
	scheduler := api.NewScheduler(store, notifier, closer, cfg)
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// ensureBaseSheets creates the master and status sheets a fresh
// database is missing. Year log sheets are created lazily on first
// write.
func ensureBaseSheets(ctx context.Context, st sheet.Store) error {
	base := []struct {
		name   string
		header []string
	}{
		{inventory.SheetStatus, []string{"タンクID", "ステータス", "場所", "最終担当", "耐圧検査期限", "備考", "ログ備考", "更新日時", "種別"}},
		{inventory.SheetDest, []string{"貸出先", "正式名称", "単価", "状態"}},
		{staff.Sheet, []string{"氏名", "メール", "役割", "ランク", "状態", "パスコード", "表示"}},
		{money.SheetPrice, []string{"作業名", "基本単価", "獲得スコア", "プラチナ加算", "ゴールド加算", "シルバー加算", "ブロンズ加算"}},
		{money.SheetRank, []string{"ランク名", "必要スコア"}},
		{money.SheetRepair, []string{"項目名", "金額"}},
	}
	for _, b := range base {
		if err := st.EnsureSheet(ctx, b.name, b.header); err != nil {
			return fmt.Errorf("ensure %s: %w", b.name, err)
		}
	}
	return nil
}
