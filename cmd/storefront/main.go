package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopstream/storefront/internal/cart"
	"github.com/shopstream/storefront/internal/checkout"
	"github.com/shopstream/storefront/internal/config"
	"github.com/shopstream/storefront/internal/gateway"
	"github.com/shopstream/storefront/internal/health"
	"github.com/shopstream/storefront/internal/metrics"
	"github.com/shopstream/storefront/internal/order"
	"github.com/shopstream/storefront/internal/session"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	// Session setup
	sess := session.New()

	if cfg.Gateway.AuthToken != "" {
		if err := sess.SetToken(cfg.Gateway.AuthToken); err != nil {
			slog.Error("❌ Invalid gateway auth token", "error", err.Error())
			os.Exit(1)
		}
	}

	// Client wiring
	gatewayClient := gateway.New(cfg.Gateway, sess)
	cartStore := cart.NewStore(gatewayClient, sess)
	orderCoordinator := order.NewCoordinator(gatewayClient)
	checkoutFlow := checkout.NewFlow(cartStore, orderCoordinator, sess, cfg.Checkout.Providers)

	slog.Info("storefront initialized",
		slog.String("env", cfg.Env),
		slog.String("gateway", cfg.Gateway.BaseURL),
		slog.String("version", "1.0.0"))

	// Ops endpoints: metrics plus gateway reachability
	healthHandler, err := health.NewHealthHandler(cfg)
	if err != nil {
		slog.Error("❌ Error building health handler", "error", err.Error())
		os.Exit(1)
	}

	opsMux := http.NewServeMux()
	opsMux.Handle("GET /metrics", metrics.Handler())
	opsMux.Handle("GET /health", healthHandler.Handler())

	opsServer := http.Server{
		Addr:    cfg.Ops.Addr,
		Handler: opsMux,
	}

	go func() {
		if err := opsServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start ops server", slog.Any("error", err.Error()))
		}
	}()

	slog.Info("🚀 Storefront session is starting...", slog.String("ops_address", cfg.Ops.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-done
		slog.Warn("🛑 Shutdown signal received. Abandoning any open checkout...")
		cancel()
	}()

	runSession(rootCtx, cartStore, orderCoordinator, checkoutFlow)

	// Graceful shutdown of the ops server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Ops server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Storefront shut down gracefully.")
	}
}

// runSession drives one storefront session: load the cart and order history,
// and report what a UI layer would render. The checkout flow stays idle until
// a frontend (or test harness) drives it; on shutdown any open draft is
// abandoned.
func runSession(ctx context.Context, cartStore *cart.Store, orderCoordinator *order.Coordinator, checkoutFlow *checkout.Flow) {

	loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	currentCart, err := cartStore.FetchCart(loadCtx)
	if err != nil {
		slog.Error("Failed to load cart", slog.String("error", err.Error()))
	} else if currentCart == nil {
		slog.Info("No user session; nothing to load")
	} else {
		slog.Info("Cart loaded",
			slog.String("cartId", currentCart.ID.String()),
			slog.Int("items", len(currentCart.Items)),
			slog.String("subtotal", currentCart.Subtotal().StringFixed(2)))
	}

	orders, err := orderCoordinator.FetchUserOrders(loadCtx)
	if err != nil {
		slog.Error("Failed to load order history", slog.String("error", err.Error()))
	} else {
		slog.Info("Order history loaded", slog.Int("orders", len(orders)))
	}

	<-ctx.Done()

	checkoutFlow.Abandon(context.Background())
}
