package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/fjod/artisan_market/internal/cart"
	"github.com/fjod/artisan_market/internal/config"
	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/favorites"
	"github.com/fjod/artisan_market/internal/grpcserver"
	"github.com/fjod/artisan_market/internal/httpapi"
	"github.com/fjod/artisan_market/internal/imageopt"
	"github.com/fjod/artisan_market/internal/messaging"
	"github.com/fjod/artisan_market/internal/poller"
	"github.com/fjod/artisan_market/internal/reviews"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the stores over HTTP and gRPC",
	Long: `Loads the persisted cart and favorites from the configured backend and
serves every store over HTTP, with a gRPC health service alongside.

When Kafka brokers are configured, checkout events for the current user
clear the cart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	images, err := newOptimizer(cfg.Images)
	if err != nil {
		return err
	}

	backend, err := openBackend(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("error closing storage", zap.Error(err))
		}
	}()
	bridge := newBridge(backend, cfg.Storage, log)

	cartStore := cart.New(ctx, bridge, cart.WithLogger(log))
	favoritesStore := favorites.New(ctx, bridge, favorites.WithLogger(log))
	msgOpts := []messaging.Option{
		messaging.WithCurrentUser(currentUser(cfg.User)),
		messaging.WithReplyDelay(cfg.Messaging.ReplyDelay),
		messaging.WithLogger(log),
	}
	if cfg.Messaging.Seed {
		msgOpts = append(msgOpts, messaging.WithDemoSeed())
	}
	messagingStore := messaging.New(msgOpts...)
	defer messagingStore.Close()
	reviewsAggregator := reviews.New(reviews.WithSeed(reviews.DemoReviews()), reviews.WithLogger(log))

	unsubscribe := cartStore.SubscribeCount(func(n int) {
		log.Debug("cart changed", zap.Int("item_count", n))
	})
	defer unsubscribe()

	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: httpapi.NewRouter(httpapi.Deps{
			Cart:               cartStore,
			Favorites:          favoritesStore,
			Messaging:          messagingStore,
			Reviews:            reviewsAggregator,
			Images:             images,
			Logger:             log,
			RequestTimeout:     cfg.RequestTimeout,
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		}),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	grpcServer := grpcserver.New(log)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	grpcServer.SetServing(grpcserver.Services...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if len(cfg.Kafka.Brokers) > 0 {
		p := poller.NewPoller(cartStore, cfg.User.ID, poller.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, log)
		g.Go(func() error {
			defer p.Close()
			log.Info("checkout poller started", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
			p.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		grpcServer.Shutdown(shutdownCtx)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}

func currentUser(u config.UserConfig) domain.Participant {
	return domain.Participant{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

func newOptimizer(c config.ImagesConfig) (*imageopt.Optimizer, error) {
	defaults := imageopt.Options{Width: c.Width, Quality: c.Quality}
	if c.Format != "" {
		f, err := imageopt.ParseFormat(c.Format)
		if err != nil {
			return nil, fmt.Errorf("%w: images: %v", config.ErrInvalid, err)
		}
		defaults.Format = f
	}

	opts := []imageopt.Option{imageopt.WithDefaults(defaults)}
	if c.OptimizerURL != "" {
		opts = append(opts, imageopt.WithBaseURL(c.OptimizerURL))
	}
	if c.Placeholder != "" {
		opts = append(opts, imageopt.WithPlaceholder(c.Placeholder))
	}
	return imageopt.New(opts...), nil
}
