package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/api"
	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/config"
	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/hub"
	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/logger"
	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/nav"
	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/notification"
	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/session"
	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/toast"
)

// logNavigator stands in for the UI shell's router: it records where a
// clicked notification would take the user.
type logNavigator struct {
	log *zap.Logger
}

func (n logNavigator) Navigate(t nav.Target) {
	n.log.Info("navigate", zap.String("target", t.String()))
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	zl, err := logger.New(cfg.Env != "production")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	sess, err := session.Open()
	if err != nil {
		zl.Fatal("session open", zap.Error(err))
	}
	ident, err := sess.Identity()
	if err != nil {
		zl.Fatal("no signed-in session; store a token first", zap.Error(err))
	}
	zl.Info("session resolved",
		zap.String("user", ident.UserID), zap.String("role", ident.RoleID))

	apiClient := api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.APITimeout,
	}, sess.Token, zl)

	store := notification.NewStore(apiClient, zl,
		notification.WithDedup(cfg.Notifications.Dedup))

	connector := hub.NewConnector(hub.Config{
		URL:           cfg.Hub.URL,
		Token:         sess.Token,
		PingInterval:  cfg.HubPingInterval,
		WriteDeadline: cfg.HubWriteDeadline,
		ReadTimeout:   cfg.HubReadTimeout,
	}, zl)
	connector.OnReconnecting(func(err error) {
		zl.Warn("push connection interrupted", zap.Error(err))
	})
	connector.OnReconnected(func(id string) {
		zl.Info("push connection restored", zap.String("connectionId", id))
	})

	presenter := toast.NewLog(zl, cfg.Toast.PerMinute)
	router := nav.NewRouter(logNavigator{zl}, store, zl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.LoadInitial(ctx, ident.RoleID, ident.UserID); err != nil {
		// prior (empty) contents stay; push arrivals still accumulate
		zl.Error("initial notification load failed", zap.Error(err))
	}
	zl.Info("notifications loaded", zap.Int("unread", store.UnreadCount()))

	connector.Start()

	go func() {
		for n := range connector.Notifications() {
			n.RoleID = ident.RoleID
			store.OnPush(n)
			presenter.Notify(n)
			zl.Debug("notification received",
				zap.String("id", n.ID), zap.Int("unread", store.UnreadCount()))
		}
	}()

	// SIGUSR1 is the headless stand-in for clicking the newest unread
	// notification: navigate, then acknowledge.
	open := make(chan os.Signal, 1)
	signal.Notify(open, syscall.SIGUSR1)
	go func() {
		for range open {
			for _, n := range store.Snapshot() {
				if !n.Read {
					router.Open(ctx, n, ident.UserID)
					break
				}
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	zl.Info("signal received, shutting down", zap.String("signal", s.String()))
	connector.Stop()
}
