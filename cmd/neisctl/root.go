package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/chatshhs-go/internal/chat"
	"github.com/garyellow/chatshhs-go/internal/config"
	"github.com/garyellow/chatshhs-go/internal/logger"
	"github.com/garyellow/chatshhs-go/internal/neis"
	"github.com/garyellow/chatshhs-go/internal/ratelimit"
	"github.com/garyellow/chatshhs-go/internal/schooldate"
	"github.com/garyellow/chatshhs-go/internal/storage"
)

// querierFactory opens a NEIS querier and returns a function releasing it.
type querierFactory func(ctx context.Context, useCache bool) (chat.Querier, func(), error)

type rootOptions struct {
	today string
}

// anchor returns the day relative dates count from: --today or the
// current day in Seoul.
func (o *rootOptions) anchor() (time.Time, error) {
	if o.today == "" {
		return schooldate.Today(time.Now()), nil
	}
	t, err := time.ParseInLocation("20060102", o.today, schooldate.SeoulLocation())
	if err != nil {
		return time.Time{}, fmt.Errorf("--today must be YYYYMMDD: %w", err)
	}
	return t, nil
}

func newRootCmd(open querierFactory) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "neisctl",
		Short:         "Query 서현고 NEIS data and test date normalization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.today, "today", "", "anchor date YYYYMMDD (default: today in Asia/Seoul)")

	root.AddCommand(newQueryCmd(opts, open), newNormalizeCmd(opts))
	return root
}

// newNEISQuerier builds the production client from tool-mode config, which
// needs only the NEIS key.
func newNEISQuerier(ctx context.Context, useCache bool) (chat.Querier, func(), error) {
	cfg, err := config.LoadForMode(config.ToolMode)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewWithWriter(cfg.LogLevel, os.Stderr)

	opts := []neis.ClientOption{neis.WithLogger(log.WithModule("neis"))}
	if cfg.NEIS.RPS > 0 {
		opts = append(opts, neis.WithThrottle(ratelimit.New(max(cfg.NEIS.RPS*2, 1), cfg.NEIS.RPS)))
	}
	release := func() {}
	if useCache {
		db, err := storage.New(ctx, cfg.SQLitePath(), cfg.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		opts = append(opts, neis.WithCache(db))
		release = func() { _ = db.Close() }
	}

	client := neis.NewClient(neis.Config{
		BaseURL:    cfg.NEIS.BaseURL,
		APIKey:     cfg.NEIS.APIKey,
		OfficeCode: cfg.NEIS.OfficeCode,
		SchoolCode: cfg.NEIS.SchoolCode,
		Timeout:    cfg.NEIS.Timeout,
		MaxRetries: cfg.NEIS.MaxRetries,
		RetryDelay: config.NEISRetryInitial,
	}, opts...)
	return client, release, nil
}
