package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobylevd/rosterbot/app/event"
	"github.com/bobylevd/rosterbot/app/store"
)

// Bot is a command to run discord bot.
type Bot struct {
	StoreOpts
	Token          string        `long:"token"    env:"TOKEN"    description:"Discord bot token"`
	AdminIDs       []string      `long:"admin-id" env:"ADMIN_IDS" env-delim:"," description:"Admin discords IDs"`
	HandlerTimeout time.Duration `long:"timeout"  env:"TIMEOUT"  default:"5s" description:"Command handling timeout"`

	CommonOpts
}

// Execute runs the command.
func (b Bot) Execute([]string) error {
	if b.Token == "" {
		return errors.New("discord bot token is not set")
	}

	svc, closeStore, err := b.service()
	if err != nil {
		return err
	}
	defer closeStore()

	disc := &event.Discord{
		Token:          b.Token,
		AdminIDs:       b.AdminIDs,
		Service:        svc,
		HandlerTimeout: b.HandlerTimeout,
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	go func() { // catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		sig := <-stop
		log.Printf("[WARN] caught signal: %s", sig)
		cancel(fmt.Errorf("caught signal: %s", sig))
	}()

	ewg, ctx := errgroup.WithContext(ctx)
	ewg.Go(func() error {
		log.Printf("[INFO] starting bot %s with %d admins", b.Version, len(b.AdminIDs))
		return disc.Run(ctx)
	})
	ewg.Go(func() error {
		<-ctx.Done()
		log.Printf("[INFO] stopping bot")
		return nil
	})

	if err := ewg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// StoreOpts defines the location of the roster database and retention limits.
type StoreOpts struct {
	StoreLocation string `long:"loc"          env:"LOCATION"     default:"roster.db" description:"Store location"`
	KeepDraws     int    `long:"keep-draws"   env:"KEEP_DRAWS"   default:"20"        description:"Number of draws to keep"`
	KeepMatches   int    `long:"keep-matches" env:"KEEP_MATCHES" default:"20"        description:"Number of completed matches to keep"`
}

func (o StoreOpts) service() (svc *store.Service, closeFn func(), err error) {
	s, err := store.New(o.StoreLocation)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	closeFn = func() {
		if err := s.Close(); err != nil {
			log.Printf("[WARN] failed to close store: %v", err)
		}
	}

	return &store.Service{Store: s, KeepDraws: o.KeepDraws, KeepMatches: o.KeepMatches}, closeFn, nil
}
