package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bobylevd/rosterbot/app/event"
	"github.com/bobylevd/rosterbot/app/store"
)

// Draw is a command to draw two teams from the command line.
type Draw struct {
	StoreOpts
	MatchID string `long:"match" env:"MATCH_ID" description:"Match to draw the teams for"`
	Redraw  bool   `long:"redraw" description:"Draw the players of the last draw again"`
	Last    bool   `long:"last" description:"Show the last draw, of the match if set, without drawing"`

	Args struct {
		Names []string `positional-arg-name:"name" description:"Players to draw"`
	} `positional-args:"yes"`

	CommonOpts

	out io.Writer
}

// Execute runs the command.
func (d Draw) Execute([]string) error {
	svc, closeStore, err := d.service()
	if err != nil {
		return err
	}
	defer closeStore()

	if d.out == nil {
		d.out = os.Stdout
	}

	res, err := d.run(context.Background(), svc)
	if err != nil {
		return err
	}

	if res.MatchID != nil {
		fmt.Fprintf(d.out, "match %s\n", *res.MatchID)
	}
	fmt.Fprintln(d.out, event.FormatDraw(res))
	return nil
}

func (d Draw) run(ctx context.Context, svc *store.Service) (store.DrawResult, error) {
	switch {
	case d.Last && d.MatchID != "":
		return svc.MatchDraw(ctx, d.MatchID)
	case d.Last:
		return svc.LastDraw(ctx)
	case d.Redraw:
		return svc.Redraw(ctx)
	default:
		req := event.ParseDrawArgs(d.Args.Names)
		if d.MatchID != "" {
			req.MatchID = d.MatchID
		}
		return svc.Draw(ctx, req)
	}
}
