package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bobylevd/rosterbot/app/draw"
)

// Import is a command to load players from a JSON file into the roster.
type Import struct {
	StoreOpts
	Args struct {
		File string `positional-arg-name:"file" description:"JSON array of players" required:"true"`
	} `positional-args:"yes"`

	CommonOpts

	out io.Writer
}

// Execute runs the command.
func (i Import) Execute([]string) error {
	players, err := readPlayers(i.Args.File)
	if err != nil {
		return err
	}

	svc, closeStore, err := i.service()
	if err != nil {
		return err
	}
	defer closeStore()

	if i.out == nil {
		i.out = os.Stdout
	}

	if err := svc.ImportPlayers(context.Background(), players); err != nil {
		return fmt.Errorf("import players: %w", err)
	}

	fmt.Fprintf(i.out, "imported %d players\n", len(players))
	return nil
}

func readPlayers(path string) ([]draw.Player, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read players: %w", err)
	}

	var players []draw.Player
	if err := json.Unmarshal(b, &players); err != nil {
		return nil, fmt.Errorf("decode players from %s: %w", path, err)
	}

	return players, nil
}
