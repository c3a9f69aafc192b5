package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobylevd/rosterbot/app/draw"
)

const roster = `[
	{"id": "15", "name": "ARTURO", "primaryPosition": "PO"},
	{"id": "30", "name": "TATO", "primaryPosition": "GK"},
	{"id": "6", "name": "ALEX", "primaryPosition": "DF"},
	{"id": "7", "name": "GULLE", "primaryPosition": "DF", "phone": "+573001112233"},
	{"id": "1", "name": "JP", "primaryPosition": "MC", "secondaryPositions": ["DL"]},
	{"id": "10", "name": "JUAN MA", "primaryPosition": "MC"},
	{"id": "3", "name": "CHAPA", "primaryPosition": "DL"},
	{"id": "4", "name": "MIGUELITO", "primaryPosition": "DL"}
]`

func prepRoster(t *testing.T) StoreOpts {
	t.Helper()
	dir := t.TempDir()

	file := filepath.Join(dir, "players.json")
	require.NoError(t, os.WriteFile(file, []byte(roster), 0o600))

	opts := StoreOpts{StoreLocation: filepath.Join(dir, "roster.db"), KeepDraws: 20, KeepMatches: 20}

	out := &bytes.Buffer{}
	imp := Import{StoreOpts: opts, out: out}
	imp.Args.File = file
	require.NoError(t, imp.Execute(nil))
	assert.Equal(t, "imported 8 players\n", out.String())

	return opts
}

func TestImport(t *testing.T) {
	opts := prepRoster(t)

	svc, closeStore, err := opts.service()
	require.NoError(t, err)
	defer closeStore()

	players, err := svc.Roster(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 8)
	assert.Equal(t, draw.Player{ID: "15", Name: "ARTURO", Position: draw.Goalkeeper}, players[0])

	jp, err := svc.Store.GetPlayer(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, draw.PositionList{draw.Forward}, jp.Secondary)
}

func TestImport_BadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "players.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"name": "JP"}`), 0o600))

	out := &bytes.Buffer{}
	imp := Import{StoreOpts: StoreOpts{StoreLocation: filepath.Join(dir, "roster.db")}, out: out}
	imp.Args.File = file
	assert.ErrorContains(t, imp.Execute(nil), "decode players")

	imp.Args.File = filepath.Join(dir, "missing.json")
	assert.ErrorContains(t, imp.Execute(nil), "read players")
	assert.Empty(t, out.String())
}

func TestDraw_Execute(t *testing.T) {
	opts := prepRoster(t)
	out := &bytes.Buffer{}

	d := Draw{StoreOpts: opts, out: out}
	d.Args.Names = []string{"arturo,", "tato,", "juan", "ma,", "jp,", "chapa,", "alex"}
	require.NoError(t, d.Execute(nil))

	text := out.String()
	for _, name := range []string{"ARTURO (GK)", "TATO (GK)", "JUAN MA (MC)", "JP (MC)", "CHAPA (FW)", "ALEX (DF)", "total"} {
		assert.Contains(t, text, name)
	}
	assert.NotContains(t, text, "MIGUELITO")

	out.Reset()
	d = Draw{StoreOpts: opts, out: out, Last: true}
	require.NoError(t, d.Execute(nil))
	assert.Contains(t, out.String(), "JUAN MA (MC)")

	out.Reset()
	d = Draw{StoreOpts: opts, out: out, Redraw: true}
	require.NoError(t, d.Execute(nil))
	assert.Contains(t, out.String(), "CHAPA (FW)")

	d = Draw{StoreOpts: opts, out: out}
	d.Args.Names = []string{"arturo", "tato", "chapa"}
	err := d.Execute(nil)
	var invalid draw.ErrInvalidInput
	require.ErrorAs(t, err, &invalid)
	assert.True(t, strings.Contains(err.Error(), "player count must be even"))
}

func TestBot_NoToken(t *testing.T) {
	err := Bot{StoreOpts: StoreOpts{StoreLocation: filepath.Join(t.TempDir(), "roster.db")}}.Execute(nil)
	assert.EqualError(t, err, "discord bot token is not set")
}

func TestDraw_LastOfMatch(t *testing.T) {
	opts := prepRoster(t)
	out := &bytes.Buffer{}

	svc, closeStore, err := opts.service()
	require.NoError(t, err)
	m, err := svc.ScheduleMatch(context.Background(), "2025-10-25", "19:00", "Norte")
	require.NoError(t, err)
	closeStore()

	d := Draw{StoreOpts: opts, out: out, MatchID: m.ID}
	d.Args.Names = []string{"arturo", "tato"}
	require.NoError(t, d.Execute(nil))

	d = Draw{StoreOpts: opts, out: &bytes.Buffer{}}
	d.Args.Names = []string{"alex", "gulle"}
	require.NoError(t, d.Execute(nil))

	out.Reset()
	d = Draw{StoreOpts: opts, out: out, MatchID: m.ID, Last: true}
	require.NoError(t, d.Execute(nil))
	assert.Contains(t, out.String(), "match "+m.ID)
	assert.Contains(t, out.String(), "ARTURO (GK)")
	assert.NotContains(t, out.String(), "ALEX")
}
