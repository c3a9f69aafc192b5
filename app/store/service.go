package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bobylevd/rosterbot/app/draw"
)

// Service wraps the database store with additional methods.
type Service struct {
	Store       *Store
	Balancer    draw.Balancer
	KeepDraws   int // number of stored draws to keep, 20 by default
	KeepMatches int // number of completed matches to keep, 20 by default
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrNotEnoughPlayers is issued when the draw is requested with less than two players.
var ErrNotEnoughPlayers = errors.New("not enough players to start a match")

// ErrMatchCompleted is issued when teams are drawn for a match that has been played.
var ErrMatchCompleted = errors.New("match is already completed")

// ErrNoDraw is issued when a redraw is requested but nothing has been drawn yet.
var ErrNoDraw = errors.New("no draw has been made yet")

// ErrMissing indicates that certain players were not found in the roster and
// are required to be added.
type ErrMissing []string

// Error returns the error message.
func (e ErrMissing) Error() string {
	return fmt.Sprintf("players are not in the roster: %s",
		strings.Join(e, ", "))
}

// ErrInvalid wraps input that failed validation.
type ErrInvalid struct{ Err error }

// Error returns the error message.
func (e ErrInvalid) Error() string {
	var verrs validator.ValidationErrors
	if !errors.As(e.Err, &verrs) {
		return fmt.Sprintf("invalid input: %v", e.Err)
	}

	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q (value: '%v')", strings.ToLower(fe.Field()), fe.Tag(), fe.Value())
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// Unwrap returns the underlying error.
func (e ErrInvalid) Unwrap() error { return e.Err }

func (s *Service) check(v any) error {
	if err := validate.Struct(v); err != nil {
		return ErrInvalid{Err: err}
	}
	return nil
}

// Roster returns all players of the club.
func (s *Service) Roster(ctx context.Context) ([]draw.Player, error) {
	players, err := s.Store.ListPlayers(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// AddPlayer registers a new player with the given name and position.
func (s *Service) AddPlayer(ctx context.Context, name, position, phone string) (draw.Player, error) {
	pos, err := draw.ParsePosition(position)
	if err != nil {
		return draw.Player{}, ErrInvalid{Err: err}
	}

	pl := draw.Player{ID: uuid.New().String(), Name: strings.TrimSpace(name), Position: pos, Phone: phone}
	if err := s.check(pl); err != nil {
		return draw.Player{}, err
	}

	if err := s.Store.CreatePlayer(ctx, pl); err != nil {
		return draw.Player{}, fmt.Errorf("create player: %w", err)
	}

	log.Printf("[INFO] player %s added as %s", pl.Name, pl.Position.Name())
	return pl, nil
}

// RemovePlayer removes the player with the given name from the roster.
func (s *Service) RemovePlayer(ctx context.Context, name string) error {
	pl, err := s.playerByName(ctx, name)
	if err != nil {
		return err
	}

	if err := s.Store.DeletePlayer(ctx, pl.ID); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}

	log.Printf("[INFO] player %s removed", pl.Name)
	return nil
}

// SetPosition changes the primary position of the player.
func (s *Service) SetPosition(ctx context.Context, name, position string) (draw.Player, error) {
	pos, err := draw.ParsePosition(position)
	if err != nil {
		return draw.Player{}, ErrInvalid{Err: err}
	}

	pl, err := s.playerByName(ctx, name)
	if err != nil {
		return draw.Player{}, err
	}

	pl.Position = pos
	if err := s.Store.UpdatePlayer(ctx, pl); err != nil {
		return draw.Player{}, fmt.Errorf("update player: %w", err)
	}

	return pl, nil
}

// ImportPlayers validates the players and stores them, replacing players
// with the same id. Players without id get a new one. The passed slice is
// not modified.
func (s *Service) ImportPlayers(ctx context.Context, players []draw.Player) error {
	players = slices.Clone(players)
	for idx := range players {
		players[idx].Secondary = slices.Clone(players[idx].Secondary)
		if players[idx].ID == "" {
			players[idx].ID = uuid.New().String()
		}
		players[idx].Position = normalize(players[idx].Position)
		for i, p := range players[idx].Secondary {
			players[idx].Secondary[i] = normalize(p)
		}
		if err := s.check(players[idx]); err != nil {
			return fmt.Errorf("player #%d %q: %w", idx+1, players[idx].Name, err)
		}
	}

	if err := s.Store.UpsertPlayers(ctx, players...); err != nil {
		return fmt.Errorf("upsert players: %w", err)
	}

	log.Printf("[INFO] imported %d players", len(players))
	return nil
}

// DrawRequest is a request to draw two teams.
type DrawRequest struct {
	PlayerNames []string
	MatchID     string
}

// DrawResult is a stored draw with its balance report.
type DrawResult struct {
	Draw
	Report draw.Balance
}

// Draw draws two teams out of the named players and stores the result as the
// last draw.
func (s *Service) Draw(ctx context.Context, req DrawRequest) (DrawResult, error) {
	names := dedup(req.PlayerNames)
	if len(names) < 2 {
		return DrawResult{}, ErrNotEnoughPlayers
	}

	players, err := s.Store.FindPlayersByName(ctx, names)
	if err != nil {
		return DrawResult{}, fmt.Errorf("find players: %w", err)
	}

	if len(players) != len(names) {
		var e ErrMissing
		for _, name := range names {
			if !s.containsName(players, name) {
				e = append(e, name)
			}
		}
		return DrawResult{}, e
	}

	return s.draw(ctx, players, req.MatchID)
}

// Redraw draws the players of the last draw again.
func (s *Service) Redraw(ctx context.Context) (DrawResult, error) {
	last, err := s.Store.LastDraw(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DrawResult{}, ErrNoDraw
		}
		return DrawResult{}, fmt.Errorf("last draw: %w", err)
	}

	var matchID string
	if last.MatchID != nil {
		matchID = *last.MatchID
	}

	return s.draw(ctx, last.Players(), matchID)
}

// LastDraw returns the last stored draw.
func (s *Service) LastDraw(ctx context.Context) (DrawResult, error) {
	last, err := s.Store.LastDraw(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DrawResult{}, ErrNoDraw
		}
		return DrawResult{}, fmt.Errorf("last draw: %w", err)
	}
	return DrawResult{Draw: last, Report: last.Balance()}, nil
}

// MatchDraw returns the latest draw made for the match.
func (s *Service) MatchDraw(ctx context.Context, matchID string) (DrawResult, error) {
	_, d, err := s.matchDraw(ctx, matchID)
	if err != nil {
		return DrawResult{}, err
	}
	return DrawResult{Draw: d, Report: d.Balance()}, nil
}

func (s *Service) matchDraw(ctx context.Context, matchID string) (Match, Draw, error) {
	m, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return Match{}, Draw{}, fmt.Errorf("get match: %w", err)
	}

	draws, err := s.Store.ListDraws(ctx, matchID, 1)
	if err != nil {
		return Match{}, Draw{}, fmt.Errorf("list draws: %w", err)
	}
	if len(draws) == 0 {
		return Match{}, Draw{}, ErrNoDraw
	}
	return m, draws[0], nil
}

// DeleteDraw removes a stored draw.
func (s *Service) DeleteDraw(ctx context.Context, id string) error {
	if err := s.Store.DeleteDraw(ctx, id); err != nil {
		return fmt.Errorf("delete draw: %w", err)
	}
	log.Printf("[INFO] draw %s deleted", id)
	return nil
}

func (s *Service) draw(ctx context.Context, players []draw.Player, matchID string) (DrawResult, error) {
	d := Draw{ID: uuid.New().String()}

	if matchID != "" {
		m, err := s.Store.GetMatch(ctx, matchID)
		if err != nil {
			return DrawResult{}, fmt.Errorf("get match: %w", err)
		}
		if m.Completed {
			return DrawResult{}, fmt.Errorf("match %s: %w", m.ID, ErrMatchCompleted)
		}
		d.MatchID = &m.ID
	}

	teams, err := s.Balancer.Partition(players)
	if err != nil {
		return DrawResult{}, fmt.Errorf("partition: %w", err)
	}
	d.TeamA, d.TeamB = teams.A, teams.B

	if err := s.Store.SaveDraw(ctx, d); err != nil {
		return DrawResult{}, fmt.Errorf("save draw: %w", err)
	}

	n, err := s.Store.DeleteOldDraws(ctx, keepOrDefault(s.KeepDraws))
	if err != nil {
		log.Printf("[WARN] failed to clean up old draws: %v", err)
	} else if n > 0 {
		log.Printf("[DEBUG] removed %d old draws", n)
	}

	res := DrawResult{Draw: d, Report: d.Balance()}
	log.Printf("[INFO] drawn %d players: %s", len(players), res.Report)
	return res, nil
}

// ScheduleMatch adds a new upcoming match.
func (s *Service) ScheduleMatch(ctx context.Context, date, tm, location string) (Match, error) {
	m := Match{ID: uuid.New().String(), Date: date, Time: tm, Location: strings.TrimSpace(location)}
	if err := s.check(m); err != nil {
		return Match{}, err
	}

	if err := s.Store.CreateMatch(ctx, m); err != nil {
		return Match{}, fmt.Errorf("create match: %w", err)
	}

	log.Printf("[INFO] match %s scheduled on %s %s at %s", m.ID, m.Date, m.Time, m.Location)
	return m, nil
}

// Matches returns all matches, latest first.
func (s *Service) Matches(ctx context.Context) ([]Match, error) {
	matches, err := s.Store.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// CompleteRequest is a request to record the result of a match.
type CompleteRequest struct {
	MatchID string
	ScoreA  int
	ScoreB  int
	MVPName string
}

// CompleteMatch records the final score of the match and drops the oldest
// completed matches beyond the retention limit.
func (s *Service) CompleteMatch(ctx context.Context, req CompleteRequest) (Match, error) {
	m, err := s.Store.GetMatch(ctx, req.MatchID)
	if err != nil {
		return Match{}, fmt.Errorf("get match: %w", err)
	}

	m.Completed = true
	m.ScoreA, m.ScoreB = &req.ScoreA, &req.ScoreB
	if err := s.check(m); err != nil {
		return Match{}, err
	}

	if req.MVPName != "" {
		mvp, err := s.playerByName(ctx, req.MVPName)
		if err != nil {
			return Match{}, err
		}
		m.MVPID = mvp.ID
	}

	if err := s.Store.UpdateMatch(ctx, m); err != nil {
		return Match{}, fmt.Errorf("update match: %w", err)
	}

	n, err := s.Store.DeleteOldCompletedMatches(ctx, keepOrDefault(s.KeepMatches))
	if err != nil {
		log.Printf("[WARN] failed to clean up old matches: %v", err)
	} else if n > 0 {
		log.Printf("[INFO] removed %d old completed matches", n)
	}

	return m, nil
}

// CancelMatch removes the match and its draws.
func (s *Service) CancelMatch(ctx context.Context, id string) error {
	if err := s.Store.DeleteMatch(ctx, id); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	log.Printf("[INFO] match %s cancelled", id)
	return nil
}

// PlayerNames returns names of the players with the given ids, unknown
// ids are returned as is.
func (s *Service) PlayerNames(ctx context.Context, ids ...string) (map[string]string, error) {
	players, err := s.Store.ListPlayers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	res := make(map[string]string, len(ids))
	for _, id := range ids {
		res[id] = id
	}
	for _, pl := range players {
		res[pl.ID] = pl.Name
	}
	return res, nil
}

func (s *Service) playerByName(ctx context.Context, name string) (draw.Player, error) {
	players, err := s.Store.FindPlayersByName(ctx, []string{name})
	if err != nil {
		return draw.Player{}, fmt.Errorf("find player: %w", err)
	}
	if len(players) == 0 {
		return draw.Player{}, ErrMissing{name}
	}
	return players[0], nil
}

// containsName checks whether the slice contains a player with the specified
// name, case-insensitive.
func (s *Service) containsName(players []draw.Player, name string) bool {
	for _, pl := range players {
		if strings.EqualFold(pl.Name, name) {
			return true
		}
	}
	return false
}

// dedup drops empty and repeated names, case-insensitive, keeping the order.
func dedup(names []string) []string {
	seen := make(map[string]bool, len(names))
	res := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		res = append(res, name)
	}
	return res
}

// normalize converts position aliases to codes, unknown positions are
// returned as is to fail validation.
func normalize(p draw.Position) draw.Position {
	if pos, err := draw.ParsePosition(string(p)); err == nil {
		return pos
	}
	return p
}

func keepOrDefault(keep int) int {
	if keep <= 0 {
		return 20
	}
	return keep
}
