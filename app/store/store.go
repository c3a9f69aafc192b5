package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bobylevd/rosterbot/app/draw"
)

// ErrNotFound indicates that the entity hasn't been found in the database.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates that an entity with the same unique key already exists.
var ErrDuplicate = errors.New("already exists")

// Store provides methods to store/load data.
type Store struct {
	db *sqlx.DB
}

// New prepares the database.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite allows a single writer, queue everything through one connection
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			position TEXT NOT NULL CHECK (position IN ('GK', 'DF', 'MC', 'FW')),
			secondary_positions TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_players_position ON players(position);

		CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			location TEXT NOT NULL,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			team_a_score INTEGER,
			team_b_score INTEGER,
			mvp_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_matches_date ON matches(date DESC, time DESC);

		CREATE TABLE IF NOT EXISTS draws (
			id TEXT PRIMARY KEY,
			match_id TEXT REFERENCES matches(id) ON DELETE CASCADE,
			team_a TEXT NOT NULL,
			team_b TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_draws_created_at ON draws(created_at DESC);
    `

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const playerColumns = `id, name, position, secondary_positions, phone`

const playerOrder = ` ORDER BY CASE position
		WHEN 'GK' THEN 0 WHEN 'DF' THEN 1 WHEN 'MC' THEN 2 ELSE 3 END, name`

// CreatePlayer inserts a new player into the storage.
func (s *Store) CreatePlayer(ctx context.Context, pl draw.Player) error {
	const query = `INSERT INTO players (id, name, position, secondary_positions, phone, created_at)
		VALUES (:id, :name, :position, :secondary_positions, :phone, CURRENT_TIMESTAMP)`

	if _, err := s.db.NamedExecContext(ctx, query, pl); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert player %q: %w", pl.Name, ErrDuplicate)
		}
		return fmt.Errorf("insert player: %w", err)
	}

	return nil
}

// UpdatePlayer updates mutable fields of the player.
func (s *Store) UpdatePlayer(ctx context.Context, pl draw.Player) error {
	const query = `UPDATE players SET
			name = :name,
			position = :position,
			secondary_positions = :secondary_positions,
			phone = :phone
		WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, pl)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update player %q: %w", pl.Name, ErrDuplicate)
		}
		return fmt.Errorf("update player: %w", err)
	}

	return expectAffected(res, "player", pl.ID)
}

// UpsertPlayers inserts the players or updates existing ones with the same id.
func (s *Store) UpsertPlayers(ctx context.Context, players ...draw.Player) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO players (id, name, position, secondary_positions, phone, created_at)
		VALUES (:id, :name, :position, :secondary_positions, :phone, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			secondary_positions = excluded.secondary_positions,
			phone = excluded.phone`

	for _, pl := range players {
		if _, err := tx.NamedExecContext(ctx, query, pl); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("upsert player %q: %w", pl.Name, ErrDuplicate)
			}
			return fmt.Errorf("upsert player %q: %w", pl.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DeletePlayer removes the player with the given id.
func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	return expectAffected(res, "player", id)
}

// GetPlayer returns a player by id.
func (s *Store) GetPlayer(ctx context.Context, id string) (draw.Player, error) {
	var pl draw.Player
	err := s.db.GetContext(ctx, &pl, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return draw.Player{}, fmt.Errorf("get player %s: %w", id, ErrNotFound)
	case err != nil:
		return draw.Player{}, fmt.Errorf("get player: %w", err)
	}
	return pl, nil
}

// ListPlayers returns players with the given ids, or all of them if no
// ids are given, goalkeepers first.
func (s *Store) ListPlayers(ctx context.Context, ids []string) ([]draw.Player, error) {
	return s.selectPlayers(ctx, "id", ids)
}

// FindPlayersByName returns players with the given names, case-insensitive.
func (s *Store) FindPlayersByName(ctx context.Context, names []string) ([]draw.Player, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return s.selectPlayers(ctx, "name", names)
}

func (s *Store) selectPlayers(ctx context.Context, column string, values []string) ([]draw.Player, error) {
	var players []draw.Player

	var args []any
	query := `SELECT ` + playerColumns + ` FROM players`

	if len(values) > 0 {
		query += fmt.Sprintf(` WHERE %s IN (%s)`, column, strings.Join(
			slices.Repeat([]string{"?"}, len(values)),
			", ",
		))
		for _, v := range values {
			args = append(args, v)
		}
	}
	query += playerOrder

	if err := s.db.SelectContext(ctx, &players, query, args...); err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	return players, nil
}

// CreateMatch inserts a new match.
func (s *Store) CreateMatch(ctx context.Context, m Match) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO matches
			(id, date, time, location, is_completed, team_a_score, team_b_score, mvp_id, created_at)
		VALUES
			(:id, :date, :time, :location, :is_completed, :team_a_score, :team_b_score, :mvp_id, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	return nil
}

// UpdateMatch updates all mutable fields of the match.
func (s *Store) UpdateMatch(ctx context.Context, m Match) error {
	const query = `UPDATE matches SET
			date = :date,
			time = :time,
			location = :location,
			is_completed = :is_completed,
			team_a_score = :team_a_score,
			team_b_score = :team_b_score,
			mvp_id = :mvp_id
		WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}

	return expectAffected(res, "match", m.ID)
}

// GetMatch returns a match by id.
func (s *Store) GetMatch(ctx context.Context, id string) (Match, error) {
	var m Match
	err := s.db.GetContext(ctx, &m, `SELECT * FROM matches WHERE id = ?`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Match{}, fmt.Errorf("get match %s: %w", id, ErrNotFound)
	case err != nil:
		return Match{}, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

// ListMatches returns all matches, latest first.
func (s *Store) ListMatches(ctx context.Context) ([]Match, error) {
	var matches []Match
	if err := s.db.SelectContext(ctx, &matches,
		`SELECT * FROM matches ORDER BY date DESC, time DESC, created_at DESC`); err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	return matches, nil
}

// DeleteMatch removes the match together with its draws.
func (s *Store) DeleteMatch(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM draws WHERE match_id = ?`, id); err != nil {
		return fmt.Errorf("delete draws of match: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}

	if err := expectAffected(res, "match", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DeleteOldCompletedMatches keeps only the latest completed matches,
// together with their draws. Returns the number of deleted matches.
func (s *Store) DeleteOldCompletedMatches(ctx context.Context, keep int) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM matches WHERE is_completed AND id NOT IN (
			SELECT id FROM matches WHERE is_completed
			ORDER BY date DESC, time DESC, created_at DESC LIMIT ?
		)`

	if _, err := tx.ExecContext(ctx, `DELETE FROM draws WHERE match_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("delete draws of old matches: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("delete old matches: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return n, nil
}

// SaveDraw stores the draw.
func (s *Store) SaveDraw(ctx context.Context, d Draw) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO draws (id, match_id, team_a, team_b, created_at)
		VALUES (:id, :match_id, :team_a, :team_b, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("insert draw: %w", err)
	}

	return nil
}

// LastDraw returns the most recent draw.
func (s *Store) LastDraw(ctx context.Context) (Draw, error) {
	draws, err := s.ListDraws(ctx, "", 1)
	if err != nil {
		return Draw{}, err
	}
	if len(draws) == 0 {
		return Draw{}, fmt.Errorf("last draw: %w", ErrNotFound)
	}
	return draws[0], nil
}

// ListDraws returns up to limit draws, latest first. Non-positive limit
// means no limit. If matchID is set, only draws for that match are returned.
func (s *Store) ListDraws(ctx context.Context, matchID string, limit int) ([]Draw, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT id, match_id, team_a, team_b, created_at FROM draws`
	var args []any
	if matchID != "" {
		query += ` WHERE match_id = ?`
		args = append(args, matchID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	var draws []Draw
	if err := s.db.SelectContext(ctx, &draws, query, args...); err != nil {
		return nil, fmt.Errorf("select draws: %w", err)
	}
	return draws, nil
}

// DeleteDraw removes the draw with the given id.
func (s *Store) DeleteDraw(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM draws WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete draw: %w", err)
	}
	return expectAffected(res, "draw", id)
}

// DeleteOldDraws keeps only the latest draws. Returns the number of deleted draws.
func (s *Store) DeleteOldDraws(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM draws WHERE id NOT IN (
			SELECT id FROM draws ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("delete old draws: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func expectAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
