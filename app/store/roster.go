package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobylevd/rosterbot/app/draw"
)

// Match is a scheduled game of the club.
type Match struct {
	ID        string    `db:"id"`
	Date      string    `db:"date"         validate:"required,datetime=2006-01-02"`
	Time      string    `db:"time"         validate:"required,datetime=15:04"`
	Location  string    `db:"location"     validate:"required,max=128"`
	Completed bool      `db:"is_completed"`
	ScoreA    *int      `db:"team_a_score" validate:"omitempty,min=0"`
	ScoreB    *int      `db:"team_b_score" validate:"omitempty,min=0"`
	MVPID     string    `db:"mvp_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Score returns the score in format "2:1", or "-" if it is not recorded.
func (m Match) Score() string {
	if m.ScoreA == nil || m.ScoreB == nil {
		return "-"
	}
	return fmt.Sprintf("%d:%d", *m.ScoreA, *m.ScoreB)
}

// When returns the kickoff time parsed in the given location.
func (m Match) When(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", m.Date+" "+m.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse kickoff of match %s: %w", m.ID, err)
	}
	return t, nil
}

// Draw is a stored result of a team draw.
type Draw struct {
	ID        string    `db:"id"`
	MatchID   *string   `db:"match_id"`
	TeamA     Roster    `db:"team_a"`
	TeamB     Roster    `db:"team_b"`
	CreatedAt time.Time `db:"created_at"`
}

// Balance returns the balance report of the drawn teams.
func (d Draw) Balance() draw.Balance {
	return draw.Report(d.TeamA, d.TeamB)
}

// Players returns all players of the draw, team A first.
func (d Draw) Players() []draw.Player {
	res := make([]draw.Player, 0, len(d.TeamA)+len(d.TeamB))
	res = append(res, d.TeamA...)
	return append(res, d.TeamB...)
}

// Roster is a snapshot of team players stored as a JSON column.
type Roster []draw.Player

// Value implements driver.Valuer.
func (r Roster) Value() (driver.Value, error) {
	if r == nil {
		r = Roster{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal roster: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *Roster) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("scan roster: unsupported type %T", src)
	}

	if err := json.Unmarshal(b, r); err != nil {
		return fmt.Errorf("unmarshal roster: %w", err)
	}
	return nil
}
