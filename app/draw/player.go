package draw

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Position is a field position of a player.
type Position string

// Field positions, in the order they are dealt by the balancer.
const (
	Goalkeeper Position = "GK"
	Defender   Position = "DF"
	Midfielder Position = "MC"
	Forward    Position = "FW"
)

// Positions lists all known positions.
var Positions = []Position{Goalkeeper, Defender, Midfielder, Forward}

var positionAliases = map[string]Position{
	"gk": Goalkeeper, "po": Goalkeeper, "goalkeeper": Goalkeeper, "keeper": Goalkeeper, "portero": Goalkeeper,
	"df": Defender, "defender": Defender, "defensa": Defender,
	"mc": Midfielder, "mf": Midfielder, "midfielder": Midfielder, "medio": Midfielder,
	"fw": Forward, "dl": Forward, "forward": Forward, "striker": Forward, "delantero": Forward,
}

// ParsePosition parses a position code or name, case-insensitive.
func ParsePosition(s string) (Position, error) {
	if p, ok := positionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown position %q", s)
}

// Valid reports whether the position is one of the known ones.
func (p Position) Valid() bool {
	switch p {
	case Goalkeeper, Defender, Midfielder, Forward:
		return true
	}
	return false
}

// Name returns the human-readable name of the position.
func (p Position) Name() string {
	switch p {
	case Goalkeeper:
		return "goalkeeper"
	case Defender:
		return "defender"
	case Midfielder:
		return "midfielder"
	case Forward:
		return "forward"
	default:
		return string(p)
	}
}

// Player is a club member as seen by the balancer.
type Player struct {
	ID        string       `db:"id"                  json:"id"`
	Name      string       `db:"name"                json:"name"                         validate:"required,max=64"`
	Position  Position     `db:"position"            json:"primaryPosition"              validate:"required,oneof=GK DF MC FW"`
	Secondary PositionList `db:"secondary_positions" json:"secondaryPositions,omitempty" validate:"omitempty,dive,oneof=GK DF MC FW"`
	Phone     string       `db:"phone"               json:"phone,omitempty"              validate:"omitempty,max=32"`
}

// String returns the player name with the position code.
func (p Player) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Position)
}

// PositionList is a list of positions stored as a comma-separated column.
type PositionList []Position

// Value implements driver.Valuer.
func (l PositionList) Value() (driver.Value, error) {
	codes := make([]string, len(l))
	for i, p := range l {
		codes[i] = string(p)
	}
	return strings.Join(codes, ","), nil
}

// Scan implements sql.Scanner.
func (l *PositionList) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan positions: unsupported type %T", src)
	}

	*l = nil
	for _, code := range strings.Split(s, ",") {
		if code = strings.TrimSpace(code); code == "" {
			continue
		}
		*l = append(*l, Position(code))
	}
	return nil
}
