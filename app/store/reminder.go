package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/bobylevd/rosterbot/app/draw"
)

// Reminder is a WhatsApp link with a match reminder for a single player.
type Reminder struct {
	Player draw.Player
	Link   string
}

// Reminders is a set of reminders for the players of a match.
type Reminders struct {
	Match   Match
	Links   []Reminder
	NoPhone []string // names of players without a phone number
}

// Reminders builds WhatsApp reminder links for the players of the latest draw
// of the match. Phone numbers are taken from the roster, players removed from
// the roster since the draw keep the phone from the draw.
func (s *Service) Reminders(ctx context.Context, matchID string) (Reminders, error) {
	m, d, err := s.matchDraw(ctx, matchID)
	if err != nil {
		return Reminders{}, err
	}

	kickoff, err := m.When(time.UTC)
	if err != nil {
		return Reminders{}, err
	}

	rems := Reminders{Match: m}
	for _, snap := range d.Players() {
		pl, err := s.Store.GetPlayer(ctx, snap.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			pl = snap
		case err != nil:
			return Reminders{}, fmt.Errorf("get player: %w", err)
		}

		phone := digits(pl.Phone)
		if phone == "" {
			rems.NoPhone = append(rems.NoPhone, pl.Name)
			continue
		}

		rems.Links = append(rems.Links, Reminder{Player: pl, Link: whatsAppLink(phone, reminderText(pl.Name, m, kickoff))})
	}

	return rems, nil
}

func reminderText(name string, m Match, kickoff time.Time) string {
	first, _, _ := strings.Cut(strings.TrimSpace(name), " ")
	return fmt.Sprintf("Hi %s! Match reminder\n\nDate: %s\nTime: %s\nPlace: %s\n\nSee you on the pitch!",
		first, kickoff.Format("Monday, 2 January 2006"), m.Time, m.Location)
}

func whatsAppLink(phone, text string) string {
	u := url.URL{Scheme: "https", Host: "wa.me", Path: "/" + phone, RawQuery: url.Values{"text": {text}}.Encode()}
	return u.String()
}

// digits drops everything but digits from the phone number.
func digits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return -1
		}
		return r
	}, phone)
}
