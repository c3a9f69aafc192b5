package event

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/bobylevd/rosterbot/app/draw"
	"github.com/bobylevd/rosterbot/app/store"
)

// Discord is a handler for Discord commands.
type Discord struct {
	Token          string
	AdminIDs       []string
	Service        *store.Service
	HandlerTimeout time.Duration
	se             *discordgo.Session
}

type command func(ctx context.Context, args []string) (reply string, err error)

// maxMessageLen is the longest message Discord accepts.
const maxMessageLen = 2000

// Run runs the Discord handler.
// Blocking call.
func (d *Discord) Run(ctx context.Context) error {
	if d.HandlerTimeout == 0 {
		d.HandlerTimeout = 5 * time.Second
	}

	se, err := discordgo.New(fmt.Sprintf("Bot %s", d.Token))
	if err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	d.se = se

	d.se.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	d.se.AddHandler(d.onMessage)

	log.Printf("[INFO] opening discord session")
	if err := d.se.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	<-ctx.Done()

	log.Printf("[WARN] stopping bot with reason: %v", context.Cause(ctx))
	if err := d.se.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}

	return nil
}

func (d *Discord) onMessage(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author.ID == s.State.User.ID {
		return // ignore messages from the bot
	}

	log.Printf("[DEBUG] received message from %s: %s", msg.ChannelID, msg.Content)

	msg.Content = strings.TrimSpace(msg.Content)
	if msg.Content == "" || !strings.HasPrefix(msg.Content, "!") {
		return // do nothing
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.HandlerTimeout)
	defer cancel()

	fields := strings.Fields(msg.Content)
	cmd := d.route(fields[0], msg.Author.ID)
	if cmd == nil {
		return // do nothing
	}

	replyTo := &discordgo.MessageReference{MessageID: msg.ID, ChannelID: msg.ChannelID}
	reply, err := cmd(ctx, fields[1:]) // first word is the command itself
	if err != nil {
		log.Printf("[WARN] failed to execute command %s: %v", fields[0], err)
		reply = "failed to execute command, check logs"
	}
	for _, chunk := range splitMessage(reply, maxMessageLen) {
		if _, err = s.ChannelMessageSendReply(msg.ChannelID, chunk, replyTo); err != nil {
			log.Printf("[WARN] failed to send message: %v", err)
			return
		}
	}
}

// route returns the command handler for the given command word, nil if the
// command is unknown or the author is not allowed to run it.
func (d *Discord) route(word, authorID string) command {
	admin := d.isAdmin(authorID)

	switch strings.ToLower(word) {
	case "!players":
		return d.players
	case "!addplayer":
		return d.adminOnly(admin, d.addPlayer)
	case "!removeplayer":
		return d.adminOnly(admin, d.removePlayer)
	case "!position":
		return d.adminOnly(admin, d.setPosition)
	case "!draw":
		return d.adminOnly(admin, d.draw)
	case "!redraw":
		return d.adminOnly(admin, d.redraw)
	case "!lastdraw":
		return d.lastDraw
	case "!deletedraw":
		return d.adminOnly(admin, d.deleteDraw)
	case "!remind":
		return d.adminOnly(admin, d.remind)
	case "!matches":
		return d.matches
	case "!schedule":
		return d.adminOnly(admin, d.schedule)
	case "!complete":
		return d.adminOnly(admin, d.complete)
	case "!cancel":
		return d.adminOnly(admin, d.cancel)
	case "!ping":
		return d.ping
	case "!help":
		return d.help
	default:
		return nil
	}
}

func (d *Discord) adminOnly(admin bool, cmd command) command {
	if !admin {
		return nil
	}
	return cmd
}

func (d *Discord) players(ctx context.Context, _ []string) (string, error) {
	players, err := d.Service.Roster(ctx)
	if err != nil {
		return "", fmt.Errorf("roster: %w", err)
	}

	if len(players) == 0 {
		return "the roster is empty, add players with !addplayer", nil
	}

	return "```\n" + FormatRoster(players) + "\n```", nil
}

func (d *Discord) addPlayer(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "usage: !addplayer <position> <name> [phone=<phone>]", nil
	}

	var phone string
	if last := args[len(args)-1]; strings.HasPrefix(last, "phone=") {
		phone = strings.TrimPrefix(last, "phone=")
		args = args[:len(args)-1]
	}

	pl, err := d.Service.AddPlayer(ctx, strings.Join(args[1:], " "), args[0], phone)
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("add player: %w", err)
	}

	return fmt.Sprintf("%s added as %s", pl.Name, pl.Position.Name()), nil
}

func (d *Discord) removePlayer(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "usage: !removeplayer <name>", nil
	}

	name := strings.Join(args, " ")
	err := d.Service.RemovePlayer(ctx, name)
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("remove player: %w", err)
	}

	return fmt.Sprintf("%s removed from the roster", name), nil
}

func (d *Discord) setPosition(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "usage: !position <position> <name>", nil
	}

	pl, err := d.Service.SetPosition(ctx, strings.Join(args[1:], " "), args[0])
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("set position: %w", err)
	}

	return fmt.Sprintf("%s now plays as %s", pl.Name, pl.Position.Name()), nil
}

func (d *Discord) draw(ctx context.Context, args []string) (string, error) {
	req := ParseDrawArgs(args)
	if len(req.PlayerNames) == 0 {
		return "usage: !draw [match=<id>] <name> <name> ... (use commas for names with spaces)", nil
	}

	res, err := d.Service.Draw(ctx, req)
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("draw: %w", err)
	}

	return "```\n" + FormatDraw(res) + "\n```", nil
}

func (d *Discord) redraw(ctx context.Context, _ []string) (string, error) {
	res, err := d.Service.Redraw(ctx)
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("redraw: %w", err)
	}

	return "```\n" + FormatDraw(res) + "\n```", nil
}

func (d *Discord) lastDraw(ctx context.Context, args []string) (string, error) {
	var (
		res store.DrawResult
		err error
	)
	switch len(args) {
	case 0:
		res, err = d.Service.LastDraw(ctx)
	case 1:
		res, err = d.Service.MatchDraw(ctx, args[0])
	default:
		return "usage: !lastdraw [match id]", nil
	}
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("last draw: %w", err)
	}

	header := fmt.Sprintf("draw %s made at %s", res.ID, res.CreatedAt.Format("2006-01-02 15:04"))
	if res.MatchID != nil {
		header += " for match " + *res.MatchID
	}

	return header + "\n```\n" + FormatDraw(res) + "\n```", nil
}

func (d *Discord) deleteDraw(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "usage: !deletedraw <draw id>", nil
	}

	err := d.Service.DeleteDraw(ctx, args[0])
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("delete draw: %w", err)
	}

	return fmt.Sprintf("draw %s deleted", args[0]), nil
}

func (d *Discord) remind(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "usage: !remind <match id>", nil
	}

	rems, err := d.Service.Reminders(ctx, args[0])
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("reminders: %w", err)
	}

	return FormatReminders(rems), nil
}

func (d *Discord) matches(ctx context.Context, _ []string) (string, error) {
	matches, err := d.Service.Matches(ctx)
	if err != nil {
		return "", fmt.Errorf("list matches: %w", err)
	}

	if len(matches) == 0 {
		return "no matches scheduled", nil
	}

	var mvpIDs []string
	for _, m := range matches {
		if m.MVPID != "" {
			mvpIDs = append(mvpIDs, m.MVPID)
		}
	}

	mvps := map[string]string{}
	if len(mvpIDs) > 0 {
		if mvps, err = d.Service.PlayerNames(ctx, mvpIDs...); err != nil {
			return "", fmt.Errorf("mvp names: %w", err)
		}
	}

	return "```\n" + FormatMatches(matches, mvps) + "\n```", nil
}

func (d *Discord) schedule(ctx context.Context, args []string) (string, error) {
	if len(args) < 3 {
		return "usage: !schedule <YYYY-MM-DD> <HH:MM> <location>", nil
	}

	m, err := d.Service.ScheduleMatch(ctx, args[0], args[1], strings.Join(args[2:], " "))
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("schedule match: %w", err)
	}

	kickoff, err := m.When(time.Local)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("match %s scheduled on %s, %s", m.ID, kickoff.Format("Monday 2 Jan 2006 at 15:04"), m.Location), nil
}

func (d *Discord) complete(ctx context.Context, args []string) (string, error) {
	const usage = "usage: !complete <match id> <score A> <score B> [mvp]"
	if len(args) < 3 {
		return usage, nil
	}

	scoreA, errA := strconv.Atoi(args[1])
	scoreB, errB := strconv.Atoi(args[2])
	if errA != nil || errB != nil {
		return usage, nil
	}

	req := store.CompleteRequest{MatchID: args[0], ScoreA: scoreA, ScoreB: scoreB, MVPName: strings.Join(args[3:], " ")}
	m, err := d.Service.CompleteMatch(ctx, req)
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("complete match: %w", err)
	}

	return fmt.Sprintf("match %s on %s finished %s", m.ID, m.Date, m.Score()), nil
}

func (d *Discord) cancel(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "usage: !cancel <match id>", nil
	}

	err := d.Service.CancelMatch(ctx, args[0])
	if reply, ok := userError(err); ok {
		return reply, nil
	}
	if err != nil {
		return "", fmt.Errorf("cancel match: %w", err)
	}

	return fmt.Sprintf("match %s cancelled", args[0]), nil
}

func (d *Discord) isAdmin(discordID string) bool {
	for _, id := range d.AdminIDs {
		if discordID == id {
			return true
		}
	}
	return false
}

func (d *Discord) ping(context.Context, []string) (string, error) { return "pong!", nil }

func (d *Discord) help(context.Context, []string) (reply string, err error) {
	return `
!players - club roster
!addplayer <position> <name> [phone=<phone>] - add a player, position is one of GK, DF, MC, FW
!removeplayer <name> - remove a player
!position <position> <name> - change the position of a player
!draw [match=<id>] <name> <name> ... - draw two balanced teams, names with spaces are separated by commas
!redraw - draw the players of the last draw again
!lastdraw [match id] - show the last draw, or the last draw of a match
!deletedraw <draw id> - delete a stored draw
!remind <match id> - WhatsApp reminder links for the players of the match
!matches - match schedule and results
!schedule <YYYY-MM-DD> <HH:MM> <location> - schedule a match
!complete <match id> <score A> <score B> [mvp] - record the result of a match
!cancel <match id> - cancel a match
!ping - pong!
!help - this message
	`, nil
}

// ParseDrawArgs parses the arguments of the draw command. A "match=<id>"
// argument links the draw to a match. Names are separated by spaces, or by
// commas if there is any comma among the arguments.
func ParseDrawArgs(args []string) store.DrawRequest {
	var req store.DrawRequest

	rest := make([]string, 0, len(args))
	for _, arg := range args {
		if id, ok := strings.CutPrefix(arg, "match="); ok {
			req.MatchID = id
			continue
		}
		rest = append(rest, arg)
	}

	joined := strings.Join(rest, " ")
	if !strings.Contains(joined, ",") {
		req.PlayerNames = rest
		return req
	}

	for _, name := range strings.Split(joined, ",") {
		if name = strings.TrimSpace(name); name != "" {
			req.PlayerNames = append(req.PlayerNames, name)
		}
	}
	return req
}

// userError returns a reply for errors caused by the command input.
func userError(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var (
		missing store.ErrMissing
		invalid store.ErrInvalid
		input   draw.ErrInvalidInput
	)

	switch {
	case errors.As(err, &missing):
		return missing.Error(), true
	case errors.As(err, &invalid):
		return invalid.Error(), true
	case errors.As(err, &input):
		return fmt.Sprintf("can't draw %d players: %s", input.Count, input.Reason), true
	case errors.Is(err, store.ErrNotEnoughPlayers):
		return "not enough players to start a match", true
	case errors.Is(err, store.ErrNoDraw):
		return "no draw has been made yet", true
	case errors.Is(err, store.ErrMatchCompleted):
		return "this match has already been played", true
	case errors.Is(err, store.ErrDuplicate):
		return "a player with this name already exists", true
	case errors.Is(err, store.ErrNotFound):
		return "not found", true
	}

	return "", false
}

// splitMessage splits the text into chunks of at most limit bytes, cutting at
// line breaks where possible.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" || len(chunks) == 0 {
		chunks = append(chunks, text)
	}
	return chunks
}
