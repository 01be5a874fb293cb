package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/reptrainer/internal/database"
	"github.com/example/reptrainer/internal/lines"
	"github.com/example/reptrainer/internal/rules"
	sr "github.com/example/reptrainer/internal/spaced_repetition"
	"github.com/example/reptrainer/internal/training"
	"github.com/example/reptrainer/pkg/models"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		return b.handleStart(chatID)
	case "help":
		return b.handleHelp(chatID)
	case "menu":
		return b.showMainMenu(chatID)
	case "repertoires":
		return b.handleRepertoires(ctx, chatID)
	case "chapters":
		return b.handleChapters(ctx, chatID, args)
	case "lines":
		return b.handleLines(ctx, chatID, args)
	case "train":
		cfg, ref, err := parseTrainArgs(args, b.config.DefaultMode)
		if err != nil {
			return b.sendText(chatID, "❌ "+err.Error())
		}
		return b.handleTrain(ctx, chatID, cfg, ref)
	case "hint":
		return b.handleHint(chatID)
	case "stop":
		return b.handleStop(ctx, chatID)
	case "stats":
		return b.handleStats(ctx, chatID, args)
	case "due":
		return b.handleDue(ctx, chatID)
	case "delete":
		return b.handleDelete(ctx, chatID, args)
	default:
		msg := tgbotapi.NewMessage(chatID, "Unknown command. Use /help to see the commands.")
		msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
		return b.sendMessage(msg)
	}
}

func (b *Bot) handleStart(chatID int64) error {
	text := "♟ Opening repertoire trainer\n\n" +
		"Drill the moves of your repertoire line by line. After each line, rate " +
		"how well you knew it from 0 to 5 and it is scheduled for review."
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "📖 Commands\n\n" +
		"/repertoires - list repertoires\n" +
		"/chapters <repertoire> - list chapters\n" +
		"/lines <repertoire> [/ chapter] - browse lines\n" +
		"/train <repertoire> [/ chapter] [depth|width|bfs] [due] [max=N] - start drilling\n" +
		"/hint - show the expected move\n" +
		"/stop - end the session\n" +
		"/stats [repertoire] - statistics\n" +
		"/due - lines due for review\n" +
		"/delete <repertoire> - delete a repertoire and its history\n\n" +
		"While drilling, send moves as SAN (Nf3, exd5, O-O) or squares (g1f3, e7e8q).\n" +
		"bfs asks every position of the repertoire level by level, without ratings."
	return b.sendText(chatID, text)
}

func (b *Bot) handleRepertoires(ctx context.Context, chatID int64) error {
	reps, err := b.trainer.Repertoires(ctx)
	if err != nil {
		return err
	}
	if len(reps) == 0 {
		return b.sendText(chatID, "No repertoires yet. Import a PGN or a sheet first.")
	}
	due, err := b.trainer.DueCounts(ctx)
	if err != nil {
		return err
	}

	var text strings.Builder
	var buttons [][]MenuButton
	text.WriteString("📚 Repertoires\n\n")
	for _, rep := range reps {
		fmt.Fprintf(&text, "• %s (%s)", rep.Name, rep.Color)
		if n := due[rep.ID]; n > 0 {
			fmt.Fprintf(&text, " - %d due", n)
		}
		text.WriteString("\n")
		buttons = append(buttons, []MenuButton{{Text: "🎯 " + rep.Name, CallbackData: callbackTrain + rep.ID}})
	}
	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	return b.sendMessage(msg)
}

func (b *Bot) findRepertoire(ctx context.Context, chatID int64, ref string) (*models.Repertoire, error) {
	if ref == "" {
		return nil, b.sendText(chatID, "Name a repertoire, see /repertoires.")
	}
	rep, err := b.trainer.FindRepertoire(ctx, ref)
	if errors.Is(err, database.ErrNotFound) {
		return nil, b.sendText(chatID, fmt.Sprintf("Repertoire %q not found.", ref))
	}
	return rep, err
}

func (b *Bot) handleChapters(ctx context.Context, chatID int64, args string) error {
	rep, err := b.findRepertoire(ctx, chatID, args)
	if rep == nil {
		return err
	}
	chapters, err := b.trainer.Chapters(ctx, rep.ID)
	if err != nil {
		return err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "📖 %s\n\n", rep.Name)
	if len(chapters) == 0 {
		text.WriteString("No chapters.")
	}
	for i, ch := range chapters {
		fmt.Fprintf(&text, "%d. %s\n", i+1, ch.Name)
	}
	return b.sendText(chatID, text.String())
}

// handleDelete asks for confirmation before a repertoire is deleted
func (b *Bot) handleDelete(ctx context.Context, chatID int64, args string) error {
	rep, err := b.findRepertoire(ctx, chatID, args)
	if rep == nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete %s with its chapters, statistics and history?", rep.Name))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{
		{Text: "🗑 Delete", CallbackData: callbackDelete + rep.ID},
		{Text: "Cancel", CallbackData: callbackMainMenu},
	}})
	return b.sendMessage(msg)
}

func (b *Bot) deleteRepertoire(ctx context.Context, chatID int64, id string) error {
	rep, err := b.trainer.FindRepertoire(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return b.sendText(chatID, "Repertoire not found.")
	}
	if err != nil {
		return err
	}

	// an open session on the repertoire has nothing left to record into
	b.mu.Lock()
	if cs, ok := b.sessions[chatID]; ok && cs.repertoireID == rep.ID {
		delete(b.sessions, chatID)
	}
	b.mu.Unlock()

	if err := b.trainer.DeleteRepertoire(ctx, rep.ID); err != nil {
		return err
	}
	b.log.Info("repertoire deleted", "chat", chatID, "repertoire", rep.Name)
	return b.sendText(chatID, fmt.Sprintf("🗑 %s deleted.", rep.Name))
}

func (b *Bot) handleLines(ctx context.Context, chatID int64, args string) error {
	repRef, chapterRef := splitRef(args)
	rep, err := b.findRepertoire(ctx, chatID, repRef)
	if rep == nil {
		return err
	}
	gen, ch, err := b.trainer.BrowseLines(ctx, rep, chapterRef, b.config.BatchSize)
	if errors.Is(err, database.ErrNotFound) {
		return b.sendText(chatID, "Chapter not found.")
	}
	if err != nil {
		return err
	}
	gen.LoadNextBatch()

	b.mu.Lock()
	b.browsing[chatID] = &browseState{generator: gen, chapter: ch.Name}
	b.mu.Unlock()
	return b.showMoreLines(ctx, chatID)
}

// showMoreLines sends the loaded lines not shown yet. Lines of the previous
// page are marked completed, which loads the next batch when few remain.
func (b *Bot) showMoreLines(ctx context.Context, chatID int64) error {
	b.mu.Lock()
	state, ok := b.browsing[chatID]
	var page []lines.Line
	var first, total int
	var more bool
	var chapter string
	if ok {
		g := state.generator
		for i := 0; i < state.shown; i++ {
			if !g.IsCompleted(i) {
				g.MarkCompleted(i)
			}
		}
		if len(g.Loaded()) == state.shown && g.HasMore() {
			g.LoadNextBatch()
		}
		page = g.Loaded()[state.shown:]
		first = state.shown + 1
		state.shown = len(g.Loaded())
		total = g.TotalCount()
		more = g.HasMore()
		chapter = state.chapter
		if !more {
			delete(b.browsing, chatID)
		}
	}
	b.mu.Unlock()
	if !ok {
		return b.sendText(chatID, "Use /lines <repertoire> first.")
	}
	if total == 0 {
		return b.sendText(chatID, fmt.Sprintf("📜 %s has no lines yet.", chapter))
	}

	ids := make([]string, len(page))
	for i, l := range page {
		ids[i] = l.ID
	}
	stats, err := b.trainer.LineStatuses(ctx, ids)
	if err != nil {
		return err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "📜 %s: lines %d-%d of %d\n\n", chapter, first, first+len(page)-1, total)
	for _, l := range page {
		st, drilled := stats[l.ID]
		switch {
		case !drilled:
			text.WriteString("🆕 ")
		case b.trainer.IsMastered(&st):
			text.WriteString("⭐ ")
		default:
			text.WriteString("• ")
		}
		text.WriteString(formatLine(l.Moves))
		text.WriteString("\n")
	}
	msg := tgbotapi.NewMessage(chatID, text.String())
	if more {
		msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "More »", CallbackData: callbackMoreLines}}})
	}
	return b.sendMessage(msg)
}

func (b *Bot) handleTrain(ctx context.Context, chatID int64, cfg models.TrainingConfig, ref string) error {
	repRef, chapterRef := splitRef(ref)
	rep, err := b.findRepertoire(ctx, chatID, repRef)
	if rep == nil {
		return err
	}
	cfg.RepertoireID = rep.ID
	if chapterRef != "" {
		ch, err := b.trainer.FindChapter(ctx, rep.ID, chapterRef)
		if errors.Is(err, database.ErrNotFound) {
			return b.sendText(chatID, fmt.Sprintf("Chapter %q not found.", chapterRef))
		}
		if err != nil {
			return err
		}
		cfg.ChapterID = ch.ID
	}
	return b.startTraining(ctx, chatID, cfg)
}

func (b *Bot) startTraining(ctx context.Context, chatID int64, cfg models.TrainingConfig) error {
	if cfg.Mode == models.BreadthFirst {
		return b.startDrill(ctx, chatID, cfg)
	}

	sess, err := b.trainer.StartTraining(ctx, cfg)
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, training.ErrChapterNotFound) {
		return b.sendText(chatID, "Repertoire or chapter not found.")
	}
	if err != nil {
		return err
	}
	if sess.State() == training.StateComplete {
		if cfg.DueOnly {
			return b.sendText(chatID, "🎉 Nothing is due. Come back later!")
		}
		return b.sendText(chatID, "There are no lines with moves of your color to drill.")
	}

	// sess is not shared yet, so the first prompt is built without the lock
	header := fmt.Sprintf("🎯 %d %s, %s", len(sess.Lines()), plural(len(sess.Lines()), "line", "lines"), sess.Mode())
	if cfg.DueOnly {
		header += ", due only"
	}
	msg := promptMessage(chatID, sess, header)

	b.replaceSession(ctx, chatID, &chatSession{repertoireID: cfg.RepertoireID, session: sess})
	b.log.Info("session started", "chat", chatID, "repertoire", cfg.RepertoireID, "lines", len(sess.Lines()))
	return b.sendMessage(msg)
}

func (b *Bot) startDrill(ctx context.Context, chatID int64, cfg models.TrainingConfig) error {
	d, err := b.trainer.StartDrill(ctx, cfg)
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, training.ErrChapterNotFound) {
		return b.sendText(chatID, "Repertoire or chapter not found.")
	}
	if err != nil {
		return err
	}
	if d.Done() {
		return b.sendText(chatID, "There are no moves of your color to drill.")
	}

	header := fmt.Sprintf("🎯 %d %s, breadth-first", d.Total(), plural(d.Total(), "position", "positions"))
	msg := drillPromptMessage(chatID, d, header)

	b.replaceSession(ctx, chatID, &chatSession{repertoireID: cfg.RepertoireID, drill: d})
	b.log.Info("drill started", "chat", chatID, "repertoire", cfg.RepertoireID, "positions", d.Total())
	return b.sendMessage(msg)
}

// replaceSession installs cs for the chat and records the session it replaces
func (b *Bot) replaceSession(ctx context.Context, chatID int64, cs *chatSession) {
	b.mu.Lock()
	previous := b.sessions[chatID]
	b.sessions[chatID] = cs
	b.mu.Unlock()

	if previous != nil {
		if _, err := b.finish(ctx, previous); err != nil {
			b.log.Warn("failed to record replaced session", "chat", chatID, "error", err)
		}
	}
}

// finish records a session already removed from the sessions map
func (b *Bot) finish(ctx context.Context, cs *chatSession) (*models.SessionResult, error) {
	if cs.drill != nil {
		return b.trainer.FinishDrill(ctx, cs.drill)
	}
	return b.trainer.FinishSession(ctx, cs.session)
}

// promptMessage renders the position of the next expected move. The caller
// must own sess, either by holding b.mu or before publishing it.
func promptMessage(chatID int64, sess *training.Session, prefix string) tgbotapi.MessageConfig {
	p, ok := sess.Prompt()
	if !ok {
		return tgbotapi.NewMessage(chatID, prefix)
	}
	line, _ := sess.CurrentLine()

	var text strings.Builder
	if prefix != "" {
		text.WriteString(prefix)
		text.WriteString("\n\n")
	}
	fmt.Fprintf(&text, "Line %d/%d", p.LineIndex+1, len(sess.Lines()))
	if p.IsCritical {
		text.WriteString(" ❗ critical")
	}
	text.WriteString("\n")
	if len(p.Played) > 0 {
		text.WriteString(formatLine(line.Moves[:len(p.Played)]))
		text.WriteString("\n")
	}
	if p.Comment != "" {
		fmt.Fprintf(&text, "💬 %s\n", p.Comment)
	}
	writePosition(&text, p.FEN, p.MoveNumber, p.IsBlack)
	return withTrainingButtons(tgbotapi.NewMessage(chatID, text.String()))
}

// drillPromptMessage renders the current decision of a breadth-first drill
func drillPromptMessage(chatID int64, d *training.Drill, prefix string) tgbotapi.MessageConfig {
	p, ok := d.Current()
	if !ok {
		return tgbotapi.NewMessage(chatID, prefix)
	}

	var text strings.Builder
	if prefix != "" {
		text.WriteString(prefix)
		text.WriteString("\n\n")
	}
	fmt.Fprintf(&text, "Position %d/%d", p.Position+1, p.Total)
	if p.IsCritical {
		text.WriteString(" ❗ critical")
	}
	text.WriteString("\n")
	if len(p.Path) > 0 {
		text.WriteString(formatLine(pathMoves(p.Path, p.MoveNumber, p.IsBlack)))
		text.WriteString("\n")
	}
	writePosition(&text, p.FENBefore, p.MoveNumber, p.IsBlack)
	return withTrainingButtons(tgbotapi.NewMessage(chatID, text.String()))
}

func writePosition(text *strings.Builder, fen string, number int, isBlack bool) {
	if board, err := rules.Board(fen); err == nil {
		text.WriteString("\n")
		text.WriteString(board)
	}
	side := "White"
	if isBlack {
		side = "Black"
	}
	fmt.Fprintf(text, "\n%s to play: %s", side, moveNumberPrefix(number, isBlack))
}

func withTrainingButtons(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{
		{Text: "💡 Hint", CallbackData: callbackHint},
		{Text: "⏹ Stop", CallbackData: callbackStop},
	}})
	return msg
}

// handleMoveText checks a move sent while drilling. Replies are built while
// holding b.mu and sent after releasing it.
func (b *Bot) handleMoveText(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)

	b.mu.Lock()
	cs, ok := b.sessions[chatID]
	if !ok {
		b.mu.Unlock()
		return b.sendText(chatID, "No training session. Use /train <repertoire> or /help.")
	}
	from, to, promo, isSquares := parseSquares(text)
	var res training.MoveResult
	switch {
	case cs.drill != nil && isSquares:
		res = cs.drill.SubmitMove(from, to, promo)
	case cs.drill != nil:
		res = cs.drill.SubmitSAN(text)
	case isSquares:
		res = cs.session.ProcessMove(from, to, promo)
	default:
		res = cs.session.ProcessSAN(text)
	}
	switch res.Status {
	case training.StatusIncorrect:
		cs.wrongTries++
	case training.StatusCorrect:
		cs.wrongTries = 0
	}
	drillDone := cs.drill != nil && res.Status == training.StatusCorrect && cs.drill.Done()
	var replies []tgbotapi.MessageConfig
	if drillDone {
		delete(b.sessions, chatID)
	} else {
		replies = b.moveReplies(chatID, cs, text, res)
	}
	b.mu.Unlock()

	if drillDone {
		result, err := b.trainer.FinishDrill(ctx, cs.drill)
		if err != nil {
			return err
		}
		return b.sendText(chatID, "✅ "+res.SAN+"\n\n🏁 Drill complete.\n"+formatSessionResult(result))
	}
	for _, msg := range replies {
		if err := b.sendMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

// moveReplies builds the answers to one move. b.mu must be held.
func (b *Bot) moveReplies(chatID int64, cs *chatSession, text string, res training.MoveResult) []tgbotapi.MessageConfig {
	switch res.Status {
	case training.StatusIllegal:
		return []tgbotapi.MessageConfig{tgbotapi.NewMessage(chatID, fmt.Sprintf("⚠️ %q is not a legal move here.", text))}
	case training.StatusIgnored:
		if cs.session != nil && cs.session.State() == training.StateAwaitingRating {
			return []tgbotapi.MessageConfig{ratingMessage(chatID, "", cs.session.Mistakes(), sr.QualityResponse(-1))}
		}
		return nil
	case training.StatusIncorrect:
		reply := fmt.Sprintf("❌ %s is not the repertoire move. Try again.", res.SAN)
		if cs.wrongTries >= b.config.HintAfterMistakes {
			var hint string
			if cs.drill != nil {
				hint, _ = cs.drill.Hint()
			} else {
				hint, _ = cs.session.Hint()
			}
			if hint != "" {
				reply += fmt.Sprintf("\n💡 The move is %s.", hint)
			}
		}
		return []tgbotapi.MessageConfig{tgbotapi.NewMessage(chatID, reply)}
	}

	reply := "✅ " + res.SAN
	if cs.drill != nil {
		return []tgbotapi.MessageConfig{drillPromptMessage(chatID, cs.drill, reply)}
	}
	if res.OpponentSAN != "" {
		reply += ", opponent plays " + res.OpponentSAN
	}
	if res.AwaitingRating {
		return []tgbotapi.MessageConfig{
			tgbotapi.NewMessage(chatID, reply),
			ratingMessage(chatID, "", res.Mistakes, res.SuggestedQuality),
		}
	}
	if res.LineChanged {
		reply += "\n\n➡️ Next line"
	}
	return []tgbotapi.MessageConfig{promptMessage(chatID, cs.session, reply)}
}

// ratingMessage asks for the 0-5 rating of the finished line. A suggested
// quality outside 0-5 is not highlighted.
func ratingMessage(chatID int64, prefix string, mistakes int, suggested sr.QualityResponse) tgbotapi.MessageConfig {
	text := fmt.Sprintf("Line finished with %d %s. How well did you know it?", mistakes, plural(mistakes, "mistake", "mistakes"))
	if prefix != "" {
		text = prefix + "\n" + text
	}
	var row []MenuButton
	for q := sr.QualityBlackout; q <= sr.QualityPerfect; q++ {
		label := strconv.Itoa(int(q))
		if q == suggested {
			label = "★" + label
		}
		row = append(row, MenuButton{Text: label, CallbackData: callbackRate + strconv.Itoa(int(q))})
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{row})
	return msg
}

// handleRate stores the rating of the finished line before the session moves
// on. When the store fails the line keeps waiting for its rating.
func (b *Bot) handleRate(ctx context.Context, chatID int64, quality int) error {
	b.mu.Lock()
	cs, ok := b.sessions[chatID]
	if !ok || cs.session == nil {
		b.mu.Unlock()
		return nil
	}
	preview := cs.session.PreviewRating(sr.QualityResponse(quality))
	mistakes := cs.session.Mistakes()
	b.mu.Unlock()

	if !preview.OK {
		return nil
	}
	if err := b.trainer.SaveRating(ctx, preview); err != nil {
		b.log.Error("failed to save rating", "chat", chatID, "line", preview.LineID, "error", err)
		return b.sendMessage(ratingMessage(chatID, "⚠️ Could not save the rating, try again.", mistakes, preview.Quality))
	}

	reply := fmt.Sprintf("Rated %d, next review in %d %s.", preview.Quality, preview.Stats.Interval, plural(preview.Stats.Interval, "day", "days"))
	if b.trainer.IsMastered(&preview.Stats) {
		reply += " ⭐ Mastered!"
	}

	b.mu.Lock()
	if b.sessions[chatID] != cs {
		// stopped or replaced while saving
		b.mu.Unlock()
		return nil
	}
	res := cs.session.Commit(preview)
	if !res.OK {
		b.mu.Unlock()
		return nil
	}
	var next tgbotapi.MessageConfig
	complete := res.State == training.StateComplete
	if complete {
		delete(b.sessions, chatID)
	} else {
		next = promptMessage(chatID, cs.session, reply)
	}
	b.mu.Unlock()

	if !complete {
		return b.sendMessage(next)
	}
	result, err := b.trainer.FinishSession(ctx, cs.session)
	if err != nil {
		return err
	}
	return b.sendText(chatID, reply+"\n\n"+formatSessionResult(result))
}

func (b *Bot) handleHint(chatID int64) error {
	b.mu.Lock()
	var hint string
	var ok bool
	if cs, found := b.sessions[chatID]; found {
		if cs.drill != nil {
			hint, ok = cs.drill.Hint()
		} else {
			hint, ok = cs.session.Hint()
		}
	}
	b.mu.Unlock()
	if !ok {
		return b.sendText(chatID, "Nothing to hint right now.")
	}
	return b.sendText(chatID, "💡 "+hint)
}

func (b *Bot) handleStop(ctx context.Context, chatID int64) error {
	b.mu.Lock()
	cs, ok := b.sessions[chatID]
	delete(b.sessions, chatID)
	b.mu.Unlock()
	if !ok {
		return b.sendText(chatID, "No training session.")
	}

	result, err := b.finish(ctx, cs)
	if err != nil {
		return err
	}
	return b.sendText(chatID, "⏹ Session stopped.\n\n"+formatSessionResult(result))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, args string) error {
	var reps []models.Repertoire
	if args != "" {
		rep, err := b.findRepertoire(ctx, chatID, args)
		if rep == nil {
			return err
		}
		reps = append(reps, *rep)
	} else {
		all, err := b.trainer.Repertoires(ctx)
		if err != nil {
			return err
		}
		reps = all
	}
	if len(reps) == 0 {
		return b.sendText(chatID, "No statistics yet.")
	}

	var text strings.Builder
	text.WriteString("📊 Statistics\n")
	for _, rep := range reps {
		sum, err := b.trainer.Summary(ctx, rep.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(&text, "\n%s (%s)\n", rep.Name, rep.Color)
		fmt.Fprintf(&text, "Lines drilled: %d, due: %d, mastered: %d\n", sum.TotalLines, sum.DueLines, sum.MasteredLines)
		fmt.Fprintf(&text, "Drills: %d, mistakes: %d\n", sum.TotalDrills, sum.TotalMistakes)
		if sum.TotalLines > 0 {
			fmt.Fprintf(&text, "Avg ease %.2f, avg interval %.1f days\n", sum.AvgEaseFactor, sum.AvgIntervalDays)
		}
	}
	return b.sendText(chatID, text.String())
}

func (b *Bot) handleDue(ctx context.Context, chatID int64) error {
	reps, err := b.trainer.Repertoires(ctx)
	if err != nil {
		return err
	}
	counts, err := b.trainer.DueCounts(ctx)
	if err != nil {
		return err
	}

	var text strings.Builder
	var buttons [][]MenuButton
	for _, rep := range reps {
		n := counts[rep.ID]
		if n == 0 {
			continue
		}
		due, err := b.trainer.DueLines(ctx, rep.ID, b.config.BatchSize)
		if err != nil {
			return err
		}
		fmt.Fprintf(&text, "%s: %d due\n", rep.Name, n)
		for _, st := range due {
			fmt.Fprintf(&text, "  • %.8s ease %.2f, %s\n", st.LineID, st.EaseFactor, dueLabel(st))
		}
		buttons = append(buttons, []MenuButton{{Text: "🎯 " + rep.Name, CallbackData: callbackTrain + rep.ID + ":due"}})
	}
	if text.Len() == 0 {
		return b.sendText(chatID, "🎉 Nothing is due.")
	}
	msg := tgbotapi.NewMessage(chatID, "⏰ Due lines\n\n"+text.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	return b.sendMessage(msg)
}

// parseTrainArgs reads "<repertoire> [/ chapter] [depth|width|bfs] [due] [max=N]"
func parseTrainArgs(args string, mode models.TrainingMode) (models.TrainingConfig, string, error) {
	cfg := models.TrainingConfig{Mode: mode}
	var ref []string
	for _, word := range strings.Fields(args) {
		switch lower := strings.ToLower(word); {
		case lower == "depth":
			cfg.Mode = models.DepthFirst
		case lower == "width":
			cfg.Mode = models.WidthFirst
		case lower == "bfs" || lower == "breadth":
			cfg.Mode = models.BreadthFirst
		case lower == "due":
			cfg.DueOnly = true
		case strings.HasPrefix(lower, "max="):
			n, err := strconv.Atoi(strings.TrimPrefix(lower, "max="))
			if err != nil || n < 1 {
				return cfg, "", fmt.Errorf("invalid depth limit %q", word)
			}
			cfg.MaxDepth = n
		default:
			ref = append(ref, word)
		}
	}
	if len(ref) == 0 {
		return cfg, "", errors.New("usage: /train <repertoire> [/ chapter] [depth|width|bfs] [due] [max=N]")
	}
	return cfg, strings.Join(ref, " "), nil
}

// splitRef splits "repertoire / chapter"
func splitRef(ref string) (string, string) {
	rep, chapter, _ := strings.Cut(ref, "/")
	return strings.TrimSpace(rep), strings.TrimSpace(chapter)
}

// parseSquares recognizes coordinate input such as e2e4 or e7e8q
func parseSquares(text string) (from, to, promo string, ok bool) {
	text = strings.ToLower(text)
	if len(text) != 4 && len(text) != 5 {
		return "", "", "", false
	}
	for i := 0; i < 4; i += 2 {
		if text[i] < 'a' || text[i] > 'h' || text[i+1] < '1' || text[i+1] > '8' {
			return "", "", "", false
		}
	}
	if len(text) == 5 && !strings.ContainsRune("qrbn", rune(text[4])) {
		return "", "", "", false
	}
	return text[:2], text[2:4], text[4:], true
}

func moveNumberPrefix(number int, isBlack bool) string {
	if isBlack {
		return strconv.Itoa(number) + "..."
	}
	return strconv.Itoa(number) + "."
}

// pathMoves numbers the moves played before a move with the given number
func pathMoves(sans []string, number int, isBlack bool) []lines.LineMove {
	ply := (number-1)*2 - len(sans)
	if isBlack {
		ply++
	}
	out := make([]lines.LineMove, len(sans))
	for i, san := range sans {
		abs := ply + i
		out[i] = lines.LineMove{SAN: san, MoveNumber: abs/2 + 1, IsBlack: abs%2 == 1}
	}
	return out
}

// formatLine renders moves with move numbers, e.g. "1. e4 c5 2. Nf3"
func formatLine(moves []lines.LineMove) string {
	var sb strings.Builder
	for i, mv := range moves {
		if i > 0 {
			sb.WriteString(" ")
		}
		if !mv.IsBlack {
			sb.WriteString(moveNumberPrefix(mv.MoveNumber, false))
			sb.WriteString(" ")
		} else if i == 0 {
			sb.WriteString(moveNumberPrefix(mv.MoveNumber, true))
			sb.WriteString(" ")
		}
		sb.WriteString(mv.SAN)
	}
	return sb.String()
}

func formatSessionResult(r *models.SessionResult) string {
	unit := "Lines"
	if r.Mode == models.BreadthFirst {
		unit = "Positions"
	}
	return fmt.Sprintf("%s completed: %d/%d\nMistakes: %d\nTime: %s",
		unit, r.LinesCompleted, r.LinesTotal, r.Mistakes, r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
}

func dueLabel(st models.LineStats) string {
	if st.Repetitions == 0 {
		return "to relearn"
	}
	return fmt.Sprintf("every %d %s", st.Interval, plural(st.Interval, "day", "days"))
}
