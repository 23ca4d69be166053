package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/surendar1863/student-edge-program/internal/app"
	"github.com/surendar1863/student-edge-program/internal/models"
	"github.com/surendar1863/student-edge-program/internal/scoring"
)

const (
	studentHelp = `Available commands:
/report <roll> - Show section scores for a roll number
/help - Show this message`

	evaluatorHelp = `Available commands:
/mark <roll> <question> <marks> - Record a mark
/marks <roll> <question>=<marks> ... - Record several marks at once
/report <roll> - Show section scores for a roll number
/help - Show this message

Examples:
/mark 24bbab110 Q3 1
/marks 24bbab110 Q1=1 Q2=0 Q3=0.5
/report 24bbab110`
)

type commandHandler func(context.Context, *tgbotapi.Message) error

func (b *Bot) routeStudentCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"start":  b.handleStart,
		"help":   b.handleHelp,
		"report": b.handleReport,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) routeEvaluatorCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"mark":  b.handleMark,
		"marks": b.handleMarks,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !msg.IsCommand() {
		b.sendHelp(msg.Chat.ID)
		return
	}

	cmd := msg.Command()

	if handler, ok := b.routeStudentCommands(cmd); ok {
		if err := handler(ctx, msg); err != nil {
			logger.Error.Printf("Command error: %v", err)
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
		}
		return
	}

	if b.evaluators[msg.From.ID] {
		if handler, ok := b.routeEvaluatorCommands(cmd); ok {
			if err := handler(ctx, msg); err != nil {
				logger.Error.Printf("Command error: %v", err)
				b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
			}
		}
		return
	}

	b.sendHelp(msg.Chat.ID)
}

func (b *Bot) handleHelp(_ context.Context, msg *tgbotapi.Message) error {
	var text string
	if b.evaluators[msg.From.ID] {
		text = evaluatorHelp
	} else {
		text = studentHelp
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) sendHelp(chatID int64) error {
	return b.sendMessage(chatID, "Use commands to talk to the bot. Send /help for the list.")
}

func (b *Bot) handleStart(_ context.Context, msg *tgbotapi.Message) error {
	text := "Hi! I keep track of assessment scores.\n\n"
	if b.evaluators[msg.From.ID] {
		text += "You are an evaluator. Use /help for the list of commands."
	} else {
		text += "Use /report <roll> to see your scores."
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func evaluatorName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return "tg:" + user.UserName
	}
	return fmt.Sprintf("tg:%d", user.ID)
}

func (b *Bot) handleMark(ctx context.Context, msg *tgbotapi.Message) error {
	roll, questionID, marks, err := parseMarkArgs(strings.Fields(msg.CommandArguments()))
	if err != nil {
		return err
	}

	err = b.service.RecordMark(ctx, app.MarkInput{
		Roll:       roll,
		QuestionID: questionID,
		Marks:      marks,
		Evaluator:  evaluatorName(msg.From),
	})
	if err != nil {
		return fmt.Errorf("failed to save mark: %w", err)
	}

	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ %s / %s: %v", roll, questionID, marks))
}

func (b *Bot) handleMarks(ctx context.Context, msg *tgbotapi.Message) error {
	roll, marks, err := parseBatchArgs(strings.Fields(msg.CommandArguments()))
	if err != nil {
		return err
	}

	result, err := b.service.RecordMarks(ctx, roll, evaluatorName(msg.From), marks)
	var berr *models.BatchError
	if err != nil && !errors.As(err, &berr) {
		return fmt.Errorf("failed to save marks: %w", err)
	}

	return b.sendMessage(msg.Chat.ID, formatBatchResult(result))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return fmt.Errorf("usage: /report <roll>")
	}

	report, err := b.service.Report(ctx, args[0], b.service.Config.ScoringOptions())
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	return b.sendMessage(msg.Chat.ID, formatReport(report))
}

func parseMarkArgs(args []string) (roll, questionID string, marks float64, err error) {
	if len(args) != 3 {
		return "", "", 0, fmt.Errorf("usage: /mark <roll> <question> <marks>")
	}
	marks, err = strconv.ParseFloat(args[2], 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid marks %q", args[2])
	}
	return args[0], args[1], marks, nil
}

func parseBatchArgs(args []string) (string, map[string]float64, error) {
	if len(args) < 2 {
		return "", nil, fmt.Errorf("usage: /marks <roll> <question>=<marks> ...")
	}

	marks := make(map[string]float64, len(args)-1)
	for _, arg := range args[1:] {
		id, raw, ok := strings.Cut(arg, "=")
		if !ok || id == "" {
			return "", nil, fmt.Errorf("expected <question>=<marks>, got %q", arg)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid marks for %s: %q", id, raw)
		}
		marks[id] = v
	}
	return args[0], marks, nil
}

func formatBatchResult(result *app.BatchResult) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("✅ Saved %d mark(s)\n", len(result.Saved)))
	if len(result.Failed) == 0 {
		return msg.String()
	}

	keys := make([]string, 0, len(result.Failed))
	for k := range result.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msg.WriteString(fmt.Sprintf("❌ Failed %d, send them again:\n", len(keys)))
	for _, k := range keys {
		msg.WriteString(fmt.Sprintf("%s: %s\n", k, result.Failed[k]))
	}
	return msg.String()
}

func formatReport(report *scoring.Report) string {
	if len(report.Sections) == 0 {
		return fmt.Sprintf("No submissions found for %s", report.Roll)
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("📊 %s %s\n\n", report.Roll, report.Name))
	for _, s := range report.Sections {
		msg.WriteString(fmt.Sprintf("📝 %s: %s", s.Section, s))
		if s.Ungraded > 0 {
			msg.WriteString(fmt.Sprintf(" (%d not graded yet)", s.Ungraded))
		}
		if s.LikertAverage != nil {
			msg.WriteString(fmt.Sprintf(" avg rating %.2f", *s.LikertAverage))
		}
		msg.WriteString("\n")
	}
	msg.WriteString(fmt.Sprintf("\nTotal: %s", report))
	return msg.String()
}

func (b *Bot) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}
