package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/haivivi/emailbattle/pkg/battle"
)

// Theme defines the color scheme for console rendering.
type Theme struct {
	Primary    lipgloss.Color // Titles and rules
	Dim        lipgloss.Color // Headers and help text
	Evaluator  lipgloss.Color // Side A
	Respondent lipgloss.Color // Side B
}

// DefaultTheme is the default bright green theme with red/blue sides.
var DefaultTheme = Theme{
	Primary:    lipgloss.Color("#00ff9f"),
	Dim:        lipgloss.Color("#6e7681"),
	Evaluator:  lipgloss.Color("#ff5f5f"),
	Respondent: lipgloss.Color("#5fafff"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title      lipgloss.Style
	Label      lipgloss.Style
	Header     lipgloss.Style
	Evaluator  lipgloss.Style
	Respondent lipgloss.Style
	Card       lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:      lipgloss.NewStyle().Bold(true),
		Header:     lipgloss.NewStyle().Foreground(t.Dim),
		Evaluator:  lipgloss.NewStyle().Bold(true).Foreground(t.Evaluator),
		Respondent: lipgloss.NewStyle().Bold(true).Foreground(t.Respondent),
		Card:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// Party is one side as the renderer sees it.
type Party struct {
	Name    string
	Address string
}

// Renderer prints battle progress to a terminal.
type Renderer struct {
	W          io.Writer
	Styles     Styles
	Width      int
	Evaluator  Party
	Respondent Party

	count int
}

// NewRenderer returns a renderer with the default theme.
func NewRenderer(w io.Writer, evaluator, respondent Party) *Renderer {
	return &Renderer{
		W:          w,
		Styles:     NewStyles(DefaultTheme),
		Width:      80,
		Evaluator:  evaluator,
		Respondent: respondent,
	}
}

// Step prints the entries a step appended.
func (r *Renderer) Step(step battle.Step) {
	for _, e := range step.Update.Transcript {
		r.count++
		fmt.Fprintln(r.W, r.EmailCard(r.count, e))
	}
}

// EmailCard renders one transcript entry as a bordered card.
func (r *Renderer) EmailCard(index int, e battle.Entry) string {
	side, style := r.side(e.Sender)
	title := style.Render(fmt.Sprintf("● Email %d: %s", index, strings.ToUpper(side.Name)))

	header := r.Styles.Header.Render(strings.Join([]string{
		"From: " + e.Sender,
		"To: " + e.Recipient,
		"Subject: " + e.Subject,
		"Date: " + e.Timestamp,
	}, "\n"))

	body := e.Body
	if strings.TrimSpace(body) == "" {
		body = r.Styles.Header.Render("(empty)")
	}

	card := r.Styles.Card.BorderForeground(style.GetForeground())
	if r.Width > 0 {
		card = card.Width(r.Width - 2)
	}
	return card.Render(title + "\n\n" + header + "\n\n" + body)
}

func (r *Renderer) side(sender string) (Party, lipgloss.Style) {
	if sender == r.Respondent.Address {
		return r.Respondent, r.Styles.Respondent
	}
	if sender == r.Evaluator.Address {
		return r.Evaluator, r.Styles.Evaluator
	}
	return Party{Name: sender}, r.Styles.Label
}

var outcomeSymbols = map[battle.Outcome]string{
	battle.OutcomeTerminated: "🔥",
	battle.OutcomeRetained:   "✅",
	battle.OutcomePass:       "✅",
	battle.OutcomeMaxRounds:  "⏱",
	battle.OutcomeRefusal:    "🚫",
}

// ResultBanner renders the final outcome of a battle.
func (r *Renderer) ResultBanner(res *battle.Result) string {
	rule := r.Styles.Title.Render(strings.Repeat("=", 60))
	lines := []string{rule, r.Styles.Title.Render("🏆 BATTLE RESULT"), rule, ""}

	row := func(label, value string) {
		lines = append(lines, r.Styles.Label.Render(fmt.Sprintf("%-18s", label+":"))+value)
	}

	if res.Error != "" {
		row("Outcome", "❌ ERROR")
		row("Error", res.Error)
	} else {
		sym, ok := outcomeSymbols[res.Outcome]
		if !ok {
			sym = "❓"
		}
		row("Outcome", sym+" "+string(res.Outcome))
		row("Follow-up Rounds", fmt.Sprintf("%d / %d", res.Rounds, res.MaxRounds))
		row("Winner", r.winner(res))
	}
	lines = append(lines, "")
	row(res.Evaluator.Name+"'s Model", modelName(res.Evaluator))
	row(res.Respondent.Name+"'s Model", modelName(res.Respondent))
	row("Emails", fmt.Sprintf("%d", len(res.Transcript)))
	if d := res.Duration(); d > 0 {
		row("Duration", FormatDuration(d))
	}
	lines = append(lines, rule)
	return strings.Join(lines, "\n")
}

// Result prints the result banner.
func (r *Renderer) Result(res *battle.Result) {
	fmt.Fprintln(r.W, r.ResultBanner(res))
}

func (r *Renderer) winner(res *battle.Result) string {
	switch res.Winner {
	case battle.WinnerA:
		return r.Styles.Evaluator.Render("🔴 " + strings.ToUpper(res.WinnerName()) + " WINS")
	case battle.WinnerB:
		return r.Styles.Respondent.Render("🔵 " + strings.ToUpper(res.WinnerName()) + " WINS")
	default:
		return "🤝 DRAW"
	}
}

func modelName(p battle.Persona) string {
	if p.Model == "" {
		return "-"
	}
	return p.Model
}
