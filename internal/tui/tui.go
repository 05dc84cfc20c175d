package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"oracle-consensus/internal/relay"
)

func padToWidth(s string, width int) string {
	current := runewidth.StringWidth(s)
	if current >= width {
		return s
	}
	return s + strings.Repeat(" ", width-current)
}

func truncToWidth(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	truncated := ""
	for _, r := range []rune(s) {
		if runewidth.StringWidth(truncated+string(r)) > width-3 {
			break
		}
		truncated += string(r)
	}
	return truncated + "..."
}

func separatorLine(width int) string {
	if width < 2 {
		return strings.Repeat("─", width)
	}
	return "├" + strings.Repeat("─", width-2) + "┤"
}

func formatInfoLine(text string, width int) string {
	if width < 2 {
		return padToWidth(text, width)
	}
	return "│" + padToWidth(text, width-2) + "│"
}

// RoundInfo is one question's row in the rounds table.
type RoundInfo struct {
	QuestionID string
	Text       string
	State      string
	VotesFor   int
	VotesTotal int
}

// StatusMsg updates the relay header.
type StatusMsg struct {
	Status relay.StatusUpdate
}

// RoundMsg updates or inserts one row in the rounds table.
type RoundMsg struct {
	Round RoundInfo
}

// Model holds the TUI state
type Model struct {
	status relay.StatusUpdate
	rounds map[string]RoundInfo
	order  []string
	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel() Model {
	return Model{rounds: map[string]RoundInfo{}}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		return m, nil

	case RoundMsg:
		r := msg.Round
		if prev, ok := m.rounds[r.QuestionID]; ok {
			// keep the question text when a later update omits it
			if r.Text == "" {
				r.Text = prev.Text
			}
		} else {
			m.order = append(m.orderCopy(), r.QuestionID)
		}
		m.rounds[r.QuestionID] = r
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}

	return m, nil
}

// orderCopy keeps insertion order stable across the value-receiver Update.
func (m Model) orderCopy() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	table := m.renderRounds()
	return lipgloss.JoinVertical(lipgloss.Left, header, table)
}

// renderHeader renders the top relay status section
func (m Model) renderHeader() string {
	colWidth := (m.width - 4) / 2
	rightColWidth := m.width - colWidth - 4

	state := "paused"
	if m.status.IsRunning {
		state = "running"
	}

	instance := m.status.InstanceID
	if len(instance) > 12 {
		instance = instance[:12] + "..."
	}

	leftLines := []string{
		fmt.Sprintf("relay: %s", state),
		fmt.Sprintf("last seq: %d", m.status.LastSeq),
	}
	rightLines := []string{
		fmt.Sprintf("ai backlog: %d", m.status.BacklogSize),
		fmt.Sprintf("instance: %s", instance),
	}

	var rows []string
	for i := 0; i < len(leftLines); i++ {
		left := truncToWidth(leftLines[i], colWidth-2)
		right := truncToWidth(rightLines[i], rightColWidth-2)
		rows = append(rows, fmt.Sprintf("│ %s │ %s │",
			padToWidth(left, colWidth-2),
			padToWidth(right, rightColWidth-2)))
	}

	topBorder := fmt.Sprintf("┌%s┬%s┐",
		strings.Repeat("─", colWidth),
		strings.Repeat("─", rightColWidth))
	separator := fmt.Sprintf("├%s┴%s┤",
		strings.Repeat("─", colWidth),
		strings.Repeat("─", rightColWidth))

	return topBorder + "\n" + strings.Join(rows, "\n") + "\n" + separator
}

// renderRounds renders the voting rounds table, newest question first
func (m Model) renderRounds() string {
	availableHeight := m.height - 6
	if availableHeight <= 0 || len(m.order) == 0 {
		return "└" + strings.Repeat("─", max(m.width-2, 0)) + "┘"
	}

	maxRows := availableHeight - 3
	if maxRows <= 0 {
		return ""
	}

	ids := m.orderCopy()
	// newest first
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	if len(ids) > maxRows {
		ids = ids[:maxRows]
	}

	stateWidth := 10
	votesWidth := 9
	idWidth := 14
	textWidth := m.width - stateWidth - votesWidth - idWidth - 6
	if textWidth < 10 {
		textWidth = 10
	}

	var lines []string
	for _, id := range ids {
		r := m.rounds[id]
		votes := ""
		if r.VotesTotal > 0 {
			votes = fmt.Sprintf("%d/%d", r.VotesFor, r.VotesTotal)
		}
		cells := []string{
			padToWidth(truncToWidth(id, idWidth), idWidth),
			padToWidth(truncToWidth(r.Text, textWidth), textWidth),
			padToWidth(truncToWidth(r.State, stateWidth), stateWidth),
			padToWidth(votes, votesWidth),
		}
		line := "│" + strings.Join(cells, "│") + "│"
		lines = append(lines, padToBorder(line, m.width))
	}

	bottomBorder := "└" + strings.Repeat("─", m.width-2) + "┘"
	legend := formatInfoLine("Question, Text, State, Votes For/Total", m.width)

	return strings.Join(lines, "\n") + "\n" + separatorLine(m.width) + "\n" + legend + "\n" + bottomBorder
}

// padToBorder stretches or trims a bordered line to the terminal width,
// keeping the closing border character in place.
func padToBorder(line string, width int) string {
	lineWidth := runewidth.StringWidth(line)
	if lineWidth == width {
		return line
	}
	lineRunes := []rune(line)
	lastBorderIdx := len(lineRunes) - 1
	if lineWidth < width {
		return string(lineRunes[:lastBorderIdx]) + strings.Repeat(" ", width-lineWidth) + string(lineRunes[lastBorderIdx:])
	}
	truncated := ""
	widthSoFar := 0
	for i, r := range lineRunes {
		if i == lastBorderIdx {
			break
		}
		rw := runewidth.RuneWidth(r)
		if widthSoFar+rw > width-1 {
			break
		}
		truncated += string(r)
		widthSoFar += rw
	}
	return truncated + "│"
}

// Run starts the TUI program and pumps relay updates into it. It returns
// when the user quits or the update channel closes.
func Run(updateCh <-chan any) error {
	m := NewModel()
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for data := range updateCh {
			switch v := data.(type) {
			case relay.StatusUpdate:
				p.Send(StatusMsg{Status: v})
			case relay.RoundUpdate:
				p.Send(RoundMsg{Round: RoundInfo{
					QuestionID: v.QuestionID,
					Text:       v.Text,
					State:      v.State,
					VotesFor:   v.VotesFor,
					VotesTotal: v.VotesTotal,
				}})
			}
		}
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
