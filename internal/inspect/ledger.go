// Package inspect holds the terminal views over local pipeline state.
package inspect

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobintake/internal/model"
)

// Lines per record in the list pane (subject + subtitle + blank separator).
const recordItemHeight = 3

const (
	paneList = iota
	paneDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle   = headerStyle.Foreground(lipgloss.Color("39"))
	inactiveHeaderStyle = headerStyle.Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(14)

	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dividerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type ledgerModel struct {
	records []model.IdempotencyRecord
	list    viewport.Model
	detail  viewport.Model
	cursor  int
	focus   int
	width   int
	height  int
	ready   bool
}

func newLedgerModel(records []model.IdempotencyRecord) ledgerModel {
	return ledgerModel{records: records}
}

func (m ledgerModel) Init() tea.Cmd {
	return nil
}

func (m ledgerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab", "left", "right":
			m.focus = 1 - m.focus
			return m, nil
		case "up", "k":
			if m.focus == paneList {
				m.moveCursor(-1)
				return m, nil
			}
		case "down", "j":
			if m.focus == paneList {
				m.moveCursor(1)
				return m, nil
			}
		case "o":
			if rec, ok := m.selected(); ok && len(rec.URLs) > 0 {
				openURL(rec.URLs[0])
			}
			return m, nil
		}

		var cmd tea.Cmd
		if m.focus == paneList {
			m.list, cmd = m.list.Update(msg)
		} else {
			m.detail, cmd = m.detail.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m ledgerModel) selected() (model.IdempotencyRecord, bool) {
	if len(m.records) == 0 {
		return model.IdempotencyRecord{}, false
	}
	return m.records[m.cursor], true
}

func (m *ledgerModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.records)-1, 0))
	m.recalcContent()

	top := m.cursor * recordItemHeight
	bottom := top + recordItemHeight - 1
	if top < m.list.YOffset {
		m.list.SetYOffset(top)
	} else if bottom >= m.list.YOffset+m.list.Height {
		m.list.SetYOffset(bottom - m.list.Height + 1)
	}
}

func (m *ledgerModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header, top and bottom border, status bar.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.list = viewport.New(paneWidth, paneHeight)
		m.detail = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.list.Width, m.list.Height = paneWidth, paneHeight
		m.detail.Width, m.detail.Height = paneWidth, paneHeight
	}
	m.recalcContent()
}

func (m *ledgerModel) recalcContent() {
	m.list.SetContent(renderRecords(m.records, m.cursor))
	if rec, ok := m.selected(); ok {
		m.detail.SetContent(renderRecord(rec, m.detail.Width))
	} else {
		m.detail.SetContent("  (nothing selected)")
	}
	m.detail.SetYOffset(0)
}

func (m ledgerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	paneWidth := m.list.Width

	listHeader := fmt.Sprintf(" Processed messages (%d)", len(m.records))
	detailHeader := " Record"

	listBorder, detailBorder := activeBorderStyle, inactiveBorderStyle
	listHeaderSt, detailHeaderSt := activeHeaderStyle, inactiveHeaderStyle
	if m.focus == paneDetail {
		listBorder, detailBorder = detailBorder, listBorder
		listHeaderSt, detailHeaderSt = detailHeaderSt, listHeaderSt
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(listHeaderSt.Render(listHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(detailHeaderSt.Render(detailHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		listBorder.Width(paneWidth).Render(m.list.View()),
		" ",
		detailBorder.Width(paneWidth).Render(m.detail.View()),
	)

	rejected := 0
	for _, r := range m.records {
		if len(r.URLs) == 0 {
			rejected++
		}
	}
	status := fmt.Sprintf(" %d records | %d without links    Tab switch  ↑/↓ move  o open link  q quit",
		len(m.records), rejected)

	return headerRow + "\n" + panes + "\n" + statusBarStyle.Width(m.width).Render(status)
}

func renderRecords(records []model.IdempotencyRecord, cursor int) string {
	if len(records) == 0 {
		return "  (no records)"
	}

	var b strings.Builder
	for i, r := range records {
		titleSt, subSt, prefix := titleStyle, subtitleStyle, "  "
		if i == cursor {
			titleSt, subSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		subject := r.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		b.WriteString(prefix + titleSt.Render(subject) + "\n")

		links := fmt.Sprintf("%d links", len(r.URLs))
		if len(r.URLs) == 0 {
			links = "no links"
		}
		b.WriteString(prefix + subSt.Render(fmt.Sprintf("%s · %s · %s", r.From, r.ProcessedAt.Local().Format("2006-01-02 15:04"), links)) + "\n")

		if i < len(records)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderRecord(r model.IdempotencyRecord, width int) string {
	var b strings.Builder
	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}

	field("Subject", r.Subject)
	field("From", r.From)
	field("Message ID", r.ItemID)
	field("Thread ID", r.ThreadID)
	if r.OrderKey > 0 {
		field("Received", time.UnixMilli(r.OrderKey).Local().Format("2006-01-02 15:04:05"))
	}
	field("Processed", r.ProcessedAt.Local().Format("2006-01-02 15:04:05"))

	if len(r.URLs) == 0 {
		b.WriteString("\n" + rejectedStyle.Render("No job links kept (promotional or no candidates).") + "\n")
		return b.String()
	}

	divider := func(label string) string {
		return dividerStyle.Render(label + strings.Repeat("─", max(width-len(label)-2, 3)))
	}
	b.WriteString("\n" + divider("── Links ") + "\n")
	for _, u := range r.URLs {
		b.WriteString("  • " + u + "\n")
	}
	if len(r.JobKeys) > 0 {
		b.WriteString("\n" + divider("── Job keys ") + "\n")
		for _, k := range r.JobKeys {
			b.WriteString("  • " + k + "\n")
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunLedger launches the split-pane ledger browser over records, newest first.
func RunLedger(records []model.IdempotencyRecord) error {
	p := tea.NewProgram(newLedgerModel(records), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
