package inspect

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/jobintake/internal/model"
)

func sampleRecords() []model.IdempotencyRecord {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []model.IdempotencyRecord{
		{
			ItemID:      "m2",
			ThreadID:    "t2",
			OrderKey:    at.UnixMilli(),
			Subject:     "3 new jobs for Go engineer",
			From:        "jobs-noreply@linkedin.com",
			URLs:        []string{"https://www.linkedin.com/jobs/view/111"},
			JobKeys:     []string{"linkedin:111"},
			ProcessedAt: at,
		},
		{
			ItemID:      "m1",
			Subject:     "Spring sale",
			From:        "deals@example.com",
			ProcessedAt: at.Add(-time.Hour),
		},
	}
}

func sized(t *testing.T, m ledgerModel) ledgerModel {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(ledgerModel)
}

func TestLedger_CursorMovesAndClamps(t *testing.T) {
	m := sized(t, newLedgerModel(sampleRecords()))

	down := tea.KeyMsg{Type: tea.KeyDown}
	for i := 0; i < 3; i++ {
		next, _ := m.Update(down)
		m = next.(ledgerModel)
	}
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want clamp at 1", m.cursor)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	m = next.(ledgerModel)
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}
}

func TestLedger_TabSwitchesFocus(t *testing.T) {
	m := sized(t, newLedgerModel(sampleRecords()))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(ledgerModel)
	if m.focus != paneDetail {
		t.Fatalf("focus = %d, want detail", m.focus)
	}

	// Arrow keys scroll the detail pane instead of moving the cursor.
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if next.(ledgerModel).cursor != 0 {
		t.Error("cursor moved while detail pane focused")
	}
}

func TestLedger_QuitKeys(t *testing.T) {
	m := sized(t, newLedgerModel(nil))
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestLedger_View(t *testing.T) {
	m := newLedgerModel(sampleRecords())
	if got := m.View(); got != "Initializing..." {
		t.Errorf("unsized view = %q", got)
	}
	view := sized(t, m).View()
	for _, want := range []string{"Processed messages (2)", "2 records | 1 without links"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRenderRecord(t *testing.T) {
	recs := sampleRecords()

	full := renderRecord(recs[0], 60)
	for _, want := range []string{"3 new jobs for Go engineer", "https://www.linkedin.com/jobs/view/111", "linkedin:111", "t2"} {
		if !strings.Contains(full, want) {
			t.Errorf("detail missing %q:\n%s", want, full)
		}
	}

	rejected := renderRecord(recs[1], 60)
	if !strings.Contains(rejected, "No job links kept") {
		t.Errorf("rejected detail = %q", rejected)
	}
}

func TestRenderRecords_Empty(t *testing.T) {
	if got := renderRecords(nil, 0); got != "  (no records)" {
		t.Errorf("got %q", got)
	}
}

func TestLoader_DeliversResult(t *testing.T) {
	m := newLoader("Loading", time.Second, func(context.Context) (int, error) { return 7, nil })

	msg := m.load()()
	next, cmd := m.Update(msg)
	final := next.(loaderModel[int])
	if !final.done || final.result != 7 || final.err != nil {
		t.Fatalf("loader state = %+v", final)
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	if final.View() != "" {
		t.Errorf("finished view = %q", final.View())
	}
}

func TestLoader_CtrlCCancels(t *testing.T) {
	m := newLoader("Loading", time.Second, func(context.Context) (int, error) { return 0, nil })
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if final := next.(loaderModel[int]); !errors.Is(final.err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", final.err)
	}
}
