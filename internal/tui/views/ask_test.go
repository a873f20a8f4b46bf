package views

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfqa-dev/pdfqa/internal/session"
	"github.com/pdfqa-dev/pdfqa/internal/tui"
)

func typeInto(m AskModel, s string) AskModel {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestAskModelIgnoresInputWhenDisabled(t *testing.T) {
	m := NewAskModel("", session.StateAwaitingUpload.Controls(), 80, 24)
	m = typeInto(m, "hello")
	assert.Empty(t, m.Question())
	assert.False(t, m.CanSubmit())
}

func TestAskModelSubmit(t *testing.T) {
	m := NewAskModel("", session.StateAwaitingUpload.Controls(), 80, 24)
	m, _ = m.Update(tui.ControlsMsg{Controls: session.StateReady.Controls()})
	m = typeInto(m, "  why?  ")
	require.True(t, m.CanSubmit())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SubmitQuestionMsg{Question: "why?"}, cmd())
}

func TestAskModelInFlightBlocksSubmit(t *testing.T) {
	m := NewAskModel("", session.StateReady.Controls(), 80, 24)
	m = typeInto(m, "q")
	m, _ = m.Update(tui.ControlsMsg{Controls: session.StateAskInFlight.Controls()})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "q", m.Question(), "question text survives the request")
}

func TestAskModelStatusLines(t *testing.T) {
	m := NewAskModel("http://127.0.0.1:5000", session.StateUninitialized.Controls(), 80, 24)
	assert.Contains(t, m.View(), "Checking backend...")

	m, _ = m.Update(tui.UploadPromptMsg{})
	assert.Contains(t, m.View(), "No document loaded")

	m, _ = m.Update(tui.DocumentMsg{Document: session.Document{Filename: "a.pdf", Chunks: 3, Vectors: 3}})
	assert.Contains(t, m.View(), "a.pdf loaded: 3 chunks, 3 vectors")
}

func TestAskModelErrorAndClear(t *testing.T) {
	m := NewAskModel("", session.StateReady.Controls(), 80, 24)
	m, _ = m.Update(tui.AnswerMsg{Answer: "forty-two"})
	m, _ = m.Update(tui.ErrorMsg{Text: "boom"})
	assert.Equal(t, "boom", m.ErrorText())
	assert.Contains(t, m.View(), "forty-two")

	m, _ = m.Update(tui.ClearResultsMsg{})
	assert.Empty(t, m.ErrorText())
	assert.Empty(t, m.Answer())
	assert.NotContains(t, m.View(), "forty-two")
}

func TestRenderResults(t *testing.T) {
	assert.Empty(t, RenderResults("", nil, 60))

	out := RenderResults("The answer.", []session.Citation{
		{Index: 1, Text: "first passage", Origin: "doc.pdf", Distance: "0.12"},
		{Index: 2, Text: "second passage", Origin: "Unknown Source", Distance: "N/A"},
	}, 60)

	assert.True(t, strings.HasPrefix(out, "The answer."))
	assert.Contains(t, out, "Sources (2 sources)")
	assert.Contains(t, out, "Source 1")
	assert.Contains(t, out, "doc.pdf · distance 0.12")
	assert.Contains(t, out, "Unknown Source · distance N/A")
	assert.Contains(t, out, "second passage")
}

func TestPromptModelSubmitAndCancel(t *testing.T) {
	p := NewPromptModel(tui.ModeSaveKey, "", 80, 24)
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("sk-secret")})
	assert.NotContains(t, p.View(), "sk-secret", "keys are masked")

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, PromptSubmitMsg{Mode: tui.ModeSaveKey, Value: "sk-secret"}, cmd())

	_, cmd = p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, PromptCancelMsg{}, cmd())
}

func TestPromptModelFileInfo(t *testing.T) {
	p := NewPromptModel(tui.ModeUpload, "", 80, 24)
	p, _ = p.Update(tui.FileInfoMsg{Info: session.FileInfo{Name: "a.pdf", Size: "1.0 KiB", Pages: 3}})
	assert.Contains(t, p.View(), "a.pdf (3 pages, 1.0 KiB)")
}

func TestAskModelResetInput(t *testing.T) {
	m := NewAskModel("", session.StateReady.Controls(), 80, 24)
	m = typeInto(m, "what is it")
	require.True(t, m.CanSubmit())

	m.ResetInput()
	assert.Empty(t, m.Question())
	assert.False(t, m.CanSubmit())

	m = typeInto(m, "again")
	assert.Equal(t, "again", m.Question(), "input keeps focus")
}

func TestAskModelClearResultsKeepsQuestion(t *testing.T) {
	m := NewAskModel("", session.StateReady.Controls(), 80, 24)
	m = typeInto(m, "what is it")
	m, _ = m.Update(tui.ClearResultsMsg{})
	assert.Equal(t, "what is it", m.Question())
}
