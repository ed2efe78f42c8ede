package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
	"docqa/internal/service"
	"docqa/internal/textutil"
)

// Port is the TUI-facing subset of the pipeline service.
type Port interface {
	AnswerContext(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
	Ask(ctx context.Context, query string, k int) (service.Answer, error)
	HasGenerator() bool
}

// answerMsg carries the outcome of a background query.
type answerMsg struct {
	query  string
	answer string
	result domain.RetrievalResult
	err    error
}

// Model is the interactive question loop over one ingested document.
type Model struct {
	ctx       context.Context
	service   Port
	topK      int
	source    string
	summary   string
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	busy      bool
	answer    string
	results   []domain.SearchResult
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance for a document that is already indexed.
func New(ctx context.Context, svc Port, topK int, report service.IngestReport) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	status := fmt.Sprintf("Indexed %d chunks. Ask away.", report.Chunks)
	if !svc.HasGenerator() {
		status = fmt.Sprintf("Indexed %d chunks. No generator configured, showing retrieved context only.", report.Chunks)
	}
	return Model{
		ctx:      ctx,
		service:  svc,
		topK:     topK,
		source:   report.Source,
		summary:  report.Summary,
		input:    ti,
		viewport: vp,
		spinner:  sp,
		status:   status,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles keys, resizes, spinner ticks and finished queries.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// frames around both boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case answerMsg:
		m.busy = false
		m.lastQuery = msg.query
		m.answer = msg.answer
		m.results = msg.result.Results
		m.cursor = 0
		switch {
		case msg.err != nil && len(m.results) > 0:
			m.status = "Answer failed, showing context: " + msg.err.Error()
		case msg.err != nil:
			m.status = "Error: " + msg.err.Error()
		default:
			m.status = fmt.Sprintf("%d sources for %q (generation %d)", len(m.results), msg.query, msg.result.Generation)
		}
		m.viewport.SetContent(m.renderCurrentResult())
		m.viewport.GotoTop()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		// quit keys
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, tea.Batch(m.spinner.Tick, m.query(q))
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// query runs retrieval, and generation when available, off the UI loop.
func (m Model) query(q string) tea.Cmd {
	svc, ctx, k := m.service, m.ctx, m.topK
	return func() tea.Msg {
		if !svc.HasGenerator() {
			res, err := svc.AnswerContext(ctx, q, k)
			return answerMsg{query: q, result: res, err: err}
		}
		ans, err := svc.Ask(ctx, q, k)
		if err != nil && (errors.Is(err, domain.ErrGenerationFailed) || errors.Is(err, domain.ErrEmptyAnswer)) {
			return answerMsg{query: q, result: ans.Result, err: err}
		}
		return answerMsg{query: q, answer: ans.Text, result: ans.Result, err: err}
	}
}

// View renders header, answer or source, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "Document Q&A"
	if m.source != "" {
		title += " · " + m.source
	}
	header := lipgloss.NewStyle().Bold(true).Render(title)
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	st := m.status
	if m.busy {
		st = m.spinner.View() + " " + st
	}
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(st)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	var b strings.Builder
	if m.answer != "" {
		b.WriteString(answerStyle.Render(m.answer))
		b.WriteString("\n\n")
	}
	r := m.results[m.cursor]
	fmt.Fprintf(&b, "Source %d/%d  chunk #%d  score=%.3f\n\n", m.cursor+1, len(m.results), r.Chunk.Sequence, r.Score)
	b.WriteString(highlightBestSentence(r.Chunk.Text, m.lastQuery))
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func highlightBestSentence(text, query string) string {
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := textutil.TermSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range textutil.TermSet(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
