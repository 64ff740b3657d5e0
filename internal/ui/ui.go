package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hanbin8269/spotify-vs/internal/models"
	"github.com/hanbin8269/spotify-vs/internal/tasks"
	"github.com/hanbin8269/spotify-vs/internal/tournament"
)

const cardWidth = 36

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SizeView ViewState = iota
	LoadingView
	MatchView
	ChampionView
	ErrorView
)

// Drawer draws the tracks for one bracket. [*tasks.Sampler] implements it.
type Drawer interface {
	Draw(ctx context.Context, count int, progress chan<- tasks.ProgressUpdate) ([]models.Track, error)
}

var _ Drawer = (*tasks.Sampler)(nil)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	drawer   Drawer
	engine   *tournament.Engine
	count    int
	gen      int
	width    int
	height   int
	sizeList list.Model
	spinner  spinner.Model
	bar      progress.Model
	updates  chan tasks.ProgressUpdate
	done     chan tracksFetchedMsg
	progress tasks.ProgressUpdate
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model. With count 0 the user first picks a bracket size.
func NewModel(ctx context.Context, drawer Drawer, count int) *Model {
	m := &Model{
		ctx:      ctx,
		view:     SizeView,
		drawer:   drawer,
		engine:   tournament.New(),
		count:    count,
		sizeList: newSizeList(40, 16),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
	if count > 0 {
		m.view = LoadingView
	}
	return m
}

// Init starts drawing tracks when the bracket size is already known.
func (m *Model) Init() tea.Cmd {
	if m.view == LoadingView {
		return tea.Batch(m.spinner.Tick, m.startDraw())
	}
	return nil
}

// ViewState returns the view being shown.
func (m *Model) ViewState() ViewState { return m.view }

// Engine exposes the bracket being played.
func (m *Model) Engine() *tournament.Engine { return m.engine }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sizeList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.view {
		case SizeView:
			return m.handleSizeKeys(msg)
		case MatchView:
			return m.handleMatchKeys(msg)
		case ChampionView, ErrorView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != LoadingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.progress = msg.update
		return m, m.waitForDraw()

	case tracksFetchedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.updates, m.done = nil, nil
		if msg.err == nil {
			msg.err = m.engine.Load(msg.tracks)
		}
		if msg.err != nil {
			m.err = msg.err
			m.view = ErrorView
			return m, nil
		}
		m.view = MatchView
		return m, nil
	}

	if m.view == SizeView {
		var cmd tea.Cmd
		m.sizeList, cmd = m.sizeList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleSizeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.enter) {
		if size, ok := m.sizeList.SelectedItem().(sizeItem); ok {
			m.count = int(size)
			return m, m.restart()
		}
	}

	var cmd tea.Cmd
	m.sizeList, cmd = m.sizeList.Update(msg)
	return m, cmd
}

func (m *Model) handleMatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.left):
		m.engine.PickIndex(0)
	case key.Matches(msg, m.keys.right):
		m.engine.PickIndex(1)
	case key.Matches(msg, m.keys.restart):
		return m, m.restart()
	}

	if m.engine.State() == tournament.Champion {
		m.view = ChampionView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.restart) {
		return m, m.restart()
	}
	return m, nil
}

// restart discards the bracket and draws a fresh set of tracks.
func (m *Model) restart() tea.Cmd {
	m.engine.Reset()
	m.err = nil
	m.progress = tasks.ProgressUpdate{}
	m.view = LoadingView
	return tea.Batch(m.spinner.Tick, m.startDraw())
}

func (m *Model) startDraw() tea.Cmd {
	m.gen++
	gen, count := m.gen, m.count
	updates := make(chan tasks.ProgressUpdate, 16)
	done := make(chan tracksFetchedMsg, 1)
	m.updates, m.done = updates, done

	go func() {
		tracks, err := m.drawer.Draw(m.ctx, count, updates)
		close(updates)
		done <- tracksFetchedMsg{gen: gen, tracks: tracks, err: err}
	}()

	return m.waitForDraw()
}

// waitForDraw relays progress updates until the draw finishes.
func (m *Model) waitForDraw() tea.Cmd {
	gen, updates, done := m.gen, m.updates, m.done
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		if update, ok := <-updates; ok {
			return progressUpdateMsg{gen: gen, update: update}
		}
		return <-done
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SizeView:
		return fmt.Sprintf("%s\n\n%s", m.sizeList.View(), m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.quit}))
	case LoadingView:
		return m.renderLoading()
	case MatchView:
		return m.renderMatch()
	case ChampionView:
		return m.renderChampion()
	case ErrorView:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" +
			m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	default:
		return ""
	}
}

func (m *Model) renderLoading() string {
	title := styles.title.Render(fmt.Sprintf("Drawing a round of %d from your liked songs", m.count))
	status := m.progress.Message
	if status == "" {
		status = "Contacting Spotify..."
	}

	percent := 0.0
	if m.progress.Total > 0 {
		percent = float64(m.progress.Step) / float64(m.progress.Total)
	}
	if m.progress.Phase == tasks.Shuffle {
		percent = 1
	}
	return fmt.Sprintf("%s\n%s %s\n\n%s", title, m.spinner.View(), status, m.bar.ViewAs(percent))
}

func (m *Model) renderMatch() string {
	p := m.engine.Progress()
	title := styles.title.Render(fmt.Sprintf("Round of %d · Match %d/%d", p.RoundSize, p.Match, p.TotalMatches))

	pair := m.engine.CurrentPair()
	cards := make([]string, 0, len(pair)*2)
	for i, t := range pair {
		if i > 0 {
			cards = append(cards, lipgloss.NewStyle().Padding(0, 2).Render(styles.warn.Render("VS")))
		}
		cards = append(cards, renderCard(fmt.Sprintf("[%d]", i+1), t))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.left, m.keys.right, m.keys.restart, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, lipgloss.JoinHorizontal(lipgloss.Center, cards...), helpView)
}

func (m *Model) renderChampion() string {
	champ, _ := m.engine.Champion()
	title := styles.ok.Render("🏆 Your champion")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, renderCard("", champ), helpView)
}

func renderCard(label string, t models.Track) string {
	var b strings.Builder
	if label != "" {
		b.WriteString(styles.help.Render(label) + "\n")
	}
	b.WriteString(styles.ok.Render(t.Name) + "\n")
	b.WriteString(styles.artist.Render(t.Artists))
	if t.PreviewURL != nil {
		b.WriteString("\n\n" + styles.link.Render("preview: "+*t.PreviewURL))
	}
	if t.ExternalURL != "" {
		b.WriteString("\n" + styles.link.Render(t.ExternalURL))
	}
	return styles.card.Render(b.String())
}
