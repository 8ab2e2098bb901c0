// Package terminal is the interactive frontend: it shows the guest's canvas
// in a terminal and feeds keyboard, mouse and resize input to the host.
package terminal

import (
	"context"
	"image"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/internal/host"
)

// TickMsg is sent to trigger a guest frame.
type TickMsg time.Time

// tickCmd returns a Bubble Tea command that sends tick messages at the specified rate.
func tickCmd(fps int) tea.Cmd {
	interval := time.Second / time.Duration(fps)
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// cancelMsg reports that the model's context is done.
type cancelMsg struct{}

// waitForCancel returns a command that blocks until ctx is done.
func waitForCancel(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return cancelMsg{}
	}
}

// Framebuffer supplies the pixels to display.
type Framebuffer interface {
	Snapshot() *image.NRGBA
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Reverse(true)
	alertStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("9")).Padding(1, 2)
	alertHeading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Model is the Bubble Tea model around a running Host.
type Model struct {
	// ctx ends the session; frameCtx carries its values to guest calls
	// without the cancellation, which would close the guest module.
	ctx      context.Context
	frameCtx context.Context
	host   *host.Host
	fb     Framebuffer
	alerts *AlertBox
	keys   KeyMap
	fps    int
	logger *zap.Logger

	// Terminals report no key release: keys pressed before a frame are
	// released right after it, so the guest sees the release one frame later.
	pressed []string
	button  int

	width    int
	height   int
	err      error
	quitting bool
}

// NewModel creates a model for a started host. The host's canvas origin is
// moved below the title bar.
func NewModel(ctx context.Context, h *host.Host, fb Framebuffer, alerts *AlertBox, fps int, logger *zap.Logger) *Model {
	if fps <= 0 {
		fps = 60
	}
	h.SetCanvasOrigin(0, PixelsPerRow)
	return &Model{
		ctx:      ctx,
		frameCtx: context.WithoutCancel(ctx),
		host:     h,
		fb:       fb,
		alerts:   alerts,
		keys:     DefaultKeyMap(),
		fps:      fps,
		logger:   logger.With(zap.String("component", "terminal")),
		button:   -1,
	}
}

// Init starts the frame loop and quits once the context is done.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.fps), waitForCancel(m.ctx))
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.blocked() {
			return m, nil
		}
		rows := msg.Height - 1
		if rows < 0 {
			rows = 0
		}
		m.host.Input().Resize(msg.Width, rows*PixelsPerRow)
		return m, nil

	case TickMsg:
		return m.handleTick()

	case cancelMsg:
		m.logger.Info("Context done, closing guest")
		return m.quit()
	}

	return m, nil
}

func (m *Model) blocked() bool {
	return m.alerts.Message() != "" || m.err != nil
}

// handleKey processes keyboard input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}
	if m.blocked() {
		return m, nil
	}

	name, ok := domKeyName(msg)
	if !ok {
		return m, nil
	}
	m.host.Input().KeyDown(name)
	m.pressed = append(m.pressed, name)
	return m, nil
}

// handleMouse processes mouse input. Terminal cells are one pixel wide and
// PixelsPerRow pixels tall.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.blocked() {
		return
	}
	in := m.host.Input()
	x, y := float64(msg.X), float64(msg.Y*PixelsPerRow)

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		in.Wheel(0, -1)
		return
	case tea.MouseButtonWheelDown:
		in.Wheel(0, 1)
		return
	case tea.MouseButtonWheelLeft:
		in.Wheel(-1, 0)
		return
	case tea.MouseButtonWheelRight:
		in.Wheel(1, 0)
		return
	}

	switch msg.Action {
	case tea.MouseActionPress:
		m.button = mouseButtonIndex(msg.Button)
		in.MouseDown(m.button, x, y)
	case tea.MouseActionRelease:
		// Most terminals do not say which button was released.
		button := m.button
		if msg.Button != tea.MouseButtonNone {
			button = mouseButtonIndex(msg.Button)
		}
		in.MouseUp(button, x, y)
		m.button = -1
	case tea.MouseActionMotion:
		in.MouseMove(x, y)
	}
}

// handleTick runs one guest frame.
func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	if m.blocked() || m.quitting {
		return m, nil
	}

	if err := m.host.Frame(m.frameCtx); err != nil {
		m.logger.Error("Frame failed", zap.Error(err))
		m.err = err
		m.alerts.Alert(err.Error())
		return m, nil
	}

	for _, name := range m.pressed {
		m.host.Input().KeyUp(name)
	}
	m.pressed = m.pressed[:0]

	return m, tickCmd(m.fps)
}

// quit gives the guest a last frame with a CLOSE event and exits.
func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}
	m.quitting = true
	if m.err == nil && m.host.State() == host.StateRunning {
		m.host.Input().Close()
		if err := m.host.Frame(m.frameCtx); err != nil {
			m.logger.Warn("Final frame failed", zap.Error(err))
			m.err = err
		}
	}
	return m, tea.Quit
}

// Err returns the error that stopped the frame loop, if any.
func (m *Model) Err() error {
	return m.err
}

// View renders the current state to a string for display.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if msg := m.alerts.Message(); msg != "" {
		body := lipgloss.JoinVertical(lipgloss.Left,
			alertHeading.Render("Alert"),
			"",
			msg,
			"",
			hintStyle.Render(m.keys.Quit.Help().Key+" to "+m.keys.Quit.Help().Desc),
		)
		return alertStyle.Render(body)
	}

	title := m.host.Title()
	if m.width > 0 {
		title = titleStyle.Width(m.width).Render(title)
	} else {
		title = titleStyle.Render(title)
	}

	rows := 0
	if m.height > 1 {
		rows = m.height - 1
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, RenderFrame(m.fb.Snapshot(), m.width, rows))
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(m *Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)

	if _, err := p.Run(); err != nil {
		return err
	}
	return m.Err()
}
