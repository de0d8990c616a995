package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/interaction-relay/internal/session"
	"github.com/jwebster45206/interaction-relay/pkg/interaction"
	"github.com/jwebster45206/interaction-relay/pkg/relay"
	"github.com/muesli/reflow/wordwrap"
)

const (
	PlaceHolderText = "Enter sends the selected call, /help for commands"
	triggerTimeout  = 5 * time.Second
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

// relaySession is the part of session.Session the console drives.
type relaySession interface {
	ListAll() []interaction.Summary
	Select(deviceID int64, interactionID string)
	TriggerSelected(ctx context.Context, dev session.Device) error
}

type entryKind int

const (
	entryRadioCall entryKind = iota
	entryStatus
	entryError
)

type chatEntry struct {
	kind     entryKind
	speaker  string
	text     string
	distance float64
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	session  relaySession
	station  *station
	notes    <-chan session.Notification
	items    []interaction.Summary
	selected int
	entries  []chatEntry

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int

	// Quit confirmation state
	showQuitModal bool
}

type radioCallMsg struct {
	note session.Notification
}

type triggerResultMsg struct {
	interactionID string
	err           error
}

type copiedMsg struct {
	interactionID string
	err           error
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(sess relaySession, st *station, notes <-chan session.Notification, rejections []interaction.Rejection) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(30, 20)

	m := ConsoleUI{
		session:      sess,
		station:      st,
		notes:        notes,
		items:        sess.ListAll(),
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
	}

	for _, r := range rejections {
		m.entries = append(m.entries, chatEntry{kind: entryError, text: r.String()})
	}
	if len(m.items) == 0 {
		m.entries = append(m.entries, chatEntry{kind: entryError, text: "No interactions loaded. Check MODS_DIR."})
	}
	m.selectCurrent()
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForRadioCall())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.6) - 4
		metaWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 4)

		m.ready = true
		m.writeChatContent()
		m.writeMetadata()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
				m.selectCurrent()
				m.writeMetadata()
			}
			return m, nil
		case tea.KeyDown:
			if m.selected < len(m.items)-1 {
				m.selected++
				m.selectCurrent()
				m.writeMetadata()
			}
			return m, nil
		case tea.KeyCtrlY:
			return m, m.copySelected()
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			switch {
			case strings.HasPrefix(input, "/"):
				return m.handleCommand(input)
			case input != "":
				m.addEntry(chatEntry{kind: entryError, text: "Unknown input. Type /help for commands."})
				return m, nil
			}
			return m, m.triggerSelected()
		}

	case radioCallMsg:
		m.addEntry(chatEntry{
			kind:     entryRadioCall,
			speaker:  msg.note.SenderName,
			text:     msg.note.Text,
			distance: msg.note.Distance,
		})
		return m, m.waitForRadioCall()

	case triggerResultMsg:
		if msg.err != nil {
			m.addEntry(chatEntry{kind: entryError, text: fmt.Sprintf("Could not send %s: %v", msg.interactionID, msg.err)})
		} else {
			m.addEntry(chatEntry{kind: entryStatus, text: "Sent " + msg.interactionID})
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.addEntry(chatEntry{kind: entryError, text: "Clipboard unavailable: " + msg.err.Error()})
		} else {
			m.addEntry(chatEntry{kind: entryStatus, text: "Copied " + msg.interactionID + " to clipboard"})
		}
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) current() (interaction.Summary, bool) {
	if m.selected < 0 || m.selected >= len(m.items) {
		return interaction.Summary{}, false
	}
	return m.items[m.selected], true
}

func (m ConsoleUI) selectCurrent() {
	if item, ok := m.current(); ok {
		m.session.Select(m.station.Device().ID, item.ID)
	}
}

func (m ConsoleUI) triggerSelected() tea.Cmd {
	item, ok := m.current()
	if !ok {
		return nil
	}
	dev := m.station.Device()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()
		return triggerResultMsg{interactionID: item.ID, err: m.session.TriggerSelected(ctx, dev)}
	}
}

func (m ConsoleUI) copySelected() tea.Cmd {
	item, ok := m.current()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		return copiedMsg{interactionID: item.ID, err: copyToClipboard(item.ID)}
	}
}

// waitForRadioCall delivers the next notification from the session.
func (m ConsoleUI) waitForRadioCall() tea.Cmd {
	notes := m.notes
	return func() tea.Msg {
		n, ok := <-notes
		if !ok {
			return nil
		}
		return radioCallMsg{note: n}
	}
}

func (m *ConsoleUI) addEntry(e chatEntry) {
	m.entries = append(m.entries, e)
	m.writeChatContent()
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/help":
		m.addEntry(chatEntry{kind: entryStatus, text: `Commands:
• ↑/↓ - Choose an interaction
• Enter - Send the selected interaction
• Ctrl+Y - Copy the interaction id
• /move x y z - Move your antenna
• /radius r - Set the broadcast radius
• /antenna on|off - Toggle broadcasting
• /clear - Clear the radio log
• Ctrl+C - Quit`})

	case "/move":
		if len(args) != 3 {
			m.addEntry(chatEntry{kind: entryError, text: "Usage: /move x y z"})
			break
		}
		var p [3]float64
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				m.addEntry(chatEntry{kind: entryError, text: "Invalid coordinate: " + a})
				return m, nil
			}
			p[i] = v
		}
		m.station.Move(relay.Vec3{X: p[0], Y: p[1], Z: p[2]})
		m.addEntry(chatEntry{kind: entryStatus, text: "Antenna moved"})

	case "/radius":
		r, err := strconv.ParseFloat(strings.Join(args, ""), 32)
		if len(args) != 1 || err != nil || r < 0 {
			m.addEntry(chatEntry{kind: entryError, text: "Usage: /radius r (r >= 0)"})
			break
		}
		m.station.SetRadius(float32(r))
		m.addEntry(chatEntry{kind: entryStatus, text: "Broadcast radius set"})

	case "/antenna":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			m.addEntry(chatEntry{kind: entryError, text: "Usage: /antenna on|off"})
			break
		}
		m.station.SetBroadcasting(args[0] == "on")
		m.addEntry(chatEntry{kind: entryStatus, text: "Antenna broadcasting " + args[0]})

	case "/clear":
		m.entries = nil
		m.writeChatContent()

	default:
		m.addEntry(chatEntry{kind: entryError, text: "Unknown command " + cmd})
	}

	m.writeMetadata()
	return m, nil
}

// writeChatContent renders the radio log for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 10 {
		chatWidth = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("RADIO") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, e := range m.entries {
		content.WriteString(formatEntry(e, chatWidth) + "\n\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func formatEntry(e chatEntry, width int) string {
	switch e.kind {
	case entryRadioCall:
		prefix := e.speaker + ": "
		text := wordwrap.String(e.text, width-len(prefix))
		return speakerStyle.Render(prefix) + text + "\n" + promptStyle.Render(fmt.Sprintf("%.0f m away", e.distance))
	case entryError:
		return errorStyle.Render(wordwrap.String(e.text, width))
	default:
		return statusStyle.Render(wordwrap.String(e.text, width))
	}
}

func (m *ConsoleUI) writeMetadata() {
	m.metaViewport.SetContent(m.metadataContent())
}

func (m ConsoleUI) metadataContent() string {
	width := m.metaViewport.Width
	if width < 10 {
		width = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("INTERACTIONS") + "\n\n")

	for i, item := range m.items {
		if i == m.selected {
			content.WriteString(selectedItemStyle.Render("▶ " + item.Label))
		} else {
			content.WriteString(itemStyle.Render("  " + item.Label))
		}
		content.WriteString("\n")
	}

	if item, ok := m.current(); ok {
		content.WriteString("\n" + separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
		content.WriteString(wordwrap.String(item.Tooltip, width) + "\n\n")
		content.WriteString("Toolbar:\n")
		content.WriteString(session.ActionCaption(item.Label) + "\n\n")
		content.WriteString(promptStyle.Render(item.ID) + "\n")
	}

	dev := m.station.Device()
	broadcasting := "off"
	if dev.Broadcasting {
		broadcasting = "on"
	}
	content.WriteString("\n" + titleStyle.Render("ANTENNA") + "\n\n")
	content.WriteString(fmt.Sprintf("Position:\n%s\n\n", dev.Position.String()))
	content.WriteString(fmt.Sprintf("Radius: %.0f m\n", dev.Radius))
	content.WriteString(fmt.Sprintf("Broadcasting: %s\n", broadcasting))

	return content.String()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case radioCallMsg:
		// Keep listening while the modal is open.
		m.entries = append(m.entries, chatEntry{
			kind:     entryRadioCall,
			speaker:  msg.note.SenderName,
			text:     msg.note.Text,
			distance: msg.note.Distance,
		})
		return m, m.waitForRadioCall()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.writeChatContent()
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave Session?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to stop listening for radio calls?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.6) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 0))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
