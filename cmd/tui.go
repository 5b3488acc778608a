package cmd

import (
	"fmt"
	"strings"

	"github.com/suderio/delver/internal/crawl"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999"))

	stateBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 2)

	logBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#04B575")).
			Padding(0, 1)
)

// Vote shorthands accepted at the prompt alongside the raw emoji.
var voteSymbols = map[string]string{
	"u": crawl.ChoiceUp.Symbol(), "up": crawl.ChoiceUp.Symbol(),
	"d": crawl.ChoiceDown.Symbol(), "down": crawl.ChoiceDown.Symbol(),
	"l": crawl.ChoiceLeft.Symbol(), "left": crawl.ChoiceLeft.Symbol(),
	"r": crawl.ChoiceRight.Symbol(), "right": crawl.ChoiceRight.Symbol(),
	"x": crawl.StairsSymbol, "descend": crawl.StairsSymbol,
}

const playChannel = crawl.ChannelID(1)

// localMessenger plays the chat platform's role in the terminal: sent
// messages become transcript lines and reaction seeding records which
// message votes belong to.
type localMessenger struct {
	nextID  crawl.MessageID
	voteMsg crawl.MessageID
	lines   []string
}

func (m *localMessenger) SendMessage(channel crawl.ChannelID, text, imagePath string) (crawl.MessageID, error) {
	m.nextID++
	if imagePath != "" {
		text += fmt.Sprintf("\n[image: %s]", imagePath)
	}
	m.lines = append(m.lines, text)
	return m.nextID, nil
}

func (m *localMessenger) AddReactions(channel crawl.ChannelID, msg crawl.MessageID, symbols []string) error {
	m.voteMsg = msg
	return nil
}

type crawlModel struct {
	registry  *crawl.Registry
	msgr      *localMessenger
	players   []crawl.Player
	textInput textinput.Model
	viewport  viewport.Model
	history   []string
	historyIdx int
	logContent string
	consumed   int
	width      int
	height     int
}

func newCrawlModel(registry *crawl.Registry, msgr *localMessenger, players []crawl.Player) crawlModel {
	ti := textinput.New()
	ti.Placeholder = "say <player> | vote <player> <u/d/l/r/x> | all | quit"
	ti.Focus()
	ti.CharLimit = 128
	ti.Width = 60

	vp := viewport.New(0, 0)
	log := strings.Join(msgr.lines, "\n\n")
	vp.SetContent(log)

	return crawlModel{
		registry:   registry,
		msgr:       msgr,
		players:    players,
		textInput:  ti,
		viewport:   vp,
		historyIdx: -1,
		logContent: log,
		consumed:   len(msgr.lines),
	}
}

func (m *crawlModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *crawlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyUp:
			if len(m.history) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.history) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.history[m.historyIdx])
			}

		case tea.KeyDown:
			if len(m.history) > 0 && m.historyIdx != -1 {
				if m.historyIdx < len(m.history)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.history[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
			}

		case tea.KeyEnter:
			val := strings.TrimSpace(m.textInput.Value())
			if val == "exit" || val == "quit" {
				return m, tea.Quit
			}

			if val != "" {
				if len(m.history) == 0 || m.history[len(m.history)-1] != val {
					m.history = append(m.history, val)
				}
				m.historyIdx = -1
				m.textInput.SetValue("")

				m.logContent += fmt.Sprintf("\n\n> %s\n", val)
				if err := m.execute(val); err != nil {
					m.logContent += fmt.Sprintf("Error: %v", err)
				}
				m.refreshLog()
			}
		default:
			m.textInput, tiCmd = m.textInput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	titleH := lipgloss.Height(titleStyle.Render("Dummy"))
	stateH := lipgloss.Height(m.renderState())
	infoH := lipgloss.Height(infoStyle.Render("Dummy"))
	overhead := titleH + stateH + infoH + 8

	m.viewport.Height = m.height - overhead
	if m.viewport.Height < 4 {
		m.viewport.Height = 4
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

// execute runs one prompt command against the crawl registry, playing the
// named party member.
func (m *crawlModel) execute(input string) error {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "say":
		if len(fields) < 2 {
			return fmt.Errorf("usage: say <player>")
		}
		player, err := m.playerByName(fields[1])
		if err != nil {
			return err
		}
		return m.registry.OnMessage(playChannel, player)

	case "all":
		for _, p := range m.players {
			if err := m.registry.OnMessage(playChannel, p.ID); err != nil {
				return err
			}
		}
		return nil

	case "vote":
		if len(fields) < 3 {
			return fmt.Errorf("usage: vote <player> <u/d/l/r/x>")
		}
		player, err := m.playerByName(fields[1])
		if err != nil {
			return err
		}
		symbol, ok := voteSymbols[strings.ToLower(fields[2])]
		if !ok {
			symbol = fields[2] // allow pasting the emoji itself
		}
		return m.registry.OnReaction(playChannel, m.msgr.voteMsg, player, symbol)

	default:
		return fmt.Errorf("unknown command %q (say, vote, all, quit)", fields[0])
	}
}

func (m *crawlModel) playerByName(name string) (crawl.PlayerID, error) {
	for _, p := range m.players {
		if strings.EqualFold(p.Name, name) {
			return p.ID, nil
		}
	}
	return 0, fmt.Errorf("no party member named %q", name)
}

// refreshLog appends transcript lines the bot produced since the last
// command.
func (m *crawlModel) refreshLog() {
	for ; m.consumed < len(m.msgr.lines); m.consumed++ {
		m.logContent += m.msgr.lines[m.consumed] + "\n"
	}
	m.viewport.SetContent(m.logContent)
	m.viewport.GotoBottom()
}

func (m *crawlModel) renderState() string {
	stateView := "=== Crawl State ==="
	stateView += "\n\n"

	session, ok := m.registry.Lookup(playChannel)
	if !ok {
		stateView += "The crawl has ended. Type 'quit' to leave."
	} else {
		stateView += fmt.Sprintf("Phase: %s\n", session.Phase())
		stateView += fmt.Sprintf("Floor: %d\n", session.Floor())
		stateView += fmt.Sprintf("Room:  %s\n", session.Room())
	}

	stateView += "\n"
	var names []string
	for _, p := range m.players {
		names = append(names, p.Name)
	}
	stateView += "Party: " + strings.Join(names, ", ")

	return stateBoxStyle.Width(m.width - 4).Render(stateView)
}

func (m *crawlModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	title := titleStyle.Render(" Delver | local crawl ")
	stateBox := m.renderState()
	logBox := logBoxStyle.Width(m.width - 4).Render(m.viewport.View())

	mainView := lipgloss.JoinVertical(lipgloss.Left,
		title,
		stateBox,
		logBox,
		"\n",
		m.textInput.View(),
		infoStyle.Render("(esc to quit, up/down history)"),
	)

	return mainView
}

// RunCrawlTUI drives a local crawl in the terminal until the player quits.
func RunCrawlTUI(registry *crawl.Registry, msgr *localMessenger, players []crawl.Player) error {
	m := newCrawlModel(registry, msgr, players)
	p := tea.NewProgram(&m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
