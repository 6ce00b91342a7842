package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/usecase"
)

type screen int

const (
	screenHome screen = iota
	screenSuites
	screenPreview
	screenEnvs
	screenPickSuite
	screenPickEnv
	screenRunning
	screenResults
	screenPreflight
)

type menuItem struct {
	title string
	desc  string
}

func (m menuItem) Title() string       { return m.title }
func (m menuItem) Description() string { return m.desc }
func (m menuItem) FilterValue() string { return m.title }

type model struct {
	theme Theme
	deps  Deps

	scr  screen
	menu list.Model
	spin spinner.Model

	workspaceFound bool
	workspaceRoot  string

	suites []domain.SuiteRef
	envs   []domain.EnvironmentRef
	cursor int

	preview string

	pickedSuite domain.SuiteRef
	pickedEnv   string

	running  bool
	runCh    chan runnerDoneMsg
	run      domain.SuiteResult
	runID    string
	resIdx   int
	showDet  bool
	pfCh     chan preflightDoneMsg
	pfEnv    string
	pfResult []usecase.ProbeResult

	toast string
}

func Run(deps Deps) error {
	m := newModel(deps)
	p := tea.NewProgram(wrapSafe(m, deps.Logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(deps Deps) model {
	t := DefaultTheme()

	items := []list.Item{
		menuItem{"Run", "Execute a check suite against a deployment"},
		menuItem{"Preflight", "Probe inbox, s3, db, mq, and api before a run"},
		menuItem{"Suites", "Browse check suites in the workspace"},
		menuItem{"Environments", "Browse environment files"},
		menuItem{"Init Workspace", "Scaffold suites/, env/, runs/, keys/ here"},
		menuItem{"Quit", "Exit legatester"},
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "legatester"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		theme: t,
		deps:  deps,
		scr:   screenHome,
		menu:  l,
		spin:  sp,
	}
}

func (m model) Init() tea.Cmd {
	return cmdRefreshWorkspace(m.deps)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w, h := msg.Width, msg.Height
		m.menu.SetSize(w-4, h-10)
		return m, nil

	case workspaceRefreshedMsg:
		m.workspaceFound = msg.found
		m.workspaceRoot = msg.root
		if msg.err != nil && m.deps.Debug {
			m.toast = userMessage(msg.err)
		}
		return m, nil

	case initWorkspaceDoneMsg:
		if msg.err != nil {
			m.toast = userMessage(msg.err)
			return m, nil
		}
		m.toast = "Workspace ready at " + msg.root
		return m, cmdRefreshWorkspace(m.deps)

	case suitesLoadedMsg:
		if msg.err != nil {
			m.toast = userMessage(msg.err)
			return m, nil
		}
		m.suites = msg.refs
		m.cursor = 0
		return m, nil

	case envsLoadedMsg:
		if msg.err != nil {
			m.toast = userMessage(msg.err)
			return m, nil
		}
		m.envs = msg.refs
		m.cursor = 0
		return m, nil

	case suitePreviewMsg:
		if msg.err != nil {
			m.toast = userMessage(msg.err)
			return m, nil
		}
		m.preview = msg.preview
		m.scr = screenPreview
		return m, nil

	case runnerDoneMsg:
		m.running = false
		m.run = msg.run
		m.runID = msg.id
		m.resIdx = 0
		m.showDet = false
		if msg.err != nil {
			m.toast = userMessage(msg.err)
		}
		m.scr = screenResults
		return m, nil

	case preflightDoneMsg:
		m.running = false
		m.pfEnv = msg.env
		m.pfResult = msg.results
		if msg.err != nil {
			m.toast = userMessage(msg.err)
			m.scr = screenHome
			return m, nil
		}
		m.scr = screenPreflight
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.scr == screenHome {
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		return m, tea.Quit

	case "q":
		if m.scr == screenHome {
			return m, tea.Quit
		}
		if !m.running {
			m.scr = screenHome
			m.toast = ""
			return m, nil
		}
		return m, nil

	case "esc", "b":
		if m.scr != screenHome && !m.running {
			m.scr = screenHome
			m.toast = ""
			m.showDet = false
			return m, nil
		}
		return m, nil
	}

	switch m.scr {
	case screenHome:
		if key == "enter" {
			return m.handleMenuSelect()
		}
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd

	case screenSuites:
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.suites)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.suites) > 0 {
				return m, cmdPreviewSuite(m.suites[m.cursor].Path)
			}
		}
		return m, nil

	case screenEnvs:
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.envs)-1 {
				m.cursor++
			}
		}
		return m, nil

	case screenPickSuite:
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.suites)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.suites) > 0 {
				m.pickedSuite = m.suites[m.cursor]
				m.cursor = 0
				m.scr = screenPickEnv
				return m, cmdLoadEnvironments(m.workspaceRoot)
			}
		}
		return m, nil

	case screenPickEnv:
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.envs)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.envs) > 0 {
				m.pickedEnv = m.envs[m.cursor].Name
				m.running = true
				m.scr = screenRunning

				var listen tea.Cmd
				m.runCh, listen = startRunAsync(
					m.workspaceRoot,
					m.pickedSuite.Path,
					m.pickedEnv,
					m.deps.Logger,
					m.deps.Debug,
				)
				return m, tea.Batch(m.spin.Tick, listen)
			}
		}
		return m, nil

	case screenResults:
		switch key {
		case "up", "k":
			if m.resIdx > 0 {
				m.resIdx--
			}
		case "down", "j":
			if m.resIdx < len(m.run.Results)-1 {
				m.resIdx++
			}
		case "enter":
			m.showDet = !m.showDet
		}
		return m, nil
	}

	return m, nil
}

func (m model) handleMenuSelect() (tea.Model, tea.Cmd) {
	it, ok := m.menu.SelectedItem().(menuItem)
	if !ok {
		return m, nil
	}

	switch it.title {
	case "Quit":
		return m, tea.Quit

	case "Init Workspace":
		root := m.workspaceRoot
		if root == "" {
			root = "."
		}
		return m, cmdInitWorkspaceHere(m.deps, root)

	case "Suites":
		if !m.workspaceFound {
			m.toast = "No workspace found"
			return m, nil
		}
		m.scr = screenSuites
		m.cursor = 0
		return m, cmdLoadSuites(m.workspaceRoot)

	case "Environments":
		if !m.workspaceFound {
			m.toast = "No workspace found"
			return m, nil
		}
		m.scr = screenEnvs
		m.cursor = 0
		return m, cmdLoadEnvironments(m.workspaceRoot)

	case "Run":
		if !m.workspaceFound {
			m.toast = "No workspace found"
			return m, nil
		}
		m.scr = screenPickSuite
		m.cursor = 0
		return m, cmdLoadSuites(m.workspaceRoot)

	case "Preflight":
		if !m.workspaceFound {
			m.toast = "No workspace found"
			return m, nil
		}
		m.running = true
		m.scr = screenRunning

		var listen tea.Cmd
		m.pfCh, listen = startPreflightAsync(m.workspaceRoot, "", m.deps.Logger)
		return m, tea.Batch(m.spin.Tick, listen)
	}

	return m, nil
}

func (m model) View() string {
	wrap := lipgloss.NewStyle().Padding(1, 2)
	header := m.theme.Title.Render("legatester") + "\n" +
		m.theme.Subtitle.Render("End-to-end checks for Federated EGA deployments") + "\n"

	var banner string
	if m.workspaceFound {
		banner = m.theme.Help.Render(fmt.Sprintf("Workspace: %s", m.workspaceRoot))
	} else {
		banner = m.theme.Card.Render(
			"⚠ No workspace found.\n\nSelect Init Workspace to scaffold one here.",
		)
	}

	var toast string
	if m.toast != "" {
		toast = "\n" + m.theme.Fail.Render(m.toast)
	}

	switch m.scr {
	case screenHome:
		help := m.theme.Help.Render("↑/↓ navigate • enter open • / search • q quit")
		return wrap.Render(header + "\n" + banner + toast + "\n\n" + m.theme.Card.Render(m.menu.View()) + "\n" + help)

	case screenSuites:
		return wrap.Render(header + "\n" + banner + toast + "\n\n" +
			m.theme.Card.Render(m.viewRefList("Suites", suiteNames(m.suites))) + "\n" +
			m.theme.Help.Render("↑/↓ navigate • enter preview • esc back"))

	case screenPreview:
		return wrap.Render(header + "\n" + banner + "\n\n" +
			m.theme.Card.Render(m.preview) + "\n" +
			m.theme.Help.Render("esc back"))

	case screenEnvs:
		return wrap.Render(header + "\n" + banner + toast + "\n\n" +
			m.theme.Card.Render(m.viewRefList("Environments", envNames(m.envs))) + "\n" +
			m.theme.Help.Render("↑/↓ navigate • esc back"))

	case screenPickSuite:
		return wrap.Render(header + "\n" + banner + toast + "\n\n" +
			m.theme.Card.Render(m.viewRefList("Pick a suite", suiteNames(m.suites))) + "\n" +
			m.theme.Help.Render("↑/↓ navigate • enter select • esc back"))

	case screenPickEnv:
		return wrap.Render(header + "\n" + banner + toast + "\n\n" +
			m.theme.Card.Render(m.viewRefList("Pick an environment", envNames(m.envs))) + "\n" +
			m.theme.Help.Render("↑/↓ navigate • enter run • esc back"))

	case screenRunning:
		return wrap.Render(header + "\n" + banner + "\n\n" +
			m.theme.Card.Render(m.spin.View()+" Running…"))

	case screenResults:
		return wrap.Render(header + "\n" + banner + toast + "\n\n" +
			m.theme.Card.Render(m.viewResults()) + "\n" +
			m.theme.Help.Render("↑/↓ navigate • enter details • esc back"))

	case screenPreflight:
		body := fmt.Sprintf("Preflight (%s)\n\n%s", m.pfEnv, renderProbeResults(m.pfResult))
		return wrap.Render(header + "\n" + banner + "\n\n" +
			m.theme.Card.Render(body) + "\n" +
			m.theme.Help.Render("esc back"))

	default:
		return wrap.Render(header + "\n" + "unknown state")
	}
}

func (m model) viewRefList(title string, names []string) string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(title))
	b.WriteString("\n\n")

	if len(names) == 0 {
		b.WriteString("(empty)")
		return b.String()
	}

	for i, name := range names {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		b.WriteString(marker)
		b.WriteString(name)
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) viewResults() string {
	var b strings.Builder

	title := m.run.SuiteName
	if title == "" {
		title = "Run"
	}
	b.WriteString(m.theme.Title.Render(title))
	if m.runID != "" {
		b.WriteString("  ")
		b.WriteString(m.theme.Help.Render("(" + m.runID + ")"))
	}
	b.WriteString("\n\n")

	fails := m.run.Failures()
	if fails == 0 {
		b.WriteString(m.theme.OK.Render(fmt.Sprintf("all %d checks passed", len(m.run.Results))))
	} else {
		b.WriteString(m.theme.Fail.Render(fmt.Sprintf("%d of %d checks failed", fails, len(m.run.Results))))
	}
	b.WriteString("\n\n")

	for i, cr := range m.run.Results {
		marker := "  "
		if i == m.resIdx {
			marker = "> "
		}

		status := m.theme.OK.Render("OK  ")
		if cr.Failed() {
			status = m.theme.Fail.Render("FAIL")
		}

		b.WriteString(fmt.Sprintf("%s%s  %s (%s) %dms\n", marker, status, clampString(cr.Name, 48), cr.Kind, cr.LatencyMS))
	}

	if m.showDet && m.resIdx < len(m.run.Results) {
		b.WriteString("\n")
		b.WriteString(renderCheckDetails(m.run.Results[m.resIdx]))
	}

	return b.String()
}

func suiteNames(refs []domain.SuiteRef) []string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return names
}

func envNames(refs []domain.EnvironmentRef) []string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return names
}
