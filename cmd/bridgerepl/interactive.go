package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	abi "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/bridge"
	"github.com/wippyai/hostbridge/emulator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	docStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	host     *emulator.Host
	exports  []bridge.Defun
	inputs   []textinput.Model
	result   string
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type loadedMsg struct {
	err  error
	host *emulator.Host
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel() *interactiveModel {
	exports := bridge.DefaultRegistry().Exports()
	sort.Slice(exports, func(i, j int) bool { return exports[i].Name() < exports[j].Name() })
	return &interactiveModel{
		exports: exports,
		state:   stateSelectFunc,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadHost
}

func (m *interactiveModel) loadHost() tea.Msg {
	h := emulator.New()
	if status := bridge.Init(h.Runtime(), "bridgerepl-demo"); status != bridge.InitOK {
		return loadedMsg{err: fmt.Errorf("module init failed with status %d", status)}
	}
	return loadedMsg{host: h}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.exports)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.host = msg.host

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	d := m.exports[m.selected]
	min, max := d.Arity()
	n := max
	if max == abi.Variadic {
		n = min + 1
	}
	m.inputs = make([]textinput.Model, n)
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = fmt.Sprintf("arg%d", i)
		if i >= min {
			ti.Placeholder += " (optional)"
		}
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.host == nil {
		return callResultMsg{err: fmt.Errorf("host not loaded")}
	}
	d := m.exports[m.selected]
	min, _ := d.Arity()

	var args []any
	for i, input := range m.inputs {
		v := input.Value()
		if v == "" && i >= min {
			continue
		}
		args = append(args, parseArg(v))
	}

	e := bridge.New(m.host.NewEnv())
	r := e.Call(d.Name(), args...)
	if r.HasError() {
		return callResultMsg{err: fmt.Errorf("%s", r.Err())}
	}
	return callResultMsg{result: formatValue(r.Value())}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.host == nil {
		return "Loading host..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Bridge REPL"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, d := range m.exports {
			line := funcStyle.Render(d.Name()) + aritySuffix(d)
			if d.Doc() != "" {
				line += "  " + docStyle.Render(d.Doc())
			}
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + d.Name() + aritySuffix(d)))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		d := m.exports[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(d.Name())))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		d := m.exports[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(d.Name())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive() error {
	p := tea.NewProgram(newInteractiveModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
