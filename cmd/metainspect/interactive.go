package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/meta-runtime/jsonmeta"
	"github.com/wippyai/meta-runtime/meta"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
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

type modelState int

const (
	stateSelectType modelState = iota
	stateSelectMethod
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err       error
	reg       *meta.Registry
	dec       *jsonmeta.Decoder
	instances map[*meta.Type]*meta.Value
	result    string
	types     []*meta.Type
	methods   []*meta.Method
	inputs    []textinput.Model
	typeIdx   int
	methodIdx int
	focusIdx  int
	state     modelState
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(reg *meta.Registry) *interactiveModel {
	m := &interactiveModel{
		reg:       reg,
		dec:       jsonmeta.NewDecoder(reg, jsonmeta.DefaultOptions()),
		instances: make(map[*meta.Type]*meta.Value),
		state:     stateSelectType,
	}
	for _, t := range reg.Types() {
		if !t.Builtin() {
			m.types = append(m.types, t)
		}
	}
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

// instance returns the object methods of t are called on, created on
// first use and kept across calls.
func (m *interactiveModel) instance(t *meta.Type) *meta.Value {
	if v, ok := m.instances[t]; ok {
		return v
	}
	v := t.New()
	m.instances[t] = &v
	return &v
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state != stateInputArgs {
				m.move(-1)
			}

		case "down", "j":
			if m.state != stateInputArgs {
				m.move(1)
			}

		case "enter":
			switch m.state {
			case stateSelectType:
				if len(m.types) > 0 {
					m.methods = allMethods(m.types[m.typeIdx])
					m.methodIdx = 0
					m.state = stateSelectMethod
				}

			case stateSelectMethod:
				if len(m.methods) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callMethod
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callMethod

			case stateShowResult:
				m.state = stateSelectMethod
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
			case stateSelectMethod:
				m.state = stateSelectType
			case stateInputArgs:
				m.state = stateSelectMethod
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.err = nil
			}
		}

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

func (m *interactiveModel) move(delta int) {
	switch m.state {
	case stateSelectType:
		m.typeIdx = clamp(m.typeIdx+delta, len(m.types))
	case stateSelectMethod:
		m.methodIdx = clamp(m.methodIdx+delta, len(m.methods))
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m *interactiveModel) prepareInputs() {
	method := m.methods[m.methodIdx]
	m.inputs = make([]textinput.Model, method.Arity())
	for i, p := range method.Params() {
		ti := textinput.New()
		ti.Placeholder = "JSON " + p.String()
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callMethod() tea.Msg {
	method := m.methods[m.methodIdx]
	obj := m.instance(m.types[m.typeIdx])

	texts := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		texts[i] = input.Value()
	}

	res, err := callMethod(m.dec, obj, method.Name(), texts)
	if err != nil {
		return callResultMsg{err: err}
	}

	var b strings.Builder
	if res.IsEmpty() {
		b.WriteString("void")
	} else {
		b.WriteString(res.String())
	}
	b.WriteString("\n\n")
	printObject(&b, obj, "")
	return callResultMsg{result: b.String()}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Meta Inspector"))
	b.WriteString(fmt.Sprintf(" %d types\n\n", len(m.types)))

	switch m.state {
	case stateSelectType:
		b.WriteString("Select a type:\n\n")
		for i, t := range m.types {
			line := fmt.Sprintf("%s (size %d, %d members, %d methods)",
				t.Name(), t.Size(), len(t.AllMembers()), len(allMethods(t)))
			if i == m.typeIdx {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateSelectMethod:
		t := m.types[m.typeIdx]
		var layout strings.Builder
		describeType(&layout, t)
		b.WriteString(typeStyle.Render(layout.String()))
		b.WriteString("\nSelect a method to call:\n\n")
		for i, method := range m.methods {
			line := method.Signature()
			if method.Owner() != t {
				line += " (from " + method.Owner().Name() + ")"
			}
			if i == m.methodIdx {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + nameStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • esc back • q quit"))

	case stateInputArgs:
		method := m.methods[m.methodIdx]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", nameStyle.Render(method.Signature())))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(method.ParamType(i).String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		method := m.methods[m.methodIdx]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", nameStyle.Render(method.Signature())))
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

// allMethods lists the methods callable on t, own methods first.
func allMethods(t *meta.Type) []*meta.Method {
	var out []*meta.Method
	seen := make(map[string]bool)
	var walk func(*meta.Type)
	walk = func(cur *meta.Type) {
		for _, method := range cur.Methods() {
			if !seen[method.Name()] {
				seen[method.Name()] = true
				out = append(out, method)
			}
		}
		for _, b := range cur.Bases() {
			walk(b.Type)
		}
	}
	walk(t)
	return out
}

func runInteractive(reg *meta.Registry) error {
	p := tea.NewProgram(newInteractiveModel(reg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
