package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WizardResult holds answers collected by the setup wizard. Empty fields
// were skipped.
type WizardResult struct {
	RPCURL        string
	RPCAlgorithm  string
	APIKey        string
	WalletAddress string
	WalletName    string
	Cancelled     bool
}

// --- Bubble Tea model ---

type wizardStep int

const (
	stepRPC wizardStep = iota
	stepAlgorithm
	stepAPIKey
	stepWallet
	stepWalletName
	stepDone
)

// DefaultWalletName is used when the wizard's name prompt is left empty.
const DefaultWalletName = "main"

type wizardModel struct {
	step      wizardStep
	result    WizardResult
	cursor    int
	choices   []string
	input     string
	inputMode bool
}

var rpcPresets = []string{
	"https://eth.llamarpc.com",
	"https://ethereum-rpc.publicnode.com",
	"https://cloudflare-eth.com",
	"https://rpc.ankr.com/eth",
}

var algorithms = []string{"fastest", "failover"}

func initialWizard() wizardModel {
	return wizardModel{
		step:    stepRPC,
		choices: rpcPresets,
	}
}

func (m wizardModel) Init() tea.Cmd { return nil }

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.result.Cancelled = true
			return m, tea.Quit

		case "up", "k":
			if !m.inputMode && m.cursor > 0 {
				m.cursor--
			} else if m.inputMode && msg.String() == "k" {
				m.input += "k"
			}

		case "down", "j":
			if !m.inputMode && m.cursor < len(m.choices)-1 {
				m.cursor++
			} else if m.inputMode && msg.String() == "j" {
				m.input += "j"
			}

		case "enter":
			if m.inputMode {
				m.applyInput()
			} else {
				m.applyChoice()
			}
			m.cursor = 0
			m.advance()

		case "backspace":
			if m.inputMode && len(m.input) > 0 {
				r := []rune(m.input)
				m.input = string(r[:len(r)-1])
			}

		default:
			if m.inputMode && msg.Type == tea.KeyRunes {
				m.input += string(msg.Runes)
			}
		}
	}

	if m.step == stepDone {
		return m, tea.Quit
	}
	return m, nil
}

func (m *wizardModel) advance() {
	m.step++
	// Without an address there is nothing to name.
	if m.step == stepWalletName && m.result.WalletAddress == "" {
		m.step++
	}
	switch m.step {
	case stepAlgorithm:
		m.choices = algorithms
	case stepAPIKey, stepWallet, stepWalletName:
		m.choices = nil
		m.inputMode = true
		m.input = ""
	default:
		m.inputMode = false
	}
}

func (m *wizardModel) applyChoice() {
	if m.cursor >= len(m.choices) {
		return
	}
	switch m.step {
	case stepRPC:
		m.result.RPCURL = m.choices[m.cursor]
	case stepAlgorithm:
		m.result.RPCAlgorithm = m.choices[m.cursor]
	}
}

func (m *wizardModel) applyInput() {
	// Sanitize: strip whitespace and accidental brackets from paste.
	v := strings.Trim(strings.TrimSpace(m.input), "[]")
	switch m.step {
	case stepAPIKey:
		m.result.APIKey = v
	case stepWallet:
		m.result.WalletAddress = v
	case stepWalletName:
		if v == "" {
			v = DefaultWalletName
		}
		m.result.WalletName = v
	}
}

func (m wizardModel) View() string {
	var s string

	switch m.step {
	case stepRPC:
		s = renderMenu("Select RPC endpoint:", m.choices, m.cursor)
	case stepAlgorithm:
		s = renderMenu("Select RPC algorithm:", m.choices, m.cursor)
	case stepAPIKey:
		s = renderInput("Etherscan API key (optional)",
			"Stored in the OS keychain. Press Enter to skip:", strings.Repeat("•", len([]rune(m.input))))
	case stepWallet:
		s = renderInput("Add a watch-only wallet (optional)",
			"Enter wallet address (or press Enter to skip):", StyleAddress.Render(m.input))
	case stepWalletName:
		s = renderInput("Name this wallet",
			fmt.Sprintf("Wallet name (Enter for %q):", DefaultWalletName), StyleValue.Render(m.input))
	case stepDone:
		s = Success("Setup complete!") + "\n"
	}

	return StyleBorder.Render(s) + "\n"
}

func renderInput(title, prompt, value string) string {
	s := StyleTitle.Render(title) + "\n\n"
	s += StyleMeta.Render(prompt) + "\n"
	s += "> " + value + "█\n"
	return s
}

func renderMenu(title string, items []string, cursor int) string {
	s := StyleTitle.Render(title) + "\n\n"
	for i, item := range items {
		icon := "  "
		style := lipgloss.NewStyle().Foreground(ColorValue)
		if i == cursor {
			icon = "▸ "
			style = StyleSelected
		}
		s += icon + style.Render(item) + "\n"
	}
	s += "\n" + StyleMeta.Render("↑/↓ navigate · Enter select · esc quit")
	return s
}

// RunWizard launches the interactive setup wizard and returns the result.
func RunWizard() (*WizardResult, error) {
	m := initialWizard()
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("wizard error: %w", err)
	}
	result := final.(wizardModel).result
	return &result, nil
}
