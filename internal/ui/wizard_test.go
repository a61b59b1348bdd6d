package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func enter(m tea.Model) (tea.Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestWizardFullFlow(t *testing.T) {
	var m tea.Model = initialWizard()

	m, _ = m.Update(key("down")) // second RPC preset
	m, _ = enter(m)
	m, _ = m.Update(key("down")) // failover
	m, _ = enter(m)
	m = typeText(m, "KEYjk")
	m, _ = enter(m)
	m = typeText(m, "["+selfAddr+"]")
	m, _ = enter(m)
	m = typeText(m, "hot")
	m, cmd := enter(m)

	require.NotNil(t, cmd)
	res := m.(wizardModel).result
	assert.Equal(t, rpcPresets[1], res.RPCURL)
	assert.Equal(t, "failover", res.RPCAlgorithm)
	assert.Equal(t, "KEYjk", res.APIKey)
	assert.Equal(t, selfAddr, res.WalletAddress)
	assert.Equal(t, "hot", res.WalletName)
	assert.False(t, res.Cancelled)
	assert.Equal(t, stepDone, m.(wizardModel).step)
}

func TestWizardSkipsNameWithoutAddress(t *testing.T) {
	var m tea.Model = initialWizard()
	m, _ = enter(m) // rpc
	m, _ = enter(m) // algorithm
	m, _ = enter(m) // no api key
	m, cmd := enter(m)

	require.NotNil(t, cmd)
	res := m.(wizardModel).result
	assert.Equal(t, rpcPresets[0], res.RPCURL)
	assert.Equal(t, "fastest", res.RPCAlgorithm)
	assert.Empty(t, res.APIKey)
	assert.Empty(t, res.WalletAddress)
	assert.Empty(t, res.WalletName)
}

func TestWizardDefaultWalletName(t *testing.T) {
	var m tea.Model = initialWizard()
	m, _ = enter(m)
	m, _ = enter(m)
	m, _ = enter(m)
	m = typeText(m, selfAddr)
	m, _ = enter(m)
	assert.Contains(t, m.View(), "Name this wallet")
	m, _ = enter(m)
	assert.Equal(t, DefaultWalletName, m.(wizardModel).result.WalletName)
}

func TestWizardBackspaceAndMaskedKey(t *testing.T) {
	var m tea.Model = initialWizard()
	m, _ = enter(m)
	m, _ = enter(m)
	m = typeText(m, "abc")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "ab", m.(wizardModel).input)
	assert.NotContains(t, m.View(), "ab█")
}

func TestWizardEscCancels(t *testing.T) {
	var m tea.Model = initialWizard()
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.True(t, m.(wizardModel).result.Cancelled)
}
