package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"jarvis/config"
)

func (a AppView) keys() *config.KeyBindingsConfig {
	if a.dataModel.Config != nil && a.dataModel.Config.Keybindings != nil {
		return a.dataModel.Config.Keybindings
	}
	return config.DefaultKeybindings()
}

// isAction reports whether msg is the key bound to action.
func (a AppView) isAction(msg tea.KeyMsg, action string) bool {
	k := a.keys().GetActionKey(action)
	return k != "" && msg.String() == k
}

func (a AppView) formatKeyDisplay(action string) string {
	return a.keys().DisplayActionKey(action)
}
