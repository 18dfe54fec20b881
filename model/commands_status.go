package model

import (
	tea "github.com/charmbracelet/bubbletea"

	"jarvis/config"
	"jarvis/monitor"
)

// WaitForStatus delivers the next status monitor update. The UI issues it
// again after each StatusMsg; a closed channel ends the loop.
func WaitForStatus(updates <-chan monitor.Status) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return StatusMsg{Status: s}
	}
}

// WaitForConfig delivers the next hot-reloaded configuration.
func WaitForConfig(updates <-chan *config.Config) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-updates
		if !ok {
			return nil
		}
		return ConfigReloadedMsg{Config: cfg}
	}
}
