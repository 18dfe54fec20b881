package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetActionKey(t *testing.T) {
	kb := DefaultKeybindings()

	tests := []struct {
		action string
		want   string
	}{
		{"help", "alt+h"},
		{"record", "alt+r"},
		{"cancel_request", "alt+x"},
		{"about", "alt+A"},
		{"contact", "alt+C"},
		{"page_down", "alt+pgdown"},
		{"search_down", "down"},
		{"does_not_exist", ""},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			if got := kb.GetActionKey(tt.action); got != tt.want {
				t.Errorf("GetActionKey(%q) = %q, want %q", tt.action, got, tt.want)
			}
		})
	}
}

func TestGetActionKey_Override(t *testing.T) {
	kb := DefaultKeybindings()
	kb.Actions = map[string]string{"record": "ctrl+r"}

	if got := kb.GetActionKey("record"); got != "ctrl+r" {
		t.Errorf("override ignored: got %q", got)
	}
	if got := kb.GetActionKey("help"); got != "alt+h" {
		t.Errorf("non-overridden action changed: got %q", got)
	}
}

func TestSecondaryKey_CustomModifier(t *testing.T) {
	kb := &KeyBindingsConfig{Modifiers: ModifierConfig{Primary: "ctrl", Secondary: "ctrl+shift"}}

	if got := kb.SecondaryKey("a"); got != "ctrl+A" {
		t.Errorf("SecondaryKey(a) = %q", got)
	}
	if got := kb.SecondaryKey("f1"); got != "ctrl+shift+f1" {
		t.Errorf("SecondaryKey(f1) = %q", got)
	}
}

func TestDisplayActionKey(t *testing.T) {
	kb := DefaultKeybindings()

	if got := kb.DisplayActionKey("about"); got != "Alt+Shift+A" {
		t.Errorf("DisplayActionKey(about) = %q", got)
	}
	if got := kb.DisplayActionKey("quit"); got != "Alt+Q" {
		t.Errorf("DisplayActionKey(quit) = %q", got)
	}
}

func TestValidate(t *testing.T) {
	ok, msg := DefaultKeybindings().Validate()
	if !ok || msg != "" {
		t.Errorf("defaults should be valid without warning, got %v %q", ok, msg)
	}

	ok, _ = (&KeyBindingsConfig{Modifiers: ModifierConfig{Primary: "shift", Secondary: "alt+shift"}}).Validate()
	if ok {
		t.Error("shift alone should be rejected")
	}

	ok, msg = (&KeyBindingsConfig{Modifiers: ModifierConfig{Primary: "ctrl", Secondary: "ctrl+shift"}}).Validate()
	if !ok || msg == "" {
		t.Error("ctrl should be allowed with a warning")
	}
}

func TestLoadKeybindings_FillsMissingModifiers(t *testing.T) {
	dir := t.TempDir()
	content := "[actions]\nquit = \"ctrl+q\"\n"
	if err := os.WriteFile(filepath.Join(dir, "keybindings.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	kb, err := LoadKeybindings(dir)
	if err != nil {
		t.Fatalf("LoadKeybindings: %v", err)
	}
	if kb.Primary() != "alt" || kb.Secondary() != "alt+shift" {
		t.Errorf("modifiers not defaulted: %+v", kb.Modifiers)
	}
	if kb.GetActionKey("quit") != "ctrl+q" {
		t.Errorf("override not loaded")
	}
}

func TestLoadKeybindings_RejectsShiftModifier(t *testing.T) {
	dir := t.TempDir()
	content := "[modifiers]\nprimary = \"shift\"\nsecondary = \"alt+shift\"\n"
	if err := os.WriteFile(filepath.Join(dir, "keybindings.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	kb, err := LoadKeybindings(dir)
	if err != nil {
		t.Fatalf("LoadKeybindings: %v", err)
	}
	if kb.Primary() != "alt" || kb.GetActionKey("help") != "alt+h" {
		t.Errorf("shift modifier should fall back to defaults, got %+v", kb.Modifiers)
	}
}

func TestLoadKeybindings_KeepsCtrlModifier(t *testing.T) {
	dir := t.TempDir()
	content := "[modifiers]\nprimary = \"ctrl\"\nsecondary = \"ctrl+shift\"\n"
	if err := os.WriteFile(filepath.Join(dir, "keybindings.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	kb, err := LoadKeybindings(dir)
	if err != nil {
		t.Fatalf("LoadKeybindings: %v", err)
	}
	if kb.GetActionKey("help") != "ctrl+h" {
		t.Errorf("ctrl modifier should be kept, got %q", kb.GetActionKey("help"))
	}
}
