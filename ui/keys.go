package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Press     key.Binding
	Stop      key.Binding
	Faster    key.Binding
	Slower    key.Binding
	Louder    key.Binding
	Quieter   key.Binding
	NextChunk key.Binding
	PrevChunk key.Binding
	JumpChunk key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Press: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "play/stop"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Faster: key.NewBinding(
			key.WithKeys("right", "l", "+"),
			key.WithHelp("→", "faster"),
		),
		Slower: key.NewBinding(
			key.WithKeys("left", "h", "-"),
			key.WithHelp("←", "slower"),
		),
		Louder: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "louder"),
		),
		Quieter: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "quieter"),
		),
		NextChunk: key.NewBinding(
			key.WithKeys("tab", "n"),
			key.WithHelp("tab", "next chunk"),
		),
		PrevChunk: key.NewBinding(
			key.WithKeys("shift+tab", "p"),
			key.WithHelp("shift+tab", "prev chunk"),
		),
		JumpChunk: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "play chunk"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Press, k.Slower, k.Faster, k.Quieter, k.Louder, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Press, k.Stop, k.Quit},
		{k.Slower, k.Faster, k.Quieter, k.Louder},
		{k.NextChunk, k.PrevChunk, k.JumpChunk, k.Help},
	}
}
