package tui

// Keybinding constants
const (
	KeyQuit    = "q"
	KeyCtrlC   = "ctrl+c"
	KeyBuild   = "b"
	KeyRebuild = "r"
	KeyUp      = "up"
	KeyDown    = "down"
	KeyJ       = "j"
	KeyK       = "k"
)

// HelpView returns the scroll hint shown under the output pane.
func HelpView() string {
	return StyleHelp.Render("j/k: scroll output | b/r: rebuild | q: quit")
}
