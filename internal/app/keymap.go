package app

// Key binding constants used in handleKey.
const (
	KeyQuit        = "q"
	KeyQuitUpper   = "Q"
	KeyCtrlC       = "ctrl+c"
	KeySpace       = " "
	KeyTab         = "tab"
	KeyEsc         = "esc"
	KeyEnter       = "enter"
	KeyUp          = "up"
	KeyDown        = "down"
	KeyLeft        = "left"
	KeyRight       = "right"
	KeyNext        = "j"
	KeyPrev        = "k"
	KeyValuesLeft  = "h"
	KeyValuesRight = "l"
	KeySave        = "s"
	KeyDelete      = "x"
	KeyReview      = "m"
	KeyMarkStart   = "["
	KeyMarkEnd     = "]"
	KeyNextItem    = "n"
	KeyBackspace   = "backspace"
)
