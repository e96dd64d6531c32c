package app

// Key binding constants used in handleKey.
const (
	KeyQuit          = "q"
	KeyCtrlC         = "ctrl+c"
	KeyEsc           = "esc"
	KeyEnter         = "enter"
	KeyUp            = "up"
	KeyDown          = "down"
	KeyJ             = "j"
	KeyK             = "k"
	KeyUpload        = "u"
	KeyRenameGlobal  = "r"
	KeyRenameSegment = "R"
	KeyMarkStart     = "["
	KeyMarkEnd       = "]"
	KeyTrim          = "t"
	KeySave          = "s"
	KeyLoad          = "l"
	KeyMinutes       = "m"
	KeyToggleMinutes = "v"
	KeyExport        = "x"
	KeyExportMD      = "X"
)
