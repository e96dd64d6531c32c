package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the editor.
var (
	ColorRed     = lipgloss.Color("#FF0000")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
	ColorOrange  = lipgloss.Color("#FFA500")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	JobDoneStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	JobFailedStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	// Speaker names: mapped, still raw, and overridden per segment.
	SpeakerStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	UnresolvedSpeakerStyle = lipgloss.NewStyle().
				Foreground(ColorYellow)

	ManualSpeakerStyle = lipgloss.NewStyle().
				Foreground(ColorOrange).
				Italic(true)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	MarkStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	PromptStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	// Listing output of the sessions command.
	ListNameStyle = lipgloss.NewStyle().
			Bold(true)

	ListLinkStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Underline(true)
)
