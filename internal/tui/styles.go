package tui

import "github.com/charmbracelet/lipgloss"

// AppName is shown in the header of every screen
const AppName = "BEANHEALTH · REQUEST A DEMO"

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#2D6A4F") // Forest green
	SecondaryColor = lipgloss.Color("#52B788") // Mint
	ErrorColor     = lipgloss.Color("#E63946") // Red
	TextColor      = lipgloss.Color("#FFFFFF")
	SubtleColor    = lipgloss.Color("#626262")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true).
			Padding(1, 0).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	FocusedLabelStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(1, 0)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	// Toasts are transient; the confirmation box is a full screen.
	ErrorToastStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor)

	SuccessToastStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true).
				Padding(0, 2).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(SecondaryColor)

	ConfirmationTitleStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true)

	ConfirmationStyle = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(PrimaryColor).
				Padding(1, 4).
				MarginTop(1)
)
