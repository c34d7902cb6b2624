package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorSuccess   = lipgloss.Color("#00D26A")
	ColorWarning   = lipgloss.Color("#FFB800")
	ColorError     = lipgloss.Color("#FF4444")
	ColorInfo      = lipgloss.Color("#4CC9F0")
	ColorAddress   = lipgloss.Color("#00B4D8") // addresses and hashes
	ColorValue     = lipgloss.Color("#FFFFFF")
	ColorMeta      = lipgloss.Color("#6C6C6C")
	ColorBorder    = lipgloss.Color("#1E3A5F")
	ColorNetwork   = lipgloss.Color("#9B5DE5")
	ColorHighlight = lipgloss.Color("#F15BB5")
)

var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleNetwork = lipgloss.NewStyle().Foreground(ColorNetwork).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorNetwork).
			Bold(true).
			MarginBottom(1)

	StyleHeader = lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
)

func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }
func Warn(msg string) string    { return StyleWarning.Render("⚠ " + msg) }
func Err(msg string) string     { return StyleError.Render("✗ " + msg) }
func Info(msg string) string    { return StyleInfo.Render("ℹ " + msg) }
func Addr(a string) string      { return StyleAddress.Render(a) }
func Val(v string) string       { return StyleValue.Render(v) }
func Meta(m string) string      { return StyleMeta.Render(m) }
func Network(n string) string   { return StyleNetwork.Render(n) }

// TruncateAddr shortens an address or hash for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// padR pads s to n visible cells, ignoring ANSI escapes.
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}
