// Package ui renders engine results for terminal output.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/danielpatrickdp/activity-states/go-controller/internal/engine"
)

// #region colors
var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
)

// #endregion colors

// #region render
func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderHeader(s string) string { return HeaderStyle.Render(s) }

// Outcome renders a command classification.
func Outcome(o engine.Outcome) string {
	switch o {
	case engine.OutcomeProceed:
		return RenderPass(o.String())
	case engine.OutcomeTerminal:
		return HeaderStyle.UnsetBold().Render(o.String())
	case engine.OutcomeStall:
		return RenderWarn(o.String())
	}
	return RenderMuted(o.String())
}

// Result renders an accepted successor or the rejection message.
func Result(r engine.Result) string {
	if r.Rejected() {
		return RenderFail(IconFail + " " + r.Err.Error())
	}
	return RenderPass(fmt.Sprintf("%s %s %s", IconPass, r.Next.Key(), r.Next))
}

// #endregion render

// #region numbers
var printer = message.NewPrinter(language.English)

// Count formats n with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// Percent formats a percentage with one decimal.
func Percent(p float64) string {
	return printer.Sprintf("%.1f%%", p)
}

// #endregion numbers
