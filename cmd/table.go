package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"puck-scanner/internal/domain/entity"
)

// Цвета
var (
	accent  = lipgloss.Color("#FF5F00")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	warning = lipgloss.Color("#FFAA00")
	white   = lipgloss.Color("#FFFFFF")
)

// Стили
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success)
	warningStyle = lipgloss.NewStyle().Foreground(warning)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1)
)

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "valid":
		return successStyle
	case "unreadable":
		return warningStyle
	case "empty":
		return mutedStyle
	}
	return accentStyle
}

// renderReport рисует таблицу слотов держателя.
func renderReport(source string, r entity.PlateReport) string {
	slots := append([]entity.SlotReport(nil), r.Slots...)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Number < slots[j].Number })

	status := warningStyle.Render("в процессе")
	if r.Complete {
		status = successStyle.Render("готов")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(source), status)
	fmt.Fprintf(&b, "%s %s  %s %s  %s %d/%d\n",
		mutedStyle.Render("plate"), r.PlateID,
		mutedStyle.Render("type"), r.Kind,
		mutedStyle.Render("read"), r.ValidCount, len(slots))
	for _, s := range slots {
		data := s.Data
		if data == "" {
			data = "-"
		}
		fmt.Fprintf(&b, "%3d  %-12s %s\n", s.Number, stateStyle(s.State).Render(s.State), data)
	}
	return boxStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}
