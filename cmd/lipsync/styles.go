package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	lipsync "github.com/ieee0824/lipsync-go"
)

const meterWidth = 20

// styles renders one playback frame per line.
type styles struct {
	Time    lipgloss.Style
	Phoneme lipgloss.Style
	Rest    lipgloss.Style
	Meter   lipgloss.Style
	Dim     lipgloss.Style
}

func newStyles() styles {
	primary := lipgloss.Color("#00ff9f")
	dim := lipgloss.Color("#6e7681")
	return styles{
		Time:    lipgloss.NewStyle().Foreground(dim),
		Phoneme: lipgloss.NewStyle().Bold(true).Foreground(primary).Width(6),
		Rest:    lipgloss.NewStyle().Foreground(dim).Width(6),
		Meter:   lipgloss.NewStyle().Foreground(primary),
		Dim:     lipgloss.NewStyle().Foreground(dim),
	}
}

// frameLine formats the readout and weights of one tick.
func (s styles) frameLine(t float64, r lipsync.Readout, restIndex int, weights []float64) string {
	name := r.Name
	if name == "" {
		name = "-"
	}
	phoneme := s.Phoneme.Render(name)
	if r.Phoneme < 0 || r.Phoneme == restIndex {
		phoneme = s.Rest.Render(name)
	}

	filled := int(r.Level*meterWidth + 0.5)
	filled = min(max(filled, 0), meterWidth)
	meter := s.Meter.Render(strings.Repeat("█", filled)) +
		s.Dim.Render(strings.Repeat("·", meterWidth-filled))

	var b strings.Builder
	for i, w := range weights {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%5.1f", w)
	}

	return fmt.Sprintf("%s %s %s %6.1f dB  %s",
		s.Time.Render(fmt.Sprintf("%7.3fs", t)), phoneme, meter, r.VolumeDB, b.String())
}
