package sim

import (
	"fmt"
	"log/slog"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/joeycumines/go-tickbt/behavior"
	"github.com/joeycumines/go-tickbt/internal/logging"
)

// Report summarises the state of a simulation.
type Report struct {
	Steps    int
	Strategy string
	Player   Vec
	Agents   []AgentReport
}

// AgentReport is the state of a single agent.
type AgentReport struct {
	Name        string
	Status      behavior.Status
	Mode        string
	Pos         Vec
	Distance    float64
	Energy      float64
	Catches     int
	Completions int
	Path        []string
}

// Catches returns the total catches of every agent.
func (r Report) Catches() int {
	var n int
	for _, a := range r.Agents {
		n += a.Catches
	}
	return n
}

// Report captures the current state. It must not be called concurrently
// with Step.
func (s *Sim) Report() Report {
	r := Report{
		Steps:    s.Steps(),
		Strategy: s.opts.Strategy,
		Player:   s.world.Player,
	}
	for _, x := range s.driver.Instances() {
		a := x.Host()
		var path []string
		for _, id := range x.Path() {
			if info, ok := s.tree.Node(id); ok && info.Name != "" {
				path = append(path, info.Name)
			}
		}
		r.Agents = append(r.Agents, AgentReport{
			Name:        a.Name,
			Status:      x.Status(),
			Mode:        a.Mode(),
			Pos:         a.Pos,
			Distance:    a.Distance(),
			Energy:      a.Energy(),
			Catches:     a.Catches(),
			Completions: a.Completions,
			Path:        path,
		})
	}
	return r
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusColors = map[behavior.Status]string{
		behavior.Running: "214",
		behavior.Success: "42",
		behavior.Failure: "196",
	}
)

func statusStyle(s behavior.Status) lipgloss.Style {
	style := cellStyle
	if c, ok := statusColors[s]; ok {
		style = style.Foreground(lipgloss.Color(c))
	}
	return style
}

// Render renders the report as a styled table.
func Render(r Report) string {
	rows := make([][]string, 0, len(r.Agents))
	for _, a := range r.Agents {
		status := "-"
		if a.Status != 0 {
			status = a.Status.String()
		}
		rows = append(rows, []string{
			a.Name,
			status,
			a.Mode,
			a.Pos.String(),
			fmt.Sprintf("%.1f", a.Distance),
			fmt.Sprintf("%.0f", a.Energy),
			fmt.Sprint(a.Catches),
			fmt.Sprint(a.Completions),
			strings.Join(a.Path, " > "),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("AGENT", "STATUS", "MODE", "POS", "DIST", "ENERGY", "CATCHES", "DONE", "PATH").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && row >= 0 && row < len(r.Agents):
				return statusStyle(r.Agents[row].Status)
			default:
				return cellStyle
			}
		})

	title := titleStyle.Render(fmt.Sprintf("chase: %s strategy, step %d", r.Strategy, r.Steps))
	summary := mutedStyle.Render(fmt.Sprintf("player at %s, %d catches", r.Player, r.Catches()))
	return lipgloss.JoinVertical(lipgloss.Left, title, t.String(), summary)
}

// RenderEvents renders recorded log entries, one per line.
func RenderEvents(entries []logging.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	levelStyles := map[slog.Level]lipgloss.Style{
		slog.LevelDebug: mutedStyle,
		slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	lines := []string{titleStyle.Render("events")}
	for _, e := range entries {
		style, ok := levelStyles[e.Level]
		if !ok {
			style = cellStyle
		}
		line := style.Render(fmt.Sprintf("%-5s", e.Level.String())) + " " + e.Message
		if agent, ok := e.Attrs["agent"]; ok {
			line += " " + mutedStyle.Render("agent="+agent)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
