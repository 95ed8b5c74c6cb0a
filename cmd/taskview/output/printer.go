package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/BuzzLyutic/taskview/internal/view"
)

// Printer writes styled console output.
type Printer struct {
	writer io.Writer
	styles *Styles
}

type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Header  lipgloss.Style
	Subtle  lipgloss.Style
	Bold    lipgloss.Style
}

// palette maps presentation categories to terminal colors.
var palette = map[view.ColorClass]lipgloss.Color{
	view.ColorGray:    lipgloss.Color("8"),
	view.ColorBlue:    lipgloss.Color("12"),
	view.ColorGreen:   lipgloss.Color("10"),
	view.ColorYellow:  lipgloss.Color("11"),
	view.ColorRed:     lipgloss.Color("9"),
	view.ColorNeutral: lipgloss.Color("7"),
}

func NewPrinter(writer io.Writer) *Printer {
	return &Printer{
		writer: writer,
		styles: &Styles{
			Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
			Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
			Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true).Underline(true),
			Subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			Bold:    lipgloss.NewStyle().Bold(true),
		},
	}
}

func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.writer, p.styles.Success.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintln(p.writer, p.styles.Error.Render("✗ "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintln(p.writer, p.styles.Info.Render("ℹ "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Header(format string, args ...interface{}) {
	fmt.Fprintln(p.writer, p.styles.Header.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Subtle(format string, args ...interface{}) {
	fmt.Fprintln(p.writer, p.styles.Subtle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Println(format string, args ...interface{}) {
	fmt.Fprintln(p.writer, fmt.Sprintf(format, args...))
}

// Colorize renders s in the terminal color of a category.
func (p *Printer) Colorize(c view.ColorClass, s string) string {
	color, ok := palette[c]
	if !ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(color).Render(s)
}

// Cell is a table cell with an optional color category.
type Cell struct {
	Text  string
	Color view.ColorClass
}

// Table pads every cell to its column width before styling it, so escape
// codes never skew the alignment.
func (p *Printer) Table(headers []string, rows [][]Cell) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell.Text); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	headerParts := make([]string, len(headers))
	for i, h := range headers {
		headerParts[i] = p.styles.Bold.Render(padRight(h, widths[i]))
	}
	fmt.Fprintln(p.writer, strings.Join(headerParts, "  "))

	separatorParts := make([]string, len(headers))
	for i, w := range widths {
		separatorParts[i] = strings.Repeat("-", w)
	}
	fmt.Fprintln(p.writer, p.styles.Subtle.Render(strings.Join(separatorParts, "  ")))

	for _, row := range rows {
		parts := make([]string, len(headers))
		for i := range headers {
			var cell Cell
			if i < len(row) {
				cell = row[i]
			}
			parts[i] = padRight(cell.Text, widths[i])
			if cell.Color != "" {
				parts[i] = p.Colorize(cell.Color, parts[i])
			}
		}
		fmt.Fprintln(p.writer, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
}

func padRight(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
