package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Texter is implemented by results that render themselves for the text
// format through a Printer.
type Texter interface {
	Text(p *Printer)
}

// Formatter writes command results in the format chosen with --output.
type Formatter struct {
	format  Format
	writer  io.Writer
	printer *Printer
}

func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format:  format,
		writer:  writer,
		printer: NewPrinter(writer),
	}
}

func (f *Formatter) Format() Format {
	return f.format
}

func (f *Formatter) Print(data interface{}) error {
	switch f.format {
	case FormatJSON:
		return f.printJSON(data)
	case FormatYAML:
		return f.printYAML(data)
	case FormatText:
		return f.printText(data)
	default:
		return fmt.Errorf("unsupported output format: %s", f.format)
	}
}

func (f *Formatter) printJSON(data interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(f.writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func (f *Formatter) printText(data interface{}) error {
	switch v := data.(type) {
	case Texter:
		v.Text(f.printer)
		return nil
	case string:
		_, err := fmt.Fprintln(f.writer, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(f.writer, v.String())
		return err
	default:
		_, err := fmt.Fprintln(f.writer, v)
		return err
	}
}

func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatText, fmt.Errorf("invalid format '%s': must be one of: text, json, yaml", s)
	}
}
