// Package console is the operator prompt attached to the terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// ErrInputClosed is returned by Run when the input reaches EOF, typically
// because the process runs detached from a terminal.
var ErrInputClosed = errors.New("console input closed")

// Program is the part of the active program the console displays.
type Program interface {
	Name() string
	Parameter(key string) (string, bool)
}

type section struct {
	title string
	rows  []row
}

type row struct {
	label string
	key   string
	unit  string
}

var layout = []section{
	{title: "Lighting", rows: []row{
		{label: "Red level", key: "light.red", unit: "%"},
		{label: "Green level", key: "light.green", unit: "%"},
		{label: "Blue level", key: "light.blue", unit: "%"},
		{label: "Lights on at", key: "light.on"},
		{label: "Lights off at", key: "light.off"},
	}},
	{title: "Watering", rows: []row{
		{label: "Pump running for", key: "water.flow.on", unit: " min"},
		{label: "Pump resting for", key: "water.flow.off", unit: " min"},
	}},
	{title: "Air", rows: []row{
		{label: "Low temperature", key: "air.temperature.low", unit: "°C"},
		{label: "High temperature", key: "air.temperature.high", unit: "°C"},
	}},
	{title: "Water", rows: []row{
		{label: "Low temperature", key: "water.temperature.low", unit: "°C"},
		{label: "High temperature", key: "water.temperature.high", unit: "°C"},
	}},
}

// Render writes the active program. Missing parameters are shown as "-".
func Render(w io.Writer, p Program) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n*** PROGRAM: %s ***\n", p.Name())
	for _, s := range layout {
		fmt.Fprintf(&b, "\n--> %s\n", s.title)
		for _, r := range s.rows {
			value := "-"
			if v, ok := p.Parameter(r.key); ok && v != "" {
				value = v + r.unit
			}
			fmt.Fprintf(&b, "%20s: %s\n", r.label, value)
		}
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Console reads operator commands, one per line.
type Console struct {
	in      io.Reader
	out     io.Writer
	program Program
	logger  logger.Logger
}

func New(in io.Reader, out io.Writer, program Program, log logger.Logger) *Console {
	return &Console{in: in, out: out, program: program, logger: log}
}

// Run renders the program then serves commands until the operator types
// exit (nil), the input is closed (ErrInputClosed) or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	if err := Render(c.out, c.program); err != nil {
		return fmt.Errorf("render program: %w", err)
	}
	c.prompt()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				c.logger.Warn("console input failed", logger.Error(err))
			}
			return ErrInputClosed
		case line := <-lines:
			if c.handle(strings.TrimSpace(line)) {
				c.logger.Info("stop requested from console")
				return nil
			}
		}
	}
}

// handle executes one command and reports whether the operator asked to exit.
func (c *Console) handle(cmd string) bool {
	switch strings.ToLower(cmd) {
	case "exit":
		return true
	case "":
	case "program":
		_ = Render(c.out, c.program)
	case "help":
		fmt.Fprintln(c.out, "commands: program, help, exit")
	default:
		fmt.Fprintf(c.out, "unknown command %q, type help\n", cmd)
	}
	c.prompt()
	return false
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, "Type exit to quit: ")
}
