package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/validation"
)

// ErrAborted is returned when the operator leaves a prompt without answering.
var ErrAborted = errors.New("input aborted")

// Prompter asks the operator for the input fields that are still empty.
type Prompter interface {
	Complete(ctx context.Context, in *identity.Input) error
}

// question describes one input field.
type question struct {
	field       string
	title       string
	description string
	placeholder string
	value       *string
	validate    func(string) error
}

// missing returns the questions for the empty fields of in, in prompt order.
func missing(in *identity.Input) []question {
	all := []question{
		{
			field:       identity.FieldName,
			title:       "Instance name",
			description: "Becomes the system user, database role and service name",
			placeholder: "erp",
			value:       &in.Name,
			validate:    identity.ValidateName,
		},
		{
			field:       identity.FieldVersion,
			title:       "Version",
			description: "Branch or tag of the application source",
			placeholder: "17.0",
			value:       &in.Version,
			validate:    validation.ValidateGitRef,
		},
		{
			field:       identity.FieldPort,
			title:       "HTTP port",
			placeholder: "8069",
			value:       &in.Port,
			validate: func(s string) error {
				_, err := validation.ValidatePort(s)
				return err
			},
		},
		{
			field:       identity.FieldAddonsURL,
			title:       "Custom addons repository",
			description: "Cloned over SSH with the instance deploy key",
			placeholder: "git@github.com:acme/addons.git",
			value:       &in.AddonsRepoURL,
			validate:    validation.ValidateGitRemoteURL,
		},
	}

	var out []question
	for _, q := range all {
		if strings.TrimSpace(*q.value) == "" {
			out = append(out, q)
		}
	}
	return out
}

// FormPrompter asks through a huh form.
type FormPrompter struct {
	input  io.Reader
	output io.Writer
}

// NewFormPrompter creates a form prompter. Nil streams use the terminal.
func NewFormPrompter(input io.Reader, output io.Writer) *FormPrompter {
	return &FormPrompter{input: input, output: output}
}

// Complete fills the empty fields of in.
func (p *FormPrompter) Complete(ctx context.Context, in *identity.Input) error {
	questions := missing(in)
	if len(questions) == 0 {
		return nil
	}

	fields := make([]huh.Field, 0, len(questions))
	for _, q := range questions {
		fields = append(fields, huh.NewInput().
			Key(q.field).
			Title(q.title).
			Description(q.description).
			Placeholder(q.placeholder).
			Value(q.value).
			Validate(trimmed(q.validate)))
	}

	form := huh.NewForm(huh.NewGroup(fields...).Title("New instance"))
	if p.input != nil {
		form = form.WithInput(p.input)
	}
	if p.output != nil {
		form = form.WithOutput(p.output)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}

func trimmed(fn func(string) error) func(string) error {
	return func(s string) error {
		return fn(strings.TrimSpace(s))
	}
}

// maxAttempts bounds how often LinePrompter repeats a rejected answer.
const maxAttempts = 3

// LinePrompter asks one line at a time, for pipes and dumb terminals.
type LinePrompter struct {
	reader *bufio.Reader
	output io.Writer
}

// NewLinePrompter creates a line prompter.
func NewLinePrompter(input io.Reader, output io.Writer) *LinePrompter {
	return &LinePrompter{reader: bufio.NewReader(input), output: output}
}

// Complete fills the empty fields of in. Answers failing validation are
// asked again a few times; the last rejection is returned.
func (p *LinePrompter) Complete(ctx context.Context, in *identity.Input) error {
	for _, q := range missing(in) {
		var lastErr error
		answered := false
		for attempt := 0; attempt < maxAttempts && !answered; attempt++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fmt.Fprintf(p.output, "%s [%s]: ", q.title, q.placeholder)

			line, err := p.reader.ReadString('\n')
			answer := strings.TrimSpace(line)
			if err != nil && (!errors.Is(err, io.EOF) || answer == "") {
				fmt.Fprintln(p.output)
				return fmt.Errorf("%w: no answer for %s", ErrAborted, q.field)
			}

			if lastErr = q.validate(answer); lastErr != nil {
				fmt.Fprintf(p.output, "  invalid %s: %v\n", q.field, lastErr)
				continue
			}
			*q.value = answer
			answered = true
		}
		if !answered {
			return fmt.Errorf("%s: %w", q.field, lastErr)
		}
	}
	return nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewPrompter returns a FormPrompter when both streams are terminals and a
// LinePrompter otherwise.
func NewPrompter(input, output *os.File) Prompter {
	if IsTerminal(input) && IsTerminal(output) {
		return NewFormPrompter(input, output)
	}
	return NewLinePrompter(input, output)
}

var (
	_ Prompter = (*FormPrompter)(nil)
	_ Prompter = (*LinePrompter)(nil)
)
