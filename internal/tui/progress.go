package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
)

// RunStartedMsg is sent when the runner has loaded the checkpoint.
type RunStartedMsg struct {
	Info execution.RunInfo
}

// StepStartedMsg is sent when a step body starts.
type StepStartedMsg struct {
	Step execution.StepInfo
}

// StepSkippedMsg is sent for a step completed by an earlier run.
type StepSkippedMsg struct {
	Step execution.StepInfo
}

// StepCompletedMsg is sent when a step body succeeded and was recorded.
type StepCompletedMsg struct {
	Step    execution.StepInfo
	Elapsed time.Duration
}

// StepFailedMsg is sent when a step body or its checkpoint write failed.
type StepFailedMsg struct {
	Step    execution.StepInfo
	Err     error
	Elapsed time.Duration
}

// RunFinishedMsg carries the final report.
type RunFinishedMsg struct {
	Report *execution.Report
}

// runDoneMsg is sent by the worker goroutine once Run has returned.
type runDoneMsg struct {
	report *execution.Report
	err    error
}

type lineState int

const (
	lineCompleted lineState = iota
	lineSkipped
	lineFailed
)

type stepLine struct {
	step    execution.StepInfo
	state   lineState
	elapsed time.Duration
	err     error
}

// progressModel is the Bubble Tea model of a provisioning run.
type progressModel struct {
	styles    Styles
	spinner   spinner.Model
	bar       progress.Model
	caser     cases.Caser
	width     int
	instance  string
	total     int
	resumed   int
	current   *execution.StepInfo
	lines     []stepLine
	report    *execution.Report
	err       error
	cancel    context.CancelFunc
	done      bool
	cancelled bool
}

func newProgressModel(cancel context.CancelFunc) progressModel {
	styles := DefaultStyles()
	return progressModel{
		styles:  styles,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Spinner)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		caser:   cases.Title(language.English),
		width:   80,
		cancel:  cancel,
	}
}

// Init starts the spinner.
func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-4, 10), 60)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelled && m.cancel != nil {
				m.cancel()
			}
			m.cancelled = true
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case RunStartedMsg:
		m.instance = msg.Info.Instance
		m.total = msg.Info.Total
		m.resumed = msg.Info.ResumedFrom
		return m, nil

	case StepSkippedMsg:
		m.lines = append(m.lines, stepLine{step: msg.Step, state: lineSkipped})
		return m, nil

	case StepStartedMsg:
		step := msg.Step
		m.current = &step
		return m, nil

	case StepCompletedMsg:
		m.current = nil
		m.lines = append(m.lines, stepLine{step: msg.Step, state: lineCompleted, elapsed: msg.Elapsed})
		return m, nil

	case StepFailedMsg:
		m.current = nil
		m.lines = append(m.lines, stepLine{step: msg.Step, state: lineFailed, elapsed: msg.Elapsed, err: msg.Err})
		return m, nil

	case RunFinishedMsg:
		m.report = msg.Report
		return m, nil

	case runDoneMsg:
		m.done = true
		m.current = nil
		if msg.report != nil {
			m.report = msg.report
		}
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// View renders the model.
func (m progressModel) View() string {
	var b strings.Builder

	title := "Provisioning"
	if m.instance != "" {
		title += " " + m.instance
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")

	if m.total > 0 {
		b.WriteString(m.bar.ViewAs(m.percent()))
		b.WriteString("\n\n")

		status := fmt.Sprintf("Progress: %d/%d steps", m.finished(), m.total)
		if m.resumed > 0 {
			status += fmt.Sprintf(" (resumed after step %d)", m.resumed)
		}
		b.WriteString(m.styles.Help.Render(status))
		b.WriteString("\n\n")
	}

	for _, line := range m.lines {
		b.WriteString(m.renderLine(line))
		b.WriteString("\n")
	}

	if m.current != nil && !m.done {
		fmt.Fprintf(&b, "%s %2d. %s\n", m.spinner.View(), m.current.Index, m.current.Label)
	}

	b.WriteString("\n")
	switch {
	case m.done:
		b.WriteString(m.summary())
		b.WriteString("\n")
	case m.cancelled:
		b.WriteString(m.styles.Warning.Render("Interrupting, waiting for the current step to stop..."))
		b.WriteString("\n")
	default:
		b.WriteString(m.styles.Help.Render("Ctrl+C to interrupt. Re-run with the same name to resume."))
	}

	return b.String()
}

func (m progressModel) renderLine(line stepLine) string {
	label := fmt.Sprintf("%2d. %s", line.step.Index, line.step.Label)
	switch line.state {
	case lineSkipped:
		return fmt.Sprintf("%s %s %s", m.styles.Help.Render("-"), label, m.styles.Help.Render("(done earlier)"))
	case lineFailed:
		return fmt.Sprintf("%s %s %s", m.styles.Error.Render("✗"), label, m.styles.Error.Render(line.err.Error()))
	default:
		return fmt.Sprintf("%s %s %s", m.styles.Success.Render("✓"), label,
			m.styles.Help.Render(line.elapsed.Round(time.Millisecond).String()))
	}
}

func (m progressModel) summary() string {
	if m.report == nil {
		if m.err != nil {
			return m.styles.Error.Render(m.err.Error())
		}
		return ""
	}

	state := m.caser.String(m.report.State.String())
	if m.report.Succeeded() {
		return m.styles.Success.Render(fmt.Sprintf("%s: %d steps run, %d skipped.",
			state, m.report.Executed(), m.report.SkippedCount()))
	}
	return m.styles.Error.Render(fmt.Sprintf("%s after step %d. Re-run to resume from step %d.",
		state, m.report.LastCompleted, m.report.LastCompleted+1))
}

// finished counts steps that are complete, whether run now or earlier.
func (m progressModel) finished() int {
	n := 0
	for _, line := range m.lines {
		if line.state != lineFailed {
			n++
		}
	}
	return n
}

// percent returns the current progress as a fraction (0.0 to 1.0).
func (m progressModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.finished()) / float64(m.total)
}

// ProgramObserver forwards runner callbacks to a Bubble Tea program.
type ProgramObserver struct {
	send func(tea.Msg)
}

// NewProgramObserver creates an observer that delivers events through send,
// usually (*tea.Program).Send.
func NewProgramObserver(send func(tea.Msg)) *ProgramObserver {
	return &ProgramObserver{send: send}
}

func (o *ProgramObserver) RunStarted(info execution.RunInfo) {
	o.send(RunStartedMsg{Info: info})
}

func (o *ProgramObserver) StepStarted(step execution.StepInfo) {
	o.send(StepStartedMsg{Step: step})
}

func (o *ProgramObserver) StepSkipped(step execution.StepInfo) {
	o.send(StepSkippedMsg{Step: step})
}

func (o *ProgramObserver) StepCompleted(step execution.StepInfo, elapsed time.Duration) {
	o.send(StepCompletedMsg{Step: step, Elapsed: elapsed})
}

func (o *ProgramObserver) StepFailed(step execution.StepInfo, err error, elapsed time.Duration) {
	o.send(StepFailedMsg{Step: step, Err: err, Elapsed: elapsed})
}

func (o *ProgramObserver) RunFinished(report *execution.Report) {
	o.send(RunFinishedMsg{Report: report})
}

var _ execution.Observer = (*ProgramObserver)(nil)

// RunFunc executes a run, reporting progress to obs.
type RunFunc func(ctx context.Context, obs execution.Observer) (*execution.Report, error)

// ProgressOptions configures RunWithProgress. Nil fields use the terminal.
type ProgressOptions struct {
	Input  io.Reader
	Output io.Writer
}

// RunWithProgress runs fn on a worker goroutine while rendering its progress.
// Ctrl+C cancels the context handed to fn; the view stays up until fn
// returns so the final state is shown.
func RunWithProgress(ctx context.Context, fn RunFunc, opts ProgressOptions) (*execution.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var progOpts []tea.ProgramOption
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	program := tea.NewProgram(newProgressModel(cancel), progOpts...)

	done := make(chan runDoneMsg, 1)
	go func() {
		report, err := fn(ctx, NewProgramObserver(program.Send))
		res := runDoneMsg{report: report, err: err}
		done <- res
		program.Send(res)
	}()

	_, viewErr := program.Run()
	if viewErr != nil {
		cancel()
	}
	res := <-done
	if viewErr != nil && !errors.Is(viewErr, tea.ErrProgramKilled) {
		return res.report, errors.Join(res.err, fmt.Errorf("progress view: %w", viewErr))
	}
	return res.report, res.err
}
