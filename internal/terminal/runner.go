// Package terminal drives an exam from a keyboard. On a real terminal stdin is
// switched to raw mode so single keys act immediately.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"cbt-exam-runner/internal/app"
	"cbt-exam-runner/internal/calc"
	"cbt-exam-runner/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var ErrAborted = errors.New("input closed before the exam started")

const (
	keyCtrlC     = 3
	keyBackspace = 127
	clearScreen  = "\033[H\033[2J"
)

type Runner struct {
	svc *app.ExamService
	in  *bufio.Reader
	out io.Writer
	log zerolog.Logger

	fd  int
	tty bool

	mu        sync.Mutex
	raw       bool
	prompting bool
	status    string
}

func NewRunner(svc *app.ExamService, in io.Reader, out io.Writer, log zerolog.Logger) *Runner {
	r := &Runner{
		svc: svc,
		in:  bufio.NewReader(in),
		out: out,
		log: log.With().Str("component", "terminal").Logger(),
		fd:  -1,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.fd = int(f.Fd())
		r.tty = true
	}
	return r
}

// Run selects subjects, starts the exam and processes keys until the user quits
// or input ends. subjects may be empty, in which case the user is asked.
func (r *Runner) Run(ctx context.Context, subjects []string) error {
	if err := r.chooseSubjects(subjects); err != nil {
		return err
	}

	r.print("Loading question banks...\n")
	if _, err := r.svc.Start(ctx); err != nil {
		r.print(fmt.Sprintf("Could not start the exam: %v\n", err))
		return err
	}
	defer r.svc.Reset()

	restore := r.enterRaw()
	defer restore()

	snaps, cancel := r.svc.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for snap := range snaps {
			r.draw(snap)
		}
	}()
	defer wg.Wait()
	defer cancel()

	for {
		key, err := r.readKey()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if quit := r.handleKey(key); quit {
			return nil
		}
	}
}

func (r *Runner) chooseSubjects(requested []string) error {
	catalog := r.svc.Catalog()
	if len(requested) > 0 {
		for _, raw := range requested {
			sub, ok := findSubject(catalog, raw)
			if !ok {
				return fmt.Errorf("%w: %q", domain.ErrUnknownSubject, raw)
			}
			if sub.Mandatory || r.svc.IsSelected(sub.ID) {
				continue
			}
			if err := r.svc.Toggle(sub.ID); err != nil {
				return err
			}
		}
		if !r.svc.CanStart() {
			return fmt.Errorf("%w: pick %d subjects", domain.ErrSelectionIncomplete, r.svc.RequiredCount())
		}
		return nil
	}

	var b strings.Builder
	renderCatalog(&b, catalog, r.svc.RequiredCount())
	r.print(b.String())
	for !r.svc.CanStart() {
		r.print(fmt.Sprintf("Selected: %s\nSubject numbers to add or remove: ", selectionLabel(r.svc.Selection())))
		line, err := r.in.ReadString('\n')
		if err != nil && strings.TrimSpace(line) == "" {
			return ErrAborted
		}
		for _, field := range strings.Fields(line) {
			n, convErr := strconv.Atoi(field)
			if convErr != nil || n < 1 || n > len(catalog) {
				r.print(fmt.Sprintf("No subject numbered %q\n", field))
				continue
			}
			if err := r.svc.Toggle(catalog[n-1].ID); err != nil {
				r.print(fmt.Sprintf("%s: %v\n", catalog[n-1].ID, err))
			}
		}
	}
	r.print(fmt.Sprintf("Starting with %s\n", selectionLabel(r.svc.Selection())))
	return nil
}

// handleKey applies one key and reports whether the user asked to quit.
func (r *Runner) handleKey(key byte) bool {
	switch key {
	case 'q', 'Q', keyCtrlC:
		return true
	}

	r.setStatus("")
	var err error
	switch key {
	case 'a', 'b', 'c', 'd', 'A', 'B', 'C', 'D':
		idx := int(key|0x20) - 'a'
		err = r.svc.Dispatch(app.Command{Kind: app.CmdSelect, Option: idx})
	case 'n', 'N':
		err = r.svc.Dispatch(app.Command{Kind: app.CmdNext})
	case 'p', 'P':
		err = r.svc.Dispatch(app.Command{Kind: app.CmdPrev})
	case 'f', 'F':
		err = r.svc.Dispatch(app.Command{Kind: app.CmdFlag})
	case 'r', 'R':
		err = r.svc.Dispatch(app.Command{Kind: app.CmdReview})
	case 's', 'S':
		err = r.confirmSubmit()
	case 'k', 'K':
		r.calculator()
		return false
	default:
		if key >= '1' && key <= '9' {
			err = r.switchTo(int(key - '1'))
			break
		}
		return false
	}

	if err == nil {
		return false
	}
	if app.IsRejection(err) {
		r.setStatus(describe(err))
	} else {
		r.log.Warn().Err(err).Msg("command failed")
		r.setStatus(err.Error())
	}
	r.redraw()
	return false
}

func (r *Runner) switchTo(i int) error {
	sess, err := r.svc.Session()
	if err != nil {
		return err
	}
	subjects := sess.Subjects()
	if i >= len(subjects) {
		return domain.ErrInvalidNavigation
	}
	return r.svc.Dispatch(app.Command{Kind: app.CmdSwitch, SubjectID: subjects[i].ID})
}

func (r *Runner) confirmSubmit() error {
	if r.svc.State() != domain.StateInProgress {
		return domain.ErrNotInProgress
	}
	r.beginPrompt("\nSubmit exam now? (y/n) ")
	key, err := r.readKey()
	r.endPrompt()
	if err != nil {
		return err
	}
	if key != 'y' && key != 'Y' {
		r.setStatus("Submission cancelled.")
		r.redraw()
		return nil
	}
	_, err = r.svc.Submit(true)
	return err
}

func (r *Runner) calculator() {
	r.beginPrompt("\ncalc> ")
	line, err := r.readLine()
	r.endPrompt()
	if err != nil {
		return
	}
	v, err := calc.Eval(line)
	if err != nil {
		r.setStatus("calc: " + err.Error())
	} else {
		r.setStatus(fmt.Sprintf("%s = %s", strings.TrimSpace(line), calc.Format(v)))
	}
	r.redraw()
}

// readKey returns the next key, skipping line noise when stdin is not raw.
func (r *Runner) readKey() (byte, error) {
	for {
		b, err := r.in.ReadByte()
		if err != nil {
			return 0, err
		}
		if r.isRaw() {
			return b, nil
		}
		if b != '\n' && b != '\r' && b != ' ' && b != '\t' {
			return b, nil
		}
	}
}

func (r *Runner) readLine() (string, error) {
	if !r.isRaw() {
		line, err := r.in.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	var buf []byte
	for {
		b, err := r.in.ReadByte()
		if err != nil {
			return "", err
		}
		switch {
		case b == '\r' || b == '\n':
			r.print("\n")
			return string(buf), nil
		case b == keyCtrlC:
			return "", io.EOF
		case b == keyBackspace || b == '\b':
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				r.print("\b \b")
			}
		case b >= ' ' && b < keyBackspace:
			buf = append(buf, b)
			r.print(string(b))
		}
	}
}

func (r *Runner) enterRaw() func() {
	if !r.tty {
		return func() {}
	}
	state, err := term.MakeRaw(r.fd)
	if err != nil {
		r.log.Warn().Err(err).Msg("raw mode unavailable, falling back to line input")
		return func() {}
	}
	r.mu.Lock()
	r.raw = true
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.raw = false
		r.mu.Unlock()
		_ = term.Restore(r.fd, state)
	}
}

func (r *Runner) isRaw() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.raw
}

func (r *Runner) setStatus(msg string) {
	r.mu.Lock()
	r.status = msg
	r.mu.Unlock()
}

func (r *Runner) beginPrompt(text string) {
	r.mu.Lock()
	r.prompting = true
	r.writeLocked(text)
	r.mu.Unlock()
}

func (r *Runner) endPrompt() {
	r.mu.Lock()
	r.prompting = false
	r.mu.Unlock()
}

// redraw paints the current session state, used when a command changed
// nothing but the status line.
func (r *Runner) redraw() {
	sess, err := r.svc.Session()
	if err != nil {
		return
	}
	r.draw(sess.Snapshot())
}

func (r *Runner) draw(snap domain.Snapshot) {
	if snap.State == domain.StateSetup || snap.State == domain.StateLoading {
		return
	}

	var items []domain.ReviewItem
	if snap.State == domain.StateSubmitted {
		if sess, err := r.svc.Session(); err == nil && sess.ID() == snap.SessionID {
			items, _ = sess.Corrections()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prompting {
		return
	}
	var b strings.Builder
	if r.raw {
		b.WriteString(clearScreen)
	} else {
		b.WriteString("\n")
	}
	if snap.State == domain.StateSubmitted && snap.Result != nil {
		renderResult(&b, *snap.Result, items, r.status)
	} else {
		renderExam(&b, snap, r.status)
	}
	r.writeLocked(b.String())
}

func (r *Runner) print(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLocked(s)
}

func (r *Runner) writeLocked(s string) {
	if r.raw {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	if _, err := io.WriteString(r.out, s); err != nil {
		r.log.Warn().Err(err).Msg("write failed")
	}
}

// WriteLeaderboard prints past results, most recent first, with the average.
func WriteLeaderboard(w io.Writer, lb domain.Leaderboard) error {
	var b strings.Builder
	renderLeaderboard(&b, lb)
	_, err := io.WriteString(w, b.String())
	return err
}

func findSubject(catalog []domain.Subject, id string) (domain.Subject, bool) {
	for _, s := range catalog {
		if strings.EqualFold(s.ID, strings.TrimSpace(id)) {
			return s, true
		}
	}
	return domain.Subject{}, false
}

func selectionLabel(subjects []domain.Subject) string {
	ids := make([]string, 0, len(subjects))
	for _, s := range subjects {
		ids = append(ids, s.ID)
	}
	return strings.Join(ids, ", ")
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidNavigation):
		return "No question there."
	case errors.Is(err, domain.ErrInvalidOption):
		return "This question has fewer options."
	case errors.Is(err, domain.ErrNotSubmitted):
		return "Review opens after you submit."
	case errors.Is(err, domain.ErrNotInProgress):
		return "The exam is no longer running."
	}
	return err.Error()
}
