// Package prompt implements the blocking read-evaluate loops used to let a
// person pick a song or a revision. Input and output are injected so the loops
// run the same against a terminal or a test buffer.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
)

// ErrInputClosed is returned when the input stream ends before a valid answer.
var ErrInputClosed = errors.New("input closed before a selection was made")

const (
	msgNotANumber = "Please enter a number from the list."
	msgOutOfRange = "Please enter a valid number from the list."
)

var labelColor = color.New(color.FgCyan)

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a Prompter over the given streams.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints label and returns the next input line, trimmed.
func (p *Prompter) Ask(label string) (string, error) {
	labelColor.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			// Last line without a trailing newline still counts
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return "", ErrInputClosed
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Choose asks until the answer is an integer in 1..n and returns it as a
// zero-based index. With allowBlank, an empty answer returns blank=true.
// There is no timeout and no default; only a closed input ends the loop early.
func (p *Prompter) Choose(label string, n int, allowBlank bool) (index int, blank bool, err error) {
	if n <= 0 {
		return 0, false, fmt.Errorf("nothing to choose from")
	}
	for {
		answer, err := p.Ask(label)
		if err != nil {
			return 0, false, err
		}
		if answer == "" && allowBlank {
			return 0, true, nil
		}
		if !isDigits(answer) {
			log.Debugf("Rejected non-numeric answer %q", answer)
			fmt.Fprintln(p.out, msgNotANumber)
			continue
		}
		// Digits too large for an int are simply out of range.
		choice, convErr := strconv.Atoi(answer)
		if convErr != nil || choice < 1 || choice > n {
			log.Debugf("Rejected out-of-range answer %q (1..%d)", answer, n)
			fmt.Fprintln(p.out, msgOutOfRange)
			continue
		}
		return choice - 1, false, nil
	}
}

// isDigits mirrors a plain digit check: no sign, no spaces.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Table renders an enumerated listing. The first column is the 1-based index.
func (p *Prompter) Table(title string, header []string, rows [][]string) {
	fmt.Fprintln(p.out, title)
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(append([]string{"#"}, header...))
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetRowLine(false)
	for i, row := range rows {
		table.Append(append([]string{strconv.Itoa(i + 1)}, row...))
	}
	table.Render()
}
