package shell

import (
	"bufio"
	"io"
	"strings"

	"github.com/c-bata/go-prompt"
)

// Input is a source of operator lines. Next returns io.EOF when the operator
// is done.
type Input interface {
	Next() (string, error)
}

// LineReader reads instructions one per line, for scripts and pipes.
type LineReader struct {
	scanner *bufio.Scanner
}

// NewLineReader returns an Input reading lines from r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{scanner: bufio.NewScanner(r)}
}

// Next returns the next line without its terminator.
func (l *LineReader) Next() (string, error) {
	if l.scanner.Scan() {
		return strings.TrimRight(l.scanner.Text(), "\r"), nil
	}
	if err := l.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// PromptReader reads instructions from an interactive terminal with
// completion and history.
type PromptReader struct {
	prefix  string
	history []string
}

// NewPromptReader returns an interactive Input showing prefix.
func NewPromptReader(prefix string) *PromptReader {
	return &PromptReader{prefix: prefix}
}

// Next shows the prompt and returns what the operator entered. go-prompt
// reports Ctrl-D on an empty line as an empty entry, which the shell
// ignores, so the session ends with "quit".
func (p *PromptReader) Next() (string, error) {
	line := prompt.Input(p.prefix, complete,
		prompt.OptionHistory(p.history),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionCompletionWordSeparator(" "),
	)
	if strings.TrimSpace(line) != "" {
		p.history = append(p.history, line)
	}
	return line, nil
}

var instructionSuggestions = []prompt.Suggest{
	{Text: "get", Description: "Download a file into the download directory"},
	{Text: "quit", Description: "Close the session"},
}

// complete suggests instruction words for the first word on the line.
func complete(d prompt.Document) []prompt.Suggest {
	return suggest(d.TextBeforeCursor())
}

func suggest(before string) []prompt.Suggest {
	if strings.Contains(strings.TrimLeft(before, " "), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(instructionSuggestions, strings.TrimLeft(before, " "), true)
}
