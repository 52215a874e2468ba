package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

const questionPrompt = "Please enter a question: "

// promptQuestion asks for the question with a huh input on a terminal and
// reads a single line otherwise.
func promptQuestion(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var value string
		inp := huh.NewInput().
			Title(strings.TrimSpace(questionPrompt)).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("question is required")
				}
				return nil
			}).
			Value(&value)
		if err := huh.NewForm(huh.NewGroup(inp)).Run(); err != nil {
			return "", err
		}
		return strings.TrimSpace(value), nil
	}

	fmt.Fprint(out, questionPrompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
