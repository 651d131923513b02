package deploy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptPassword asks for user's password on the terminal without echo.
func PromptPassword(user string) (string, error) {
	return promptPassword(os.Stdin, os.Stderr, user)
}

// promptPassword falls back to reading a plain line when in is not a
// terminal, so passwords can be piped in.
func promptPassword(in *os.File, out io.Writer, user string) (string, error) {
	fmt.Fprintf(out, "User [%s] please enter your password: ", user)

	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
