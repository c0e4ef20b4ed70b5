package console

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/sbilibin2017/kologin/internal/i18n"
	"github.com/sbilibin2017/kologin/internal/logger"
	"github.com/sbilibin2017/kologin/internal/models"
)

// ErrInvalidImage is returned when a captcha image cannot be decoded.
var ErrInvalidImage = errors.New("invalid captcha image")

// Messages resolves prompt keys in the active language.
type Messages interface {
	Instant(key string) string
}

// Command is what the user asked for at the username prompt.
type Command int

const (
	CommandSubmit Command = iota
	CommandReset
	CommandForgot
	CommandRefresh
	CommandLanguage
	CommandQuit
	CommandHelp
)

// Input is one pass over the login form.
type Input struct {
	Command  Command
	Username string
	Password string
	Code     string
	Language string // set for CommandLanguage
}

// Terminal renders the login form on a text terminal.
type Terminal struct {
	in          *bufio.Reader
	out         io.Writer
	fd          int
	fs          afero.Fs
	captchaDir  string
	openImage   func(path string) error
	msgs        Messages
	readPasswd  func(fd int) ([]byte, error)
	isTerminalF func(fd int) bool
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithFs sets the filesystem captcha images are written to.
func WithFs(fs afero.Fs) TerminalOption {
	return func(t *Terminal) { t.fs = fs }
}

// WithCaptchaDir sets the directory captcha images are written to.
func WithCaptchaDir(dir string) TerminalOption {
	return func(t *Terminal) { t.captchaDir = dir }
}

// WithImageViewer opens every saved captcha image with open.
func WithImageViewer(open func(path string) error) TerminalOption {
	return func(t *Terminal) { t.openImage = open }
}

// NewTerminal creates a Terminal reading from in and writing to out.
// When in is a TTY, passwords are read without echo.
func NewTerminal(in io.Reader, out io.Writer, msgs Messages, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		in:          bufio.NewReader(in),
		out:         out,
		fd:          -1,
		fs:          afero.NewOsFs(),
		captchaDir:  filepath.Join(os.TempDir(), "kologin"),
		msgs:        msgs,
		readPasswd:  term.ReadPassword,
		isTerminalF: term.IsTerminal,
	}
	for _, opt := range opts {
		opt(t)
	}
	if f, ok := in.(*os.File); ok && t.isTerminalF(int(f.Fd())) {
		t.fd = int(f.Fd())
	}
	return t
}

// ReadForm prompts for the username, password and captcha answer.
// A username starting with ':' is read as a command and ends the form early.
// End of input is reported as CommandQuit.
func (t *Terminal) ReadForm() (Input, error) {
	username, err := t.prompt(i18n.KeyUsername)
	if err != nil {
		return quitOnEOF(err)
	}
	if strings.HasPrefix(username, ":") {
		return parseCommand(username), nil
	}

	password, err := t.promptPassword()
	if err != nil {
		return quitOnEOF(err)
	}

	code, err := t.prompt(i18n.KeyCaptcha)
	if err != nil {
		return quitOnEOF(err)
	}

	return Input{
		Command:  CommandSubmit,
		Username: username,
		Password: password,
		Code:     code,
	}, nil
}

func quitOnEOF(err error) (Input, error) {
	if errors.Is(err, io.EOF) {
		return Input{Command: CommandQuit}, nil
	}
	return Input{}, err
}

func parseCommand(line string) Input {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":reset":
		return Input{Command: CommandReset}
	case ":forgot":
		return Input{Command: CommandForgot}
	case ":refresh":
		return Input{Command: CommandRefresh}
	case ":quit", ":q", ":exit":
		return Input{Command: CommandQuit}
	case ":lang":
		if len(fields) > 1 {
			return Input{Command: CommandLanguage, Language: fields[1]}
		}
	}
	return Input{Command: CommandHelp}
}

func (t *Terminal) prompt(key string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", t.msgs.Instant(key))
	return t.readLine()
}

func (t *Terminal) promptPassword() (string, error) {
	fmt.Fprintf(t.out, "%s: ", t.msgs.Instant(i18n.KeyPassword))
	if t.fd < 0 {
		return t.readLine()
	}

	b, err := t.readPasswd(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// SetTitle shows the system name as a banner and, on a TTY, as the window title.
// Control characters are dropped so the title cannot carry escape sequences.
func (t *Terminal) SetTitle(title string) {
	title = stripControl(title)
	if t.fd >= 0 {
		fmt.Fprintf(t.out, "\x1b]0;%s\x07", title)
	}
	fmt.Fprintf(t.out, "== %s ==\n", title)
}

// ShowHelp lists the commands accepted at the username prompt and the languages :lang accepts.
func (t *Terminal) ShowHelp(languages ...string) {
	if len(languages) == 0 {
		fmt.Fprintln(t.out, t.msgs.Instant(i18n.KeyHelp))
		return
	}
	fmt.Fprintf(t.out, "%s (%s)\n", t.msgs.Instant(i18n.KeyHelp), strings.Join(languages, ", "))
}

// ShowMessage prints the form message; errors are prefixed with '!'.
func (t *Terminal) ShowMessage(msg string, isError bool) {
	if msg == "" {
		return
	}
	if isError {
		fmt.Fprintf(t.out, "! %s\n", msg)
		return
	}
	fmt.Fprintln(t.out, msg)
}

// ShowCaptcha writes the captcha image to the captcha directory and returns its path.
func (t *Terminal) ShowCaptcha(captcha models.Captcha) (string, error) {
	data, err := decodeImage(captcha.Image)
	if err != nil {
		return "", err
	}

	if err := t.fs.MkdirAll(t.captchaDir, 0o700); err != nil {
		return "", fmt.Errorf("create captcha dir: %w", err)
	}
	path := filepath.Join(t.captchaDir, captchaFileName(captcha.CaptchaID))
	if err := afero.WriteFile(t.fs, path, data, 0o600); err != nil {
		return "", fmt.Errorf("write captcha image: %w", err)
	}

	fmt.Fprintf(t.out, "%s %s\n", t.msgs.Instant(i18n.KeyCaptchaSaved), path)

	if t.openImage != nil {
		if err := t.openImage(path); err != nil {
			logger.Log.Warnw("failed to open captcha image", "path", path, "error", err)
		}
	}
	return path, nil
}

// decodeImage accepts plain base64 or a data URL.
func decodeImage(image string) ([]byte, error) {
	if image == "" {
		return nil, ErrInvalidImage
	}
	if strings.HasPrefix(image, "data:") {
		i := strings.IndexByte(image, ',')
		if i < 0 {
			return nil, ErrInvalidImage
		}
		image = image[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, nil
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func captchaFileName(id string) string {
	name := filepath.Base(id)
	if name == "." || name == "/" || name == "" || name == ".." {
		name = "captcha"
	}
	return name + ".png"
}
