package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/sbilibin2017/kologin/internal/i18n"
)

// BrowserNavigator hands the console route over to the user's browser.
type BrowserNavigator struct {
	baseURL string
	out     io.Writer
	msgs    Messages
	open    func(url string) error
}

// NewBrowserNavigator creates a new BrowserNavigator instance.
// A nil open only prints the URL.
func NewBrowserNavigator(baseURL string, out io.Writer, msgs Messages, open func(url string) error) *BrowserNavigator {
	return &BrowserNavigator{
		baseURL: strings.TrimRight(baseURL, "/"),
		out:     out,
		msgs:    msgs,
		open:    open,
	}
}

// NavigateByURL prints the console URL for path and opens it when a browser is configured.
func (n *BrowserNavigator) NavigateByURL(path string) error {
	url := n.URL(path)
	fmt.Fprintf(n.out, "%s %s\n", n.msgs.Instant(i18n.KeySuccess), url)

	if n.open == nil {
		return nil
	}
	if err := n.open(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// URL joins path to the console base URL.
func (n *BrowserNavigator) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return n.baseURL + path
}

// ForgotPasswordDialog explains how to recover a password.
type ForgotPasswordDialog struct {
	baseURL string
	out     io.Writer
	msgs    Messages
}

// NewForgotPasswordDialog creates a new ForgotPasswordDialog instance.
func NewForgotPasswordDialog(baseURL string, out io.Writer, msgs Messages) *ForgotPasswordDialog {
	return &ForgotPasswordDialog{
		baseURL: strings.TrimRight(baseURL, "/"),
		out:     out,
		msgs:    msgs,
	}
}

// Open prints the recovery hint followed by the console URL.
func (d *ForgotPasswordDialog) Open() error {
	_, err := fmt.Fprintf(d.out, "%s\n  %s\n", d.msgs.Instant(i18n.KeyForgotPasswordHint), d.baseURL+"/")
	return err
}
