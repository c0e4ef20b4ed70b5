package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	// DefaultLanguage is used when no language was ever chosen.
	DefaultLanguage = "zh-CN"
	// FallbackLanguage answers lookups for languages without a dictionary.
	FallbackLanguage = "en-US"

	translationsDir = "translations"
)

// Message keys
const (
	KeyConnectError       = "APP_LOGIN_CONNECT_ERROR"
	KeyUnknownError       = "APP_LOGIN_CONNECT_UNKNOWN_ERROR"
	KeyUsername           = "APP_LOGIN_USERNAME"
	KeyPassword           = "APP_LOGIN_PASSWORD"
	KeyCaptcha            = "APP_LOGIN_CAPTCHA"
	KeyCaptchaSaved       = "APP_LOGIN_CAPTCHA_SAVED"
	KeySuccess            = "APP_LOGIN_SUCCESS"
	KeyForgotPasswordHint = "APP_LOGIN_FORGOT_PASSWORD_HINT"
	KeyHelp               = "APP_LOGIN_HELP"
	KeyTooManyAttempts    = "APP_LOGIN_TOO_MANY_ATTEMPTS"
	KeyUnsupportedLang    = "APP_LOGIN_UNSUPPORTED_LANGUAGE"
)

//go:embed translations/*.yaml
var embedded embed.FS

// Translator resolves message keys in the active language.
type Translator struct {
	mu       sync.RWMutex
	cat      catalog.Catalog
	tags     []language.Tag
	matcher  language.Matcher
	fallback language.Tag
	lang     string
	printer  *message.Printer
}

// New returns a Translator over the embedded dictionaries, active in lang.
func New(lang string) (*Translator, error) {
	return NewFromFS(embedded, translationsDir, lang)
}

// NewFromFS returns a Translator over the dictionaries found in dir/root.
func NewFromFS(dir fs.FS, root, lang string) (*Translator, error) {
	cat, tags, err := NewCatalogFromFolder(dir, root, FallbackLanguage)
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	t := &Translator{
		cat:      cat,
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		fallback: language.MustParse(FallbackLanguage),
	}
	if err := t.Use(lang); err != nil {
		return nil, err
	}
	return t, nil
}

// Use switches the active language for subsequent lookups.
// Messages come from the closest dictionary, or the fallback one when none is close.
// Language keeps reporting lang as requested.
func (t *Translator) Use(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("invalid language %q: %w", lang, err)
	}
	dict := t.match(tag)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lang = tag.String()
	t.printer = message.NewPrinter(dict, message.Catalog(t.cat))
	return nil
}

func (t *Translator) match(tag language.Tag) language.Tag {
	_, i, conf := t.matcher.Match(tag)
	if conf == language.No || i < 0 || i >= len(t.tags) {
		return t.fallback
	}
	return t.tags[i]
}

// Instant returns the translation of key, or key itself when no dictionary has it.
func (t *Translator) Instant(key string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.printer.Sprintf(message.Key(key, strings.ReplaceAll(key, "%", "%%")))
}

// Language returns the active language tag.
func (t *Translator) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// Supported lists the languages that have a dictionary.
func (t *Translator) Supported() []string {
	langs := make([]string, 0, len(t.tags))
	for _, tag := range t.tags {
		langs = append(langs, tag.String())
	}
	return langs
}

// Supports reports whether lang has a dictionary of its own.
func (t *Translator) Supports(lang string) bool {
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	for _, supported := range t.tags {
		if supported.String() == tag.String() {
			return true
		}
	}
	return false
}

// Valid reports whether lang is a well-formed language tag.
func Valid(lang string) bool {
	_, err := language.Parse(lang)
	return err == nil
}
