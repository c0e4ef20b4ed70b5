package services

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sbilibin2017/kologin/internal/i18n"
	"github.com/sbilibin2017/kologin/internal/logger"
	"github.com/sbilibin2017/kologin/internal/models"
)

//go:generate mockgen -source=login.go -destination=mock_login.go -package=services

// CurrentLanguageKey is the settings key holding the last language a login succeeded with.
const CurrentLanguageKey = "currentLanguage"

// RootRoute is where a successful login navigates to.
const RootRoute = "/"

// Error variables
var (
	ErrAlreadyInitialized = errors.New("login controller already initialized")
	ErrNotInitialized     = errors.New("login controller not initialized")
	ErrLoginInProgress    = errors.New("a login attempt is already in progress")
	ErrClosed             = errors.New("login controller closed")
)

// Sessioner defines the session operations the login flow relies on.
type Sessioner interface {
	Login(ctx context.Context, cred models.LoginCredential) (*models.Profile, error)
	GetCode(ctx context.Context) (*models.Captcha, error)
	CacheProfile(ctx context.Context, profile *models.Profile) error
}

// ThemeReader fetches the display theme.
type ThemeReader interface {
	Get(ctx context.Context) (*models.Theme, error)
}

// Translator resolves message keys in the active language.
type Translator interface {
	Instant(key string) string
	Use(lang string) error
}

// Navigator moves the user to another route of the console.
type Navigator interface {
	NavigateByURL(path string) error
}

// SettingsStore is the durable key/value store for user preferences.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// TitleSetter displays the system name.
type TitleSetter interface {
	SetTitle(title string)
}

// Dialog is a modal the login flow can open.
type Dialog interface {
	Open() error
}

// EventPublisher records login attempts.
type EventPublisher interface {
	Publish(ctx context.Context, event models.LoginEvent) error
}

// LoginDeps groups the collaborators of a LoginController.
// Title, ForgotPassword and Events are optional.
type LoginDeps struct {
	Session        Sessioner
	Theme          ThemeReader
	Translator     Translator
	Navigator      Navigator
	Settings       SettingsStore
	Title          TitleSetter
	ForgotPassword Dialog
	Events         EventPublisher
}

// LoginController drives the login form: it loads the language, theme and captcha,
// submits credentials and turns failures into messages for the user.
type LoginController struct {
	deps LoginDeps

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	closed     bool
	submitting bool
	credential models.LoginCredential
	captcha    models.Captcha
	captchaSeq uint64
	theme      *models.Theme
	message    string
	isError    bool
}

// NewLoginController creates a new LoginController instance.
func NewLoginController(deps LoginDeps) *LoginController {
	return &LoginController{
		deps:       deps,
		credential: models.LoginCredential{AuthMethod: models.AuthMethodLocal},
	}
}

// Initialize loads and applies the persisted language, then fetches the theme and a captcha concurrently.
// It returns once both fetches resolved; their failures only affect the displayed state.
func (c *LoginController) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.ctx != nil {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	lang := c.loadLanguage(ctx)
	c.mu.Lock()
	c.credential.Language = lang
	c.mu.Unlock()
	if err := c.deps.Translator.Use(lang); err != nil {
		logger.Log.Warnw("failed to switch language", "language", lang, "error", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		c.loadTheme(ctx)
		return nil
	})
	g.Go(func() error {
		c.createCaptcha(ctx)
		return nil
	})
	return g.Wait()
}

func (c *LoginController) loadLanguage(ctx context.Context) string {
	lang, err := c.deps.Settings.Get(ctx, CurrentLanguageKey)
	if err != nil {
		logger.Log.Warnw("failed to read language setting", "error", err)
		return i18n.DefaultLanguage
	}
	if lang == "" {
		return i18n.DefaultLanguage
	}
	if !i18n.Valid(lang) {
		logger.Log.Warnw("ignoring invalid language setting", "language", lang)
		return i18n.DefaultLanguage
	}
	return lang
}

func (c *LoginController) loadTheme(ctx context.Context) {
	ctx, cancel := c.scope(ctx)
	defer cancel()

	theme, err := c.deps.Theme.Get(ctx)
	if err != nil {
		logger.Log.Debugw("theme unavailable", "error", err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.theme = theme
	c.mu.Unlock()

	if theme.SystemName != "" && c.deps.Title != nil {
		c.deps.Title.SetTitle(theme.SystemName)
	}
}

// createCaptcha fetches a new captcha. Only the latest started fetch may update the state.
func (c *LoginController) createCaptcha(ctx context.Context) {
	ctx, cancel := c.scope(ctx)
	defer cancel()

	c.mu.Lock()
	c.captchaSeq++
	seq := c.captchaSeq
	c.mu.Unlock()

	captcha, err := c.deps.Session.GetCode(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.captchaSeq {
		logger.Log.Debugw("discarding stale captcha result", "seq", seq, "error", err)
		return
	}
	if err != nil {
		logger.Log.Errorw("failed to fetch captcha", "error", err)
		c.message = c.deps.Translator.Instant(errorMsg(err))
		return
	}
	c.captcha = *captcha
}

// RefreshCaptcha replaces the current captcha with a new one.
func (c *LoginController) RefreshCaptcha(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	c.createCaptcha(ctx)
	return nil
}

// Reset clears the form fields. The selected language and the captcha are kept.
func (c *LoginController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.credential = models.LoginCredential{
		Language:   c.credential.Language,
		AuthMethod: c.credential.AuthMethod,
	}
}

// Submit sends the credential with the id of the current captcha.
// On failure the error flag is set, Message describes the failure and a new captcha is fetched.
func (c *LoginController) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.ctx == nil:
		c.mu.Unlock()
		return ErrNotInitialized
	case c.submitting:
		c.mu.Unlock()
		return ErrLoginInProgress
	}
	c.submitting = true
	c.credential.CaptchaID = c.captcha.CaptchaID
	cred := c.credential
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	scoped, cancel := c.scope(ctx)
	defer cancel()

	profile, err := c.deps.Session.Login(scoped, cred)
	if c.isClosed() {
		return ErrClosed
	}
	if err != nil {
		c.handleError(ctx, cred, err)
		return err
	}

	c.mu.Lock()
	c.isError = false
	c.message = ""
	c.mu.Unlock()

	if err := c.deps.Session.CacheProfile(scoped, profile); err != nil {
		logger.Log.Errorw("failed to cache profile", "username", profile.User.Name, "error", err)
	}
	if err := c.deps.Settings.Set(scoped, CurrentLanguageKey, cred.Language); err != nil {
		logger.Log.Errorw("failed to persist language", "language", cred.Language, "error", err)
	}
	if err := c.deps.Translator.Use(cred.Language); err != nil {
		logger.Log.Errorw("failed to switch language", "language", cred.Language, "error", err)
	}
	c.publish(scoped, cred, true, 0)

	logger.Log.Infow("login succeeded", "username", cred.Username, "language", cred.Language)

	return c.deps.Navigator.NavigateByURL(RootRoute)
}

func (c *LoginController) handleError(ctx context.Context, cred models.LoginCredential, err error) {
	status := models.StatusCode(err)

	var msg string
	switch status {
	case http.StatusGatewayTimeout:
		msg = c.deps.Translator.Instant(i18n.KeyConnectError)
	case http.StatusBadRequest:
		msg = errorMsg(err)
	default:
		msg = c.deps.Translator.Instant(i18n.KeyUnknownError) + strconv.Itoa(status)
	}

	c.mu.Lock()
	c.isError = true
	c.message = msg
	c.mu.Unlock()

	logger.Log.Warnw("login failed", "username", cred.Username, "status", status, "error", err)

	c.publish(ctx, cred, false, status)
	c.createCaptcha(ctx)
}

func (c *LoginController) publish(ctx context.Context, cred models.LoginCredential, success bool, status int) {
	if c.deps.Events == nil {
		return
	}
	event := models.LoginEvent{
		ID:         uuid.New(),
		Username:   cred.Username,
		Language:   cred.Language,
		Success:    success,
		StatusCode: status,
		OccurredAt: time.Now().UTC(),
	}
	if err := c.deps.Events.Publish(ctx, event); err != nil {
		logger.Log.Warnw("login event dropped", "event_id", event.ID, "error", err)
	}
}

// ForgotPassword opens the password recovery dialog.
func (c *LoginController) ForgotPassword() error {
	if c.deps.ForgotPassword == nil {
		return nil
	}
	return c.deps.ForgotPassword.Open()
}

// Close cancels outstanding calls; their results are discarded.
func (c *LoginController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
}

// scope derives a context that also ends when the controller is closed.
func (c *LoginController) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	c.mu.Lock()
	lifetime := c.ctx
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	if lifetime == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *LoginController) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.ctx == nil {
		return ErrNotInitialized
	}
	return nil
}

func (c *LoginController) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetCredential fills the form fields typed by the user.
func (c *LoginController) SetCredential(username, password, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.credential.Username = username
	c.credential.Password = password
	c.credential.Code = code
}

// SetLanguage selects the language the session is opened in.
func (c *LoginController) SetLanguage(lang string) error {
	if !i18n.Valid(lang) {
		return errors.New("invalid language " + strconv.Quote(lang))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential.Language = lang
	return nil
}

// SetAuthMethod selects the authentication backend.
func (c *LoginController) SetAuthMethod(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential.AuthMethod = method
}

// Credential returns a copy of the form fields.
func (c *LoginController) Credential() models.LoginCredential {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential
}

// Captcha returns the current captcha.
func (c *LoginController) Captcha() models.Captcha {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captcha
}

// Theme returns the fetched theme, nil until one was received.
func (c *LoginController) Theme() *models.Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theme
}

// Message returns the text shown under the form.
func (c *LoginController) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// IsError reports whether Message describes a failure.
func (c *LoginController) IsError() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isError
}

// errorMsg returns the server message carried by err, or its text.
func errorMsg(err error) string {
	var respErr *models.ResponseError
	if errors.As(err, &respErr) && respErr.Msg != "" {
		return respErr.Msg
	}
	return err.Error()
}
