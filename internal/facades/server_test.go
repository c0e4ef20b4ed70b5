package facades

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mojocn/base64Captcha"

	"github.com/sbilibin2017/kologin/internal/models"
)

// fakeConsole mimics the console session, captcha and theme routes.
type fakeConsole struct {
	mu       sync.Mutex
	captcha  *base64Captcha.Captcha
	answers  map[string]string
	lastCred models.LoginCredential
	theme    models.Theme
	language string
}

func newFakeConsole(t *testing.T) (*fakeConsole, *httptest.Server) {
	t.Helper()

	fc := &fakeConsole{
		captcha: base64Captcha.NewCaptcha(
			base64Captcha.NewDriverDigit(40, 120, 4, 0.7, 80),
			base64Captcha.NewMemoryStore(base64Captcha.GCLimitNumber, base64Captcha.Expiration),
		),
		answers: map[string]string{},
		theme:   models.Theme{SystemName: "KubeOperator"},
	}

	r := chi.NewRouter()
	r.Get(CaptchaPath, fc.getCaptcha)
	r.Get(ThemePath, fc.getTheme)
	r.Post(SessionPath, fc.postSession)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fc, srv
}

func (fc *fakeConsole) getCaptcha(w http.ResponseWriter, r *http.Request) {
	id, b64s, answer, err := fc.captcha.Generate()
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "CAPTCHA_GENERATE_FAILED")
		return
	}
	fc.mu.Lock()
	fc.answers[id] = answer
	fc.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.Captcha{CaptchaID: id, Image: b64s})
}

func (fc *fakeConsole) getTheme(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(fc.theme)
}

func (fc *fakeConsole) postSession(w http.ResponseWriter, r *http.Request) {
	var cred models.LoginCredential
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fc.mu.Lock()
	fc.lastCred = cred
	fc.language = r.Header.Get("Accept-Language")
	fc.mu.Unlock()

	if !fc.captcha.Verify(cred.CaptchaID, cred.Code, true) {
		writeMsg(w, http.StatusBadRequest, "验证码错误")
		return
	}
	if cred.Username != "admin" || cred.Password != "secret" {
		writeMsg(w, http.StatusBadRequest, "bad credentials")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.Profile{
		User:  models.SessionUser{Name: cred.Username, Language: cred.Language, IsActive: true, IsAdmin: true},
		Token: "JWT_TOKEN",
	})
}

// answer returns the code of a captcha handed out by the fake console.
func (fc *fakeConsole) answer(id string) string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.answers[id]
}

func (fc *fakeConsole) lastCredential() models.LoginCredential {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lastCred
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Msg: msg})
}
