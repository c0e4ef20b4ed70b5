package facades

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/kologin/internal/models"
)

func TestSessionHTTPFacade_GetCode(t *testing.T) {
	_, srv := newFakeConsole(t)
	facade := NewSessionHTTPFacade(srv.URL, srv.Client())

	captcha, err := facade.GetCode(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, captcha.CaptchaID)
	assert.True(t, strings.HasPrefix(captcha.Image, "data:image/png;base64,"))
}

func TestSessionHTTPFacade_Login(t *testing.T) {
	fc, srv := newFakeConsole(t)
	facade := NewSessionHTTPFacade(srv.URL+"/", srv.Client())
	ctx := context.Background()

	tests := []struct {
		name       string
		username   string
		password   string
		wrongCode  bool
		wantStatus int
		wantMsg    string
	}{
		{
			name:     "success",
			username: "admin",
			password: "secret",
		},
		{
			name:       "bad credentials",
			username:   "admin",
			password:   "wrong",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "bad credentials",
		},
		{
			name:       "wrong captcha code",
			username:   "admin",
			password:   "secret",
			wrongCode:  true,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "验证码错误",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captcha, err := facade.GetCode(ctx)
			require.NoError(t, err)

			code := fc.answer(captcha.CaptchaID)
			if tt.wrongCode {
				code = "x" + code
			}
			cred := models.LoginCredential{
				Username:   tt.username,
				Password:   tt.password,
				Language:   "en-US",
				CaptchaID:  captcha.CaptchaID,
				Code:       code,
				AuthMethod: models.AuthMethodLocal,
			}

			profile, err := facade.Login(ctx, cred)
			assert.Equal(t, cred, fc.lastCredential())

			if tt.wantStatus != 0 {
				require.Error(t, err)
				assert.Nil(t, profile)
				var respErr *models.ResponseError
				require.ErrorAs(t, err, &respErr)
				assert.Equal(t, tt.wantStatus, respErr.StatusCode)
				assert.Equal(t, tt.wantMsg, respErr.Msg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "admin", profile.User.Name)
			assert.Equal(t, "en-US", profile.User.Language)
			assert.Equal(t, "JWT_TOKEN", profile.Token)
		})
	}
}

func TestSessionHTTPFacade_ErrorBodies(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "gateway timeout page", status: http.StatusGatewayTimeout, body: "<html>504</html>", wantStatus: 504, wantMsg: "<html>504</html>"},
		{name: "teapot envelope", status: http.StatusTeapot, body: `{"msg":"short and stout"}`, wantStatus: 418, wantMsg: "short and stout"},
		{name: "empty body", status: http.StatusInternalServerError, body: "", wantStatus: 500, wantMsg: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewSessionHTTPFacade(srv.URL, srv.Client()).Login(context.Background(), models.LoginCredential{})
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, models.StatusCode(err))
			var respErr *models.ResponseError
			require.ErrorAs(t, err, &respErr)
			assert.Equal(t, tt.wantMsg, respErr.Msg)
		})
	}
}

func TestSessionHTTPFacade_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewSessionHTTPFacade(url, &http.Client{Timeout: time.Second}).GetCode(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, models.StatusCode(err))
}

func TestSessionHTTPFacade_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSessionHTTPFacade(srv.URL, srv.Client()).GetCode(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, models.StatusCode(err))
}
