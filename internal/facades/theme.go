package facades

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/kologin/internal/models"
)

// ThemeHTTPFacade reads the console display theme.
type ThemeHTTPFacade struct {
	api apiClient
}

// NewThemeHTTPFacade creates a new facade for the console at baseURL.
func NewThemeHTTPFacade(baseURL string, client *http.Client) *ThemeHTTPFacade {
	return &ThemeHTTPFacade{api: newAPIClient(baseURL, client)}
}

// Get returns the current theme.
func (f *ThemeHTTPFacade) Get(ctx context.Context) (*models.Theme, error) {
	var theme models.Theme
	if err := f.api.do(ctx, http.MethodGet, ThemePath, nil, &theme); err != nil {
		return nil, err
	}
	return &theme, nil
}
