package models

// Theme holds the display settings of the console.
type Theme struct {
	SystemName string `json:"systemName,omitempty"`
	Logo       string `json:"logo,omitempty"`
	LogoAbout  string `json:"logoAbout,omitempty"`
}
