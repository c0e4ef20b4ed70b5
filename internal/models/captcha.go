package models

// Captcha is the challenge returned by the captcha endpoint.
type Captcha struct {
	CaptchaID string `json:"captchaId"` // Id to send back with the login request
	Image     string `json:"image"`     // Base64 PNG, optionally as a data URL
}
