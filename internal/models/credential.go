package models

// Authentication backends accepted by the session endpoint.
const (
	AuthMethodLocal = "local"
	AuthMethodLDAP  = "ldap"
)

// LoginCredential represents the JSON body posted to the session endpoint
// swagger:model LoginCredential
type LoginCredential struct {
	// Username
	// required: true
	// example: admin
	Username string `json:"username"`

	// Password
	// required: true
	// example: kubeoperator@admin123
	Password string `json:"password"`

	// Language the session is opened in
	// example: zh-CN
	Language string `json:"language"`

	// Id of the captcha the code answers
	CaptchaID string `json:"captchaId"`

	// Captcha answer typed by the user
	Code string `json:"code"`

	// Authentication backend
	// example: local
	AuthMethod string `json:"authMethod,omitempty"`
}
