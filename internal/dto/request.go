package dto

// SubmitMaterialRequest is the public request-intake payload. Validation is
// enumerated by the service so every violated rule is reported at once.
type SubmitMaterialRequest struct {
	Course       string `json:"course"`
	Email        string `json:"email"`
	Details      string `json:"details"`
	CaptchaToken string `json:"captcha_token"`
}
