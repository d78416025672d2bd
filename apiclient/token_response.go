package apiclient

// TokenResponse is the response from the login, refresh, and OAuth exchange
// endpoints. TokenType is always "bearer" in this service.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}
