package domain

// Clan представляет группу участников (клан)
type Clan struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}
