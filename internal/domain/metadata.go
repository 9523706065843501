package domain

// Metadata is the off-chain document behind a project's share URI.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}
