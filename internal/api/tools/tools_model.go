package tools

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// Tool is one entry in the AI tool directory. When LogoURL is empty the
// client renders the FallbackIcon instead.
type Tool struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	Description  string        `json:"description"`
	Category     *Category     `json:"category,omitempty"`
	WebsiteURL   string        `json:"website_url"`
	LogoURL      *string       `json:"logo_url,omitempty"`
	FallbackIcon *FallbackIcon `json:"fallback_icon,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// FallbackIcon is the letter tile shown when a tool has no logo: the
// first letter of the name on a color picked deterministically from it.
type FallbackIcon struct {
	Initial string `json:"initial"`
	Color   string `json:"color"`
}

type CreateToolParams struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	CategorySlug string  `json:"category"`
	WebsiteURL   string  `json:"website_url"`
	LogoURL      *string `json:"logo_url,omitempty"`
}

type ListToolsFilter struct {
	CategorySlug string
	Search       string
}
