package models

import "time"

type ServiceCategory struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Slug        string             `json:"slug"`
	ParentID    *int64             `json:"parent"`
	IsActive    bool               `json:"is_active"`
	SortOrder   int                `json:"sort_order"`
	Children    []*ServiceCategory `json:"children,omitempty"`
}

type Service struct {
	ID               int64     `json:"id"`
	CategoryID       int64     `json:"category"`
	CategoryName     string    `json:"category_name,omitempty"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	PriceRange       string    `json:"price_range"`
	DeliveryTime     string    `json:"delivery_time"`
	Features         []string  `json:"features"`
	IsActive         bool      `json:"is_active"`
	SortOrder        int       `json:"sort_order"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type PortfolioItem struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	CategoryID      int64     `json:"category"`
	CategoryName    string    `json:"category_name,omitempty"`
	Image           string    `json:"image"`
	ClientType      string    `json:"client_type"`
	CompletionDate  time.Time `json:"completion_date"`
	Technologies    []string  `json:"technologies"`
	ProjectDuration string    `json:"project_duration"`
	IsFeatured      bool      `json:"is_featured"`
	IsActive        bool      `json:"is_active"`
	SortOrder       int       `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SortUpdate is one entry of a bulk reorder call.
type SortUpdate struct {
	ID        int64 `json:"id"`
	SortOrder int   `json:"sort_order"`
}
