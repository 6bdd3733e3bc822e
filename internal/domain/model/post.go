package model

import "github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/docstore"

// MinTitleLength is the shortest accepted post title.
const MinTitleLength = 6

type Post struct {
	docstore.Base
	Title   string `json:"title" jsonschema:"minLength=6"`
	Slug    string `json:"slug"`
	Content string `json:"content"`
	UserID  string `json:"userId" jsonschema:"format=uuid"`
}

// Page selects a window of a listing. Page numbers start at 1.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"pageSize"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps p to valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	switch {
	case p.Size < 1:
		p.Size = DefaultPageSize
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PostList is one page of posts with the total match count.
type PostList struct {
	Items    []*Post `json:"items"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}
