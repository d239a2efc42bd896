// Package domain defines the memory entity and the values it is built from.
package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Category classifies a memory.
type Category string

const (
	CategoryKnowledge  Category = "Knowledge"
	CategoryExperience Category = "Experience"
	CategoryLesson     Category = "Lesson"
	CategoryMistake    Category = "Mistake"
)

// Categories lists every accepted category in display order.
var Categories = []Category{CategoryKnowledge, CategoryExperience, CategoryLesson, CategoryMistake}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryKnowledge, CategoryExperience, CategoryLesson, CategoryMistake:
		return true
	}
	return false
}

// Visibility controls who can read a memory.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// DisplayDateLayout renders creation dates as "January 2, 2006".
const DisplayDateLayout = "January 2, 2006"

// PreviewLength is the number of characters kept by Memory.Preview.
const PreviewLength = 150

// Memory is an immutable record of user-submitted text.
type Memory struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Category   Category   `json:"category"`
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility"`
	OwnerID    string     `json:"ownerId"`
	// AuthorLabel is only set on public memories.
	AuthorLabel      *string `json:"authorLabel"`
	CreatedAtEpoch   int64   `json:"createdAtEpoch"`
	CreatedAtDisplay string  `json:"createdAtDisplay"`
}

// IsPublic reports whether the memory is world-readable.
func (m Memory) IsPublic() bool {
	return m.Visibility == VisibilityPublic
}

// CreatedAt returns the creation instant.
func (m Memory) CreatedAt() time.Time {
	return time.UnixMilli(m.CreatedAtEpoch)
}

// Preview returns the content cut to PreviewLength characters with a trailing ellipsis.
func (m Memory) Preview() string {
	if utf8.RuneCountInString(m.Content) <= PreviewLength {
		return m.Content
	}
	runes := []rune(m.Content)
	return string(runes[:PreviewLength]) + "..."
}

// Draft is the caller-supplied part of a new memory.
// Visibility is optional; an empty value means private.
type Draft struct {
	Title      string
	Category   Category
	Content    string
	Visibility Visibility
}

// CountLabel renders "1 memory" or "N memories".
func CountLabel(n int) string {
	if n == 1 {
		return "1 memory"
	}
	return fmt.Sprintf("%d memories", n)
}
