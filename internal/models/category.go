package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Category is a named product grouping with a unique slug
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Slugify derives a category slug: lowercase, whitespace runs replaced by "-"
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// CategoryRefKind tags which variant a CategoryRef holds
type CategoryRefKind int

const (
	CategoryRefID CategoryRefKind = iota
	CategoryRefPopulated
)

// CategoryRef is either a bare category id or a fully loaded Category.
// Stores decide which variant to return; callers switch on Kind.
type CategoryRef struct {
	kind     CategoryRefKind
	id       string
	category *Category
}

// CategoryID builds an id-only reference
func CategoryID(id string) CategoryRef {
	return CategoryRef{kind: CategoryRefID, id: id}
}

// PopulatedCategory builds a reference carrying the loaded category
func PopulatedCategory(c Category) CategoryRef {
	return CategoryRef{kind: CategoryRefPopulated, id: c.ID, category: &c}
}

// Kind returns the variant tag
func (r CategoryRef) Kind() CategoryRefKind {
	return r.kind
}

// ID returns the referenced category id for either variant
func (r CategoryRef) ID() string {
	return r.id
}

// Category returns the loaded category when the reference is populated
func (r CategoryRef) Category() (*Category, bool) {
	if r.kind != CategoryRefPopulated || r.category == nil {
		return nil, false
	}
	return r.category, true
}

// MarshalJSON writes an id reference as a JSON string and a populated one as an object
func (r CategoryRef) MarshalJSON() ([]byte, error) {
	if c, ok := r.Category(); ok {
		return json.Marshal(c)
	}
	return json.Marshal(r.id)
}

// UnmarshalJSON accepts category ids only; clients never send populated categories
func (r *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return errors.New("category reference must be an id string")
	}
	*r = CategoryID(id)
	return nil
}
