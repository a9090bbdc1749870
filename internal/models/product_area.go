package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductArea is a routing bucket with an owner. Feedback is auto-assigned to
// the closest area by embedding similarity.
type ProductArea struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
	Color       string     `json:"color,omitempty"`
	Embedding   []float32  `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Routable reports whether the area can receive routed feedback: it needs
// both an embedding to compare against and an owner to assign.
func (a *ProductArea) Routable() bool {
	return len(a.Embedding) > 0 && a.OwnerID != nil
}
