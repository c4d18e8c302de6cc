package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// RenderedDir is the storage subdirectory holding rendered results.
const RenderedDir = "rendered"

// Render statuses.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Render represents a request to run an encoded pipeline over a stored source image.
type Render struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`  // URL-safe pipeline token
	Source    string    `json:"source"` // object path of the source image
	Path      string    `json:"path"`   // object path of the rendered image, empty until processed
	Status    string    `json:"status"` // pending / processed / failed
	CreatedAt time.Time `json:"created_at"`
}

// ObjectName returns the file name under which the rendered result is stored.
// Tokens are deterministic, so the same pipeline over the same source always
// maps to the same name.
func (r Render) ObjectName() string {
	sum := sha256.Sum256([]byte(r.Token + "\x00" + r.Source))
	return hex.EncodeToString(sum[:]) + ".jpg"
}

// CachePath returns the storage path of the rendered result.
func (r Render) CachePath() string {
	return RenderedDir + "/" + r.ObjectName()
}
