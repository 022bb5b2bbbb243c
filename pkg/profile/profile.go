// Package profile persists user identities used to attribute discovered
// resources and to inject credential headers into proxied requests.
package profile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ColorTags is the closed set of allowed profile colors.
var ColorTags = []string{"blue", "red", "green", "purple", "orange", "yellow"}

// UserProfile is a named identity with a credential header set.
type UserProfile struct {
	ID            string            `json:"id"`
	DisplayName   string            `json:"displayName"`
	ColorTag      string            `json:"colorTag"`
	Authorization string            `json:"authorization,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	CreatedAt     int64             `json:"createdAt"`
	UpdatedAt     int64             `json:"updatedAt"`
}

// NewUserProfile creates a profile with a fresh UUID and timestamps.
func NewUserProfile(displayName, colorTag string) (*UserProfile, error) {
	if displayName == "" {
		return nil, fmt.Errorf("display name is required")
	}
	if !ValidColorTag(colorTag) {
		return nil, fmt.Errorf("invalid color tag %q", colorTag)
	}

	now := time.Now().UnixMilli()
	return &UserProfile{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		ColorTag:    colorTag,
		Headers:     map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidColorTag reports whether tag is in the allowed set.
func ValidColorTag(tag string) bool {
	for _, c := range ColorTags {
		if c == tag {
			return true
		}
	}
	return false
}
