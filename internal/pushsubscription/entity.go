// Package pushsubscription keeps the browser endpoints that receive
// spoken feedback as web push notifications.
package pushsubscription

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/voicetask/pkg/cerr"
)

type Subscription struct {
	ID        string    `yaml:"id" json:"id"`
	Endpoint  string    `yaml:"endpoint" json:"endpoint"`
	P256dhKey string    `yaml:"p256dh_key" json:"p256dh_key"`
	AuthKey   string    `yaml:"auth_key" json:"auth_key"`
	UserAgent string    `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// New builds a subscription from what the browser's PushManager returns.
func New(endpoint, p256dh, auth, userAgent string, now time.Time) (*Subscription, error) {
	s := &Subscription{
		ID:        ulid.Make().String(),
		Endpoint:  strings.TrimSpace(endpoint),
		P256dhKey: strings.TrimSpace(p256dh),
		AuthKey:   strings.TrimSpace(auth),
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Subscription) Validate() error {
	switch {
	case s.Endpoint == "":
		return cerr.NewValidationError("endpoint", "required", "endpoint is required")
	case !strings.HasPrefix(s.Endpoint, "https://"):
		return cerr.NewValidationError("endpoint", "scheme", "endpoint must be an https URL")
	case s.P256dhKey == "":
		return cerr.NewValidationError("p256dh_key", "required", "p256dh_key is required")
	case s.AuthKey == "":
		return cerr.NewValidationError("auth_key", "required", "auth_key is required")
	}
	return nil
}

// Refresh copies new keys from a re-registration of the same endpoint.
func (s *Subscription) Refresh(other *Subscription, now time.Time) {
	s.P256dhKey = other.P256dhKey
	s.AuthKey = other.AuthKey
	if other.UserAgent != "" {
		s.UserAgent = other.UserAgent
	}
	s.UpdatedAt = now
}
