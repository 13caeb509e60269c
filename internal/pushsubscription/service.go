package pushsubscription

import (
	"context"
	"time"

	"github.com/kazz187/voicetask/pkg/cerr"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register is idempotent per endpoint: a known endpoint gets its keys
// refreshed instead of a second record.
func (s *Service) Register(ctx context.Context, endpoint, p256dh, auth, userAgent string) (*Subscription, error) {
	now := s.now()
	sub, err := New(endpoint, p256dh, auth, userAgent, now)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByEndpoint(ctx, sub.Endpoint)
	switch {
	case err == nil:
		existing.Refresh(sub, now)
		sub = existing
	case !cerr.IsCode(err, cerr.NotFound):
		return nil, err
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) Unregister(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return cerr.NewValidationError("endpoint", "required", "endpoint is required")
	}
	sub, err := s.repo.FindByEndpoint(ctx, endpoint)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, sub.ID)
}

func (s *Service) List(ctx context.Context) ([]*Subscription, error) {
	return s.repo.List(ctx)
}

// Remove drops a subscription the push service reported as gone.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
