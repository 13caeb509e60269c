package repositoryimpl

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/voicetask/internal/pushsubscription"
	"github.com/kazz187/voicetask/pkg/cerr"
	"github.com/kazz187/voicetask/pkg/storage"
)

const pushSubscriptionsPrefix = "push_subscriptions"

// YAMLRepository stores one YAML file per subscription.
type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func subscriptionPath(id string) string {
	return path.Join(pushSubscriptionsPrefix, id+".yaml")
}

func (r *YAMLRepository) Save(ctx context.Context, s *pushsubscription.Subscription) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal push subscription: %w", err))
	}
	if err := r.storage.Write(ctx, subscriptionPath(s.ID), data); err != nil {
		return cerr.WrapStorageWriteError("push_subscription", err)
	}
	return nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*pushsubscription.Subscription, error) {
	paths, err := r.storage.List(ctx, pushSubscriptionsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("push_subscriptions", err)
	}
	sort.Strings(paths)

	all := make([]*pushsubscription.Subscription, 0, len(paths))
	for _, p := range paths {
		if path.Ext(p) != ".yaml" {
			continue
		}
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable push subscription", "path", p, "error", err)
			continue
		}
		var s pushsubscription.Subscription
		if err := yaml.Unmarshal(data, &s); err != nil {
			slog.WarnContext(ctx, "skipping malformed push subscription", "path", p, "error", err)
			continue
		}
		all = append(all, &s)
	}
	return all, nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, subscriptionPath(id)); err != nil {
		return cerr.WrapStorageDeleteError("push_subscription", err)
	}
	return nil
}

func (r *YAMLRepository) FindByEndpoint(ctx context.Context, endpoint string) (*pushsubscription.Subscription, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.Endpoint == endpoint {
			return s, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "push subscription not found", nil)
}
