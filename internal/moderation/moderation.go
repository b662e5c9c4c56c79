// Package moderation is the admin review queue for new listings.
package moderation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/events"
	"github.com/fathima-sithara/quickads/internal/httpclient"
	"github.com/fathima-sithara/quickads/internal/metrics"
	"github.com/fathima-sithara/quickads/internal/models"
	"github.com/fathima-sithara/quickads/internal/resource"
)

// Posts is the read side the queue is built from.
type Posts interface {
	AllPosts(ctx context.Context) resource.Snapshot[[]models.AdPost]
	Find(ctx context.Context, postID string) (models.AdPost, error)
}

// Editor sends the edit request.
type Editor interface {
	PutJSON(ctx context.Context, path string, in, out any) error
}

type Row struct {
	PostID    string      `json:"postId"`
	Title     string      `json:"title"`
	Brand     string      `json:"brand"`
	Price     string      `json:"price"`
	Tags      []string    `json:"tags"`
	Label     string      `json:"label"`
	Verified  bool        `json:"verified"`
	CreatedAt models.Date `json:"createdAt"`
}

type Queue struct {
	Rows       []Row         `json:"rows"`
	View       resource.View `json:"view"`
	Validating bool          `json:"validating"`
}

type Service struct {
	posts     Posts
	api       Editor
	cache     *resource.Cache
	events    events.Publisher
	adminRole string
	log       *zap.Logger
}

func NewService(posts Posts, api Editor, cache *resource.Cache, pub events.Publisher, adminRole string, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if adminRole == "" {
		adminRole = "admin"
	}
	return &Service{posts: posts, api: api, cache: cache, events: pub, adminRole: adminRole, log: log}
}

// AdminRole is the role Accept and the queue require.
func (s *Service) AdminRole() string { return s.adminRole }

// Queue lists every post with its moderation label. pendingOnly drops the
// verified ones.
func (s *Service) Queue(ctx context.Context, p auth.Principal, pendingOnly bool) (Queue, error) {
	if err := p.RequireRole(s.adminRole); err != nil {
		return Queue{}, err
	}
	snap := s.posts.AllPosts(ctx)
	if snap.Err != nil {
		return Queue{View: snap.View()}, snap.Err
	}
	rows := make([]Row, 0, len(snap.Data))
	for _, post := range snap.Data {
		if pendingOnly && post.Verify {
			continue
		}
		rows = append(rows, Row{
			PostID:    post.Key(),
			Title:     post.Title,
			Brand:     post.Brand,
			Price:     post.Price,
			Tags:      post.Tags,
			Label:     post.Label(),
			Verified:  post.Verify,
			CreatedAt: post.CreatedAt,
		})
	}
	view := snap.View()
	if view == resource.ViewReady && len(rows) == 0 {
		view = resource.ViewEmpty
	}
	return Queue{Rows: rows, View: view, Validating: snap.Validating}, nil
}

// Detail returns one post for the review dialog.
func (s *Service) Detail(ctx context.Context, p auth.Principal, postID string) (models.AdPost, error) {
	if err := p.RequireRole(s.adminRole); err != nil {
		return models.AdPost{}, err
	}
	return s.posts.Find(ctx, postID)
}

// Accept marks postID verified. The full post is sent back with verify set;
// concurrent accepts are not deduplicated and the last write wins.
func (s *Service) Accept(ctx context.Context, p auth.Principal, postID string) (models.AdPost, error) {
	if err := p.RequireRole(s.adminRole); err != nil {
		metrics.ModerationActions.WithLabelValues("accept", "forbidden").Inc()
		return models.AdPost{}, err
	}
	post, err := s.posts.Find(ctx, postID)
	if err != nil {
		metrics.ModerationActions.WithLabelValues("accept", "not_found").Inc()
		return models.AdPost{}, err
	}
	post.Verify = true

	err = s.cache.Mutate(ctx, resource.Mutation{
		Name:        events.TypePostAccepted,
		Invalidates: []string{httpclient.PathAllPosts, httpclient.PathVerifiedPosts},
		Do: func(ctx context.Context) error {
			return s.api.PutJSON(ctx, httpclient.EditPost(post.Key()), post, nil)
		},
	})
	if err != nil {
		metrics.ModerationActions.WithLabelValues("accept", "error").Inc()
		s.log.Warn("accept failed", zap.String("post_id", postID), zap.Error(err))
		return models.AdPost{}, fmt.Errorf("accept post: %w", err)
	}
	metrics.ModerationActions.WithLabelValues("accept", "ok").Inc()
	s.log.Info("post accepted", zap.String("post_id", post.Key()), zap.String("admin", p.UserID))

	if err := s.events.Publish(ctx, events.Event{
		Type:    events.TypePostAccepted,
		PostID:  post.Key(),
		ActorID: p.UserID,
		At:      time.Now().UTC(),
	}); err != nil {
		s.log.Warn("accept event dropped", zap.String("post_id", post.Key()), zap.Error(err))
	}
	return post, nil
}
