// Package posts creates, edits and deletes listings and serves the cached
// post collections.
package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/events"
	"github.com/fathima-sithara/quickads/internal/httpclient"
	"github.com/fathima-sithara/quickads/internal/models"
	"github.com/fathima-sithara/quickads/internal/resource"
	"github.com/fathima-sithara/quickads/internal/storage"
)

// Upstream is the part of the API client the service uses.
type Upstream interface {
	Get(ctx context.Context, path string) ([]byte, error)
	PutJSON(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string, out any) error
	PostMultipart(ctx context.Context, path string, form httpclient.Form, out any) error
}

type Service struct {
	api         Upstream
	cache       *resource.Cache
	uploader    storage.Uploader
	events      events.Publisher
	validate    *validator.Validate
	listingPath string
	log         *zap.Logger
}

type Options struct {
	// ListingPath is where the client goes after a successful submit.
	ListingPath string
	Uploader    storage.Uploader
	Events      events.Publisher
}

func NewService(api Upstream, cache *resource.Cache, opts Options, log *zap.Logger) *Service {
	pub := opts.Events
	if pub == nil {
		pub = events.Nop{}
	}
	path := opts.ListingPath
	if path == "" {
		path = "/dashboard/posts"
	}
	return &Service{
		api:         api,
		cache:       cache,
		uploader:    opts.Uploader,
		events:      pub,
		validate:    newValidator(),
		listingPath: path,
		log:         log,
	}
}

// SubmitResult tells the client where to go once the form is cleared.
type SubmitResult struct {
	PostID   string          `json:"postId,omitempty"`
	Redirect string          `json:"redirect"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Invalidates lists the read keys any post write makes stale.
func Invalidates(userID string) []string {
	keys := []string{httpclient.PathAllPosts, httpclient.PathVerifiedPosts}
	if userID != "" {
		keys = append(keys, httpclient.UserPosts(userID))
	}
	return keys
}

// Submit validates f and creates a post, or edits postID when it is set.
// Files are forwarded as multipart parts; on edit they are pushed to object
// storage first and their URLs appended to Images. A new post is always
// owned by the caller.
func (s *Service) Submit(ctx context.Context, p auth.Principal, f Form, postID string) (SubmitResult, error) {
	if err := p.RequireUser(); err != nil {
		return SubmitResult{}, err
	}
	if postID == "" || f.UserID == "" {
		f.UserID = p.UserID
	}
	if err := f.Validate(s.validate); err != nil {
		return SubmitResult{}, err
	}

	var out json.RawMessage
	m := resource.Mutation{Invalidates: Invalidates(f.UserID)}
	if f.UserID != p.UserID {
		m.Invalidates = append(m.Invalidates, httpclient.UserPosts(p.UserID))
	}
	if postID == "" {
		m.Name = events.TypePostCreated
		m.Do = func(ctx context.Context) error { return s.create(ctx, f, &out) }
	} else {
		m.Name = events.TypePostUpdated
		m.Do = func(ctx context.Context) error { return s.edit(ctx, p.UserID, f, postID, &out) }
	}
	if err := s.cache.Mutate(ctx, m); err != nil {
		s.log.Warn("post submit failed", zap.String("op", m.Name), zap.String("post_id", postID), zap.Error(err))
		return SubmitResult{}, err
	}

	id := postID
	if id == "" {
		id = createdID(out)
	}
	s.publish(ctx, m.Name, id, p.UserID)
	return SubmitResult{PostID: id, Redirect: s.listingPath, Data: out}, nil
}

func (s *Service) create(ctx context.Context, f Form, out *json.RawMessage) error {
	fields, err := f.multipartFields()
	if err != nil {
		return err
	}
	form := httpclient.Form{Fields: fields}
	for _, file := range f.Files {
		form.Files = append(form.Files, httpclient.FilePart{
			Field:       "images",
			Filename:    file.Filename,
			ContentType: file.ContentType,
			Body:        file.Body,
		})
	}
	if err := s.api.PostMultipart(ctx, httpclient.PathCreatePost, form, out); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (s *Service) edit(ctx context.Context, userID string, f Form, postID string, out *json.RawMessage) error {
	if len(f.Files) > 0 {
		if s.uploader == nil {
			return fmt.Errorf("%w: image upload is not configured", apperr.ErrBadRequest)
		}
		for _, file := range f.Files {
			res, err := s.uploader.Upload(ctx, storage.Upload{
				OwnerID:     userID,
				Filename:    file.Filename,
				ContentType: file.ContentType,
				Size:        file.Size,
				Body:        file.Body,
			})
			if err != nil {
				return err
			}
			f.Images = append(f.Images, models.Image{ImageURL: res.URL})
		}
		f.Files = nil
	}
	if err := s.api.PutJSON(ctx, httpclient.EditPost(postID), f, out); err != nil {
		return fmt.Errorf("edit post: %w", err)
	}
	return nil
}

// Delete removes postID owned by the caller.
func (s *Service) Delete(ctx context.Context, p auth.Principal, postID string) error {
	if err := p.RequireUser(); err != nil {
		return err
	}
	if postID == "" {
		return fmt.Errorf("%w: post id is required", apperr.ErrBadRequest)
	}
	err := s.cache.Mutate(ctx, resource.Mutation{
		Name:        events.TypePostDeleted,
		Invalidates: Invalidates(p.UserID),
		Do: func(ctx context.Context) error {
			return s.api.Delete(ctx, httpclient.DeletePost(p.UserID, postID), nil)
		},
	})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	s.publish(ctx, events.TypePostDeleted, postID, p.UserID)
	return nil
}

// AllPosts is every post, verified or not.
func (s *Service) AllPosts(ctx context.Context) resource.Snapshot[[]models.AdPost] {
	return s.list(ctx, httpclient.PathAllPosts)
}

// VerifiedPosts is what the public listing shows.
func (s *Service) VerifiedPosts(ctx context.Context) resource.Snapshot[[]models.AdPost] {
	return s.list(ctx, httpclient.PathVerifiedPosts)
}

// UserPosts is the posts owned by userID. No request is made for an empty id.
func (s *Service) UserPosts(ctx context.Context, userID string) resource.Snapshot[[]models.AdPost] {
	if userID == "" {
		return s.list(ctx, "")
	}
	return s.list(ctx, httpclient.UserPosts(userID))
}

// Find looks postID up in the all-posts collection.
func (s *Service) Find(ctx context.Context, postID string) (models.AdPost, error) {
	snap := s.AllPosts(ctx)
	if snap.Err != nil {
		return models.AdPost{}, snap.Err
	}
	for _, p := range snap.Data {
		if p.Key() == postID || p.ID == postID {
			return p, nil
		}
	}
	return models.AdPost{}, apperr.ErrNotFound
}

func (s *Service) list(ctx context.Context, key string) resource.Snapshot[[]models.AdPost] {
	return resource.LoadList(ctx, s.cache, key, func(ctx context.Context) ([]byte, error) {
		return s.api.Get(ctx, key)
	}, models.DecodeList[models.AdPost])
}

func (s *Service) publish(ctx context.Context, typ, postID, actor string) {
	err := s.events.Publish(ctx, events.Event{Type: typ, PostID: postID, ActorID: actor})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("post event dropped", zap.String("type", typ), zap.Error(err))
	}
}

// createdID digs the new post id out of the create response.
func createdID(raw json.RawMessage) string {
	var out map[string]any
	if json.Unmarshal(raw, &out) != nil || out == nil {
		return ""
	}
	src := out
	if d, ok := out["data"].(map[string]any); ok {
		src = d
	}
	for _, k := range []string{"postId", "_id", "id"} {
		if v, ok := src[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
