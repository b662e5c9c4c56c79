// Package profile reads and writes the user's profile and profile photo.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/httpclient"
	"github.com/fathima-sithara/quickads/internal/models"
	"github.com/fathima-sithara/quickads/internal/resource"
	"github.com/fathima-sithara/quickads/internal/storage"
)

type Upstream interface {
	Get(ctx context.Context, path string) ([]byte, error)
	PostJSON(ctx context.Context, path string, in, out any) error
}

type Service struct {
	api      Upstream
	cache    *resource.Cache
	uploader storage.Uploader
	validate *validator.Validate
	log      *zap.Logger
}

func NewService(api Upstream, cache *resource.Cache, uploader storage.Uploader, log *zap.Logger) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{api: api, cache: cache, uploader: uploader, validate: v, log: log}
}

// Get returns the caller's profile. A missing profile is Empty, not an error.
func (s *Service) Get(ctx context.Context, p auth.Principal) (resource.Snapshot[*models.UserProfile], error) {
	if err := p.RequireUser(); err != nil {
		return resource.Snapshot[*models.UserProfile]{}, err
	}
	key := httpclient.Profile(p.UserID)
	snap := resource.Load(ctx, s.cache, key, s.fetch(key), decodeProfile,
		func(v *models.UserProfile) bool { return v == nil })
	return snap, snap.Err
}

// Create stores a new profile for the caller.
func (s *Service) Create(ctx context.Context, p auth.Principal, in models.UserProfile) error {
	return s.save(ctx, p, in, "create profile", func(ctx context.Context, body models.UserProfile) error {
		return s.api.PostJSON(ctx, httpclient.PathCreateProfile, body, nil)
	})
}

// Update replaces the caller's profile.
func (s *Service) Update(ctx context.Context, p auth.Principal, in models.UserProfile) error {
	return s.save(ctx, p, in, "update profile", func(ctx context.Context, body models.UserProfile) error {
		return s.api.PostJSON(ctx, httpclient.UpdateProfile(p.UserID), body, nil)
	})
}

// save always writes as the caller; a userId in the body is ignored.
func (s *Service) save(ctx context.Context, p auth.Principal, in models.UserProfile, name string, do func(context.Context, models.UserProfile) error) error {
	if err := p.RequireUser(); err != nil {
		return err
	}
	in.UserID = p.UserID
	if err := apperr.FromValidator(s.validate.Struct(in)); err != nil {
		return err
	}
	err := s.cache.Mutate(ctx, resource.Mutation{
		Name:        name,
		Invalidates: []string{httpclient.Profile(p.UserID)},
		Do: func(ctx context.Context) error {
			return do(ctx, in)
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Photo returns the caller's photo URL, or "" when none is set.
func (s *Service) Photo(ctx context.Context, p auth.Principal) (resource.Snapshot[string], error) {
	if err := p.RequireUser(); err != nil {
		return resource.Snapshot[string]{}, err
	}
	key := httpclient.ProfilePhoto(p.UserID)
	snap := resource.Load(ctx, s.cache, key, s.fetch(key), decodePhoto,
		func(v string) bool { return v == "" })
	return snap, snap.Err
}

// PhotoUpload is an image to store before linking it to the profile.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SetPhoto uploads img when given, then links imageURL (or the uploaded URL)
// to the profile. replace selects the edit endpoint over create.
func (s *Service) SetPhoto(ctx context.Context, p auth.Principal, imageURL string, img *PhotoUpload, replace bool) (string, error) {
	if err := p.RequireUser(); err != nil {
		return "", err
	}
	if img != nil {
		if s.uploader == nil {
			return "", fmt.Errorf("%w: image upload is not configured", apperr.ErrBadRequest)
		}
		res, err := s.uploader.Upload(ctx, storage.Upload{
			OwnerID:     p.UserID,
			Filename:    img.Filename,
			ContentType: img.ContentType,
			Size:        img.Size,
			Body:        img.Body,
		})
		if err != nil {
			return "", err
		}
		imageURL = res.URL
	}
	if imageURL == "" {
		return "", apperr.ValidationErrors{{Field: "image", Tag: "required", Message: "image is required"}}
	}

	body := models.ProfilePhoto{UserID: p.UserID, Image: imageURL}
	err := s.cache.Mutate(ctx, resource.Mutation{
		Name:        "profile photo",
		Invalidates: []string{httpclient.ProfilePhoto(p.UserID)},
		Do: func(ctx context.Context) error {
			if replace {
				return s.api.PostJSON(ctx, httpclient.EditProfilePhoto(p.UserID), map[string]string{"image": imageURL}, nil)
			}
			return s.api.PostJSON(ctx, httpclient.PathCreateProfilePic, body, nil)
		},
	})
	if err != nil {
		return "", fmt.Errorf("profile photo: %w", err)
	}
	s.log.Info("profile photo saved", zap.String("user_id", p.UserID), zap.Bool("replace", replace))
	return imageURL, nil
}

func (s *Service) fetch(key string) resource.Fetcher {
	return func(ctx context.Context) ([]byte, error) {
		return s.api.Get(ctx, key)
	}
}

// decodeProfile accepts {profile:{..}}, {data:{..}} or a bare object.
func decodeProfile(b []byte) (*models.UserProfile, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var wrapped struct {
		Profile *models.UserProfile `json:"profile"`
		Data    *models.UserProfile `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Profile != nil {
		return wrapped.Profile, nil
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	var bare models.UserProfile
	if err := json.Unmarshal(b, &bare); err != nil {
		return nil, err
	}
	if bare.UserID == "" && bare.Username == "" && bare.Email == "" {
		return nil, nil
	}
	return &bare, nil
}

// decodePhoto takes the first entry's image.
func decodePhoto(b []byte) (string, error) {
	photos, err := models.DecodeList[models.ProfilePhoto](b)
	if err != nil {
		return "", err
	}
	if len(photos) == 0 {
		return "", nil
	}
	return photos[0].Image, nil
}
