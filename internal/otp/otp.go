// Package otp tracks whether a user has verified a phone number and gates
// the post creation flow on it.
package otp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/httpclient"
	"github.com/fathima-sithara/quickads/internal/models"
	"github.com/fathima-sithara/quickads/internal/ratelimit"
	"github.com/fathima-sithara/quickads/internal/resource"
)

type Status string

const (
	StatusUnverified Status = "unverified"
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
)

// LegacySuccessMessage is the only message older API builds send on a
// successful verify. Matching it is a compatibility path; a typed status
// field wins when present.
const LegacySuccessMessage = "OTP verified successfully"

const codeLength = 6

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

var (
	ErrInvalidPhone         = errors.New("phone number must be in international format, e.g. +94715297881")
	ErrInvalidCode          = errors.New("verification code must be 6 characters")
	ErrCodeRejected         = errors.New("verification code was not accepted")
	ErrLoginRequired        = errors.New("login required")
	ErrVerificationRequired = errors.New("phone verification required")
)

// ValidPhone reports whether phone is an E.164 number.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// Upstream is the part of the API client the service uses.
type Upstream interface {
	Get(ctx context.Context, path string) ([]byte, error)
	PostJSON(ctx context.Context, path string, in, out any) error
}

type Service struct {
	api     Upstream
	cache   *resource.Cache
	limiter ratelimit.Limiter
	log     *zap.Logger

	mu     sync.Mutex
	states map[string]Status
}

// NewService builds the OTP service. limiter may be nil.
func NewService(api Upstream, cache *resource.Cache, limiter ratelimit.Limiter, log *zap.Logger) *Service {
	return &Service{
		api:     api,
		cache:   cache,
		limiter: limiter,
		log:     log,
		states:  map[string]Status{},
	}
}

// SendCode asks the API to text a code to phone. The number is validated
// before any request is made.
func (s *Service) SendCode(ctx context.Context, p auth.Principal, phone string) error {
	if err := p.RequireUser(); err != nil {
		return ErrLoginRequired
	}
	if !ValidPhone(phone) {
		return ErrInvalidPhone
	}
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, phone)
		if err != nil {
			s.log.Warn("otp limiter unavailable", zap.Error(err))
		} else if !ok {
			return apperr.ErrRateLimited
		}
	}
	if err := s.api.PostJSON(ctx, httpclient.PathSendOTP, models.SendOTPRequest{PhoneNumber: phone}, nil); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}

	s.mu.Lock()
	if s.states[p.UserID] != StatusVerified {
		s.states[p.UserID] = StatusPending
	}
	s.mu.Unlock()
	s.log.Info("otp sent", zap.String("user_id", p.UserID))
	return nil
}

// VerifyCode submits code for phone. It returns StatusVerified only when the
// API confirms success; every other answer leaves the state unchanged.
func (s *Service) VerifyCode(ctx context.Context, p auth.Principal, phone, code string) (Status, error) {
	if err := p.RequireUser(); err != nil {
		return StatusUnverified, ErrLoginRequired
	}
	if !ValidPhone(phone) {
		return s.current(p.UserID), ErrInvalidPhone
	}
	if len(code) != codeLength {
		return s.current(p.UserID), ErrInvalidCode
	}

	var resp models.VerifyOTPResponse
	req := models.VerifyOTPRequest{PhoneNumber: phone, OTP: code, UserID: p.UserID}
	if err := s.api.PostJSON(ctx, httpclient.PathVerifyOTP, req, &resp); err != nil {
		return s.current(p.UserID), fmt.Errorf("verify otp: %w", err)
	}
	if !Confirmed(resp) {
		if resp.Message != "" {
			return s.current(p.UserID), fmt.Errorf("%w: %s", ErrCodeRejected, resp.Message)
		}
		return s.current(p.UserID), ErrCodeRejected
	}

	s.mu.Lock()
	s.states[p.UserID] = StatusVerified
	s.mu.Unlock()
	s.cache.Invalidate(ctx, httpclient.OTPStatus(p.UserID))
	s.log.Info("phone verified", zap.String("user_id", p.UserID))
	return StatusVerified, nil
}

// Confirmed decides whether a verify response means success.
func Confirmed(resp models.VerifyOTPResponse) bool {
	if resp.Status != "" {
		return resp.Status == string(StatusVerified)
	}
	return resp.Message == LegacySuccessMessage
}

// Status resolves the verification state for p, consulting the API's OTP
// records when the user is not known to be verified locally.
func (s *Service) Status(ctx context.Context, p auth.Principal) (Status, error) {
	if !p.Authenticated() {
		return StatusUnverified, nil
	}
	if st := s.current(p.UserID); st == StatusVerified {
		return st, nil
	}
	records, err := s.Records(ctx, p.UserID)
	if err != nil {
		return s.current(p.UserID), err
	}
	for _, r := range records.Data {
		if r.Verified {
			s.mu.Lock()
			s.states[p.UserID] = StatusVerified
			s.mu.Unlock()
			return StatusVerified, nil
		}
	}
	return s.current(p.UserID), nil
}

// Records is the cached OTP record list for userID.
func (s *Service) Records(ctx context.Context, userID string) (resource.Snapshot[[]models.OTPRecord], error) {
	key := ""
	if userID != "" {
		key = httpclient.OTPStatus(userID)
	}
	snap := resource.LoadList(ctx, s.cache, key, func(ctx context.Context) ([]byte, error) {
		return s.api.Get(ctx, key)
	}, models.DecodeList[models.OTPRecord])
	return snap, snap.Err
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Status   Status `json:"status"`
	Redirect string `json:"redirect,omitempty"`
}

// Gate decides whether p may enter the post creation flow. An anonymous
// caller is sent to login before verification is looked at.
func (s *Service) Gate(ctx context.Context, p auth.Principal, loginPath, verifyPath string) (Decision, error) {
	if !p.Authenticated() {
		return Decision{Status: StatusUnverified, Redirect: loginPath}, ErrLoginRequired
	}
	st, err := s.Status(ctx, p)
	if err != nil {
		return Decision{Status: st}, err
	}
	if st != StatusVerified {
		return Decision{Status: st, Redirect: verifyPath}, ErrVerificationRequired
	}
	return Decision{Allowed: true, Status: st}, nil
}

func (s *Service) current(userID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[userID]; ok {
		return st
	}
	return StatusUnverified
}
