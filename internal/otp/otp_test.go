package otp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/apperr"
	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/httpclient"
	"github.com/fathima-sithara/quickads/internal/models"
	"github.com/fathima-sithara/quickads/internal/ratelimit"
	"github.com/fathima-sithara/quickads/internal/resource"
)

type fakeAPI struct {
	mu       sync.Mutex
	posts    []string
	verify   models.VerifyOTPResponse
	postErr  error
	records  string
	getCalls int
}

func (f *fakeAPI) Get(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	return []byte(f.records), nil
}

func (f *fakeAPI) PostJSON(_ context.Context, path string, in, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, path)
	if f.postErr != nil {
		return f.postErr
	}
	if out != nil {
		b, _ := json.Marshal(f.verify)
		return json.Unmarshal(b, out)
	}
	return nil
}

func (f *fakeAPI) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posts...)
}

func newService(t *testing.T, api *fakeAPI, limiter ratelimit.Limiter) *Service {
	t.Helper()
	c := resource.New(nil, resource.Options{FreshFor: time.Minute})
	t.Cleanup(c.Close)
	return NewService(api, c, limiter, zap.NewNop())
}

var user = auth.Principal{UserID: "u-1"}

func TestPhoneValidation(t *testing.T) {
	for _, ok := range []string{"+94715297881", "+12", "+447700900123"} {
		assert.True(t, ValidPhone(ok), ok)
	}
	for _, bad := range []string{"0715297881", "+0715297881", "94715297881", "+9471529788112345", "", "+94 715"} {
		assert.False(t, ValidPhone(bad), bad)
	}
}

func TestSendRejectsBadPhoneWithoutRequest(t *testing.T) {
	api := &fakeAPI{}
	s := newService(t, api, nil)

	err := s.SendCode(context.Background(), user, "0715297881")
	require.ErrorIs(t, err, ErrInvalidPhone)
	assert.Empty(t, api.calls())

	st, _ := s.Status(context.Background(), user)
	assert.Equal(t, StatusUnverified, st)
}

func TestSendMovesToPending(t *testing.T) {
	api := &fakeAPI{records: `[]`}
	s := newService(t, api, nil)

	require.NoError(t, s.SendCode(context.Background(), user, "+94715297881"))
	assert.Equal(t, []string{httpclient.PathSendOTP}, api.calls())

	st, err := s.Status(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st)
}

func TestSendIsThrottledPerPhone(t *testing.T) {
	lim := ratelimit.NewKeyed(1, 1)
	defer lim.Close()
	s := newService(t, &fakeAPI{}, lim)

	require.NoError(t, s.SendCode(context.Background(), user, "+94715297881"))
	require.ErrorIs(t, s.SendCode(context.Background(), user, "+94715297881"), apperr.ErrRateLimited)
}

func TestVerifyLegacyMessageMatch(t *testing.T) {
	cases := []struct {
		msg  string
		want Status
	}{
		{LegacySuccessMessage, StatusVerified},
		{"OTP verified successfully!", StatusPending},
		{"otp verified successfully", StatusPending},
		{"Success", StatusPending},
		{"", StatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			api := &fakeAPI{records: `[]`, verify: models.VerifyOTPResponse{Success: true, Message: tc.msg}}
			s := newService(t, api, nil)
			require.NoError(t, s.SendCode(context.Background(), user, "+94715297881"))

			st, err := s.VerifyCode(context.Background(), user, "+94715297881", "123456")
			assert.Equal(t, tc.want, st)
			if tc.want == StatusVerified {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrCodeRejected)
			}
		})
	}
}

func TestVerifyTypedStatusWins(t *testing.T) {
	assert.True(t, Confirmed(models.VerifyOTPResponse{Status: "verified", Message: "Phone confirmed"}))
	assert.False(t, Confirmed(models.VerifyOTPResponse{Status: "rejected", Message: LegacySuccessMessage}))
}

func TestVerifyValidatesInputFirst(t *testing.T) {
	api := &fakeAPI{}
	s := newService(t, api, nil)

	_, err := s.VerifyCode(context.Background(), user, "+94715297881", "12345")
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = s.VerifyCode(context.Background(), user, "0715297881", "123456")
	require.ErrorIs(t, err, ErrInvalidPhone)
	assert.Empty(t, api.calls())
}

func TestVerifyUpstreamFailureKeepsState(t *testing.T) {
	api := &fakeAPI{postErr: &apperr.UpstreamError{Status: 400, Message: "Invalid OTP"}}
	s := newService(t, api, nil)

	st, err := s.VerifyCode(context.Background(), user, "+94715297881", "000000")
	assert.Equal(t, StatusUnverified, st)
	assert.Equal(t, "Invalid OTP", apperr.Message(err, ""))
}

func TestStatusFromRecords(t *testing.T) {
	api := &fakeAPI{records: `[{"userId":"u-1","phoneNumber":"+94715297881","veryOTP":true}]`}
	s := newService(t, api, nil)

	st, err := s.Status(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, st)

	st, _ = s.Status(context.Background(), user)
	assert.Equal(t, StatusVerified, st)
	assert.Equal(t, 1, api.getCalls)
}

func TestGate(t *testing.T) {
	api := &fakeAPI{records: `{"success":true,"data":[{"userId":"u-1","veryOTP":false}]}`}
	s := newService(t, api, nil)
	ctx := context.Background()

	d, err := s.Gate(ctx, auth.Anonymous, "/auth/login", "/auth/verify")
	require.ErrorIs(t, err, ErrLoginRequired)
	assert.Equal(t, "/auth/login", d.Redirect)
	assert.Zero(t, api.getCalls)

	d, err = s.Gate(ctx, user, "/auth/login", "/auth/verify")
	require.ErrorIs(t, err, ErrVerificationRequired)
	assert.False(t, d.Allowed)
	assert.Equal(t, "/auth/verify", d.Redirect)

	api.verify = models.VerifyOTPResponse{Message: LegacySuccessMessage}
	_, err = s.VerifyCode(ctx, user, "+94715297881", "654321")
	require.NoError(t, err)

	d, err = s.Gate(ctx, user, "/auth/login", "/auth/verify")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
