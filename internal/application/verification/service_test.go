package verification

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/otp-api-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockTokenStore struct{ mock.Mock }

func (m *mockTokenStore) Insert(ctx context.Context, t *domain.VerificationToken) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockTokenStore) FindByEmailAndCode(ctx context.Context, email, code string) ([]domain.VerificationToken, error) {
	args := m.Called(ctx, email, code)
	if ts, _ := args.Get(0).([]domain.VerificationToken); ts != nil {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenStore) Delete(ctx context.Context, tokenID string) error {
	return m.Called(ctx, tokenID).Error(0)
}
func (m *mockTokenStore) Consume(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

type mockDelivery struct {
	mock.Mock
	configured bool
}

func (m *mockDelivery) Configured() bool { return m.configured }
func (m *mockDelivery) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(email string) (string, error) {
	args := m.Called(email)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newService(ts *mockTokenStore, dl *mockDelivery, sg ProofSigner) Service {
	deps := ServiceDeps{
		Tokens: ts,
		OTPTTL: 5 * time.Minute,
	}
	if dl != nil {
		deps.Delivery = dl
	}
	if sg != nil {
		deps.Signer = sg
	}
	return NewService(deps)
}

var codeShape = regexp.MustCompile(`^\d{6}$`)

// --- Issue ---

func TestIssue_MissingEmail_ReturnsBadRequest(t *testing.T) {
	svc := newService(nil, nil, nil)
	_, err := svc.Issue(context.Background(), IssueRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Contains(t, err.Error(), "email is required")
}

func TestIssue_MalformedEmail_ReturnsBadRequest(t *testing.T) {
	svc := newService(nil, nil, nil)
	_, err := svc.Issue(context.Background(), IssueRequest{Email: "not-an-address"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Contains(t, err.Error(), "valid email")
}

func TestIssue_StoreFailure_NoDeliveryAttempt(t *testing.T) {
	ts := &mockTokenStore{}
	dl := &mockDelivery{configured: true}
	ts.On("Insert", mock.Anything, mock.AnythingOfType("*domain.VerificationToken")).
		Return(errors.New("dynamo unavailable"))

	svc := newService(ts, dl, nil)
	_, err := svc.Issue(context.Background(), IssueRequest{Email: "user@example.com"})

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrBadRequest))
	dl.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_HappyPath_Delivered(t *testing.T) {
	ts := &mockTokenStore{}
	dl := &mockDelivery{configured: true}

	var stored *domain.VerificationToken
	ts.On("Insert", mock.Anything, mock.AnythingOfType("*domain.VerificationToken")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.VerificationToken) }).
		Return(nil)
	dl.On("Send", mock.Anything, "user@example.com", mock.Anything, mock.Anything).Return(nil)

	svc := newService(ts, dl, nil)
	result, err := svc.Issue(context.Background(), IssueRequest{Email: "User@Example.com"})

	require.NoError(t, err)
	assert.False(t, result.DevMode)
	assert.Empty(t, result.DevOTP)
	assert.NotContains(t, result.Message, stored.Code)

	require.NotNil(t, stored)
	assert.Equal(t, "user@example.com", stored.Email)
	assert.Regexp(t, codeShape, stored.Code)
	assert.NotEmpty(t, stored.TokenID)
	assert.Equal(t, stored.CreatedAt.Add(5*time.Minute).Unix(), stored.ExpiresAt)

	// Delivery must carry the code, to the normalized address.
	body := dl.Calls[0].Arguments.String(3)
	assert.Contains(t, body, stored.Code)
	ts.AssertExpectations(t)
	dl.AssertExpectations(t)
}

func TestIssue_DegradedMode_ReturnsCodeToCaller(t *testing.T) {
	ts := &mockTokenStore{}
	dl := &mockDelivery{configured: false}

	var stored *domain.VerificationToken
	ts.On("Insert", mock.Anything, mock.AnythingOfType("*domain.VerificationToken")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.VerificationToken) }).
		Return(nil)

	svc := newService(ts, dl, nil)
	result, err := svc.Issue(context.Background(), IssueRequest{Email: "user@example.com"})

	require.NoError(t, err)
	assert.True(t, result.DevMode)
	require.NotNil(t, stored)
	assert.Equal(t, stored.Code, result.DevOTP)
	dl.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_DeliveryFailure_TokenStaysPersisted(t *testing.T) {
	ts := &mockTokenStore{}
	dl := &mockDelivery{configured: true}
	ts.On("Insert", mock.Anything, mock.AnythingOfType("*domain.VerificationToken")).Return(nil)
	dl.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp: connection refused"))

	svc := newService(ts, dl, nil)
	_, err := svc.Issue(context.Background(), IssueRequest{Email: "user@example.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDeliveryFailed))
	// No rollback: the token was inserted and no delete follows.
	ts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// --- Verify ---

func TestVerify_MissingFields_NoStoreAccess(t *testing.T) {
	svc := newService(nil, nil, nil)
	_, err := svc.Verify(context.Background(), VerifyRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestVerify_MalformedCode_NoStoreAccess(t *testing.T) {
	svc := newService(nil, nil, nil)
	for _, code := range []string{"12a456", "12345", "1234567", ""} {
		_, err := svc.Verify(context.Background(), VerifyRequest{Email: "user@example.com", OTP: code})
		require.Error(t, err, "code %q", code)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), "code %q", code)
	}
}

func TestVerify_NotFound(t *testing.T) {
	ts := &mockTokenStore{}
	ts.On("FindByEmailAndCode", mock.Anything, "user@example.com", "482913").
		Return([]domain.VerificationToken{}, nil)

	svc := newService(ts, nil, nil)
	_, err := svc.Verify(context.Background(), VerifyRequest{Email: "user@example.com", OTP: "482913"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "not found")
	ts.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
}

func TestVerify_Expired_ConsumesAndReports(t *testing.T) {
	ts := &mockTokenStore{}
	ts.On("FindByEmailAndCode", mock.Anything, "user@example.com", "482913").
		Return([]domain.VerificationToken{{
			TokenID:   "t1",
			Email:     "user@example.com",
			Code:      "482913",
			ExpiresAt: time.Now().Add(-time.Second).Unix(),
		}}, nil)
	ts.On("Delete", mock.Anything, "t1").Return(nil)

	svc := newService(ts, nil, nil)
	_, err := svc.Verify(context.Background(), VerifyRequest{Email: "user@example.com", OTP: "482913"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExpired))
	assert.Contains(t, err.Error(), "expired")
	ts.AssertCalled(t, "Delete", mock.Anything, "t1")
	ts.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
}

func TestVerify_HappyPath_SingleUse(t *testing.T) {
	ts := &mockTokenStore{}
	ts.On("FindByEmailAndCode", mock.Anything, "user@example.com", "482913").
		Return([]domain.VerificationToken{{
			TokenID:   "t1",
			Email:     "user@example.com",
			Code:      "482913",
			ExpiresAt: time.Now().Add(4 * time.Minute).Unix(),
		}}, nil)
	ts.On("Consume", mock.Anything, "t1").Return(true, nil)

	svc := newService(ts, nil, nil)
	result, err := svc.Verify(context.Background(), VerifyRequest{Email: "user@example.com", OTP: "482913"})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Message)
	assert.Empty(t, result.ProofToken)
	ts.AssertExpectations(t)
}

func TestVerify_ConcurrentConsume_LoserGetsNotFound(t *testing.T) {
	ts := &mockTokenStore{}
	ts.On("FindByEmailAndCode", mock.Anything, "user@example.com", "482913").
		Return([]domain.VerificationToken{{
			TokenID:   "t1",
			Email:     "user@example.com",
			Code:      "482913",
			ExpiresAt: time.Now().Add(time.Minute).Unix(),
		}}, nil)
	ts.On("Consume", mock.Anything, "t1").Return(false, nil)

	svc := newService(ts, nil, nil)
	_, err := svc.Verify(context.Background(), VerifyRequest{Email: "user@example.com", OTP: "482913"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerify_MultipleMatches_PicksEarliest(t *testing.T) {
	older := domain.VerificationToken{
		TokenID:   "t-old",
		Email:     "user@example.com",
		Code:      "482913",
		CreatedAt: time.Now().Add(-2 * time.Minute),
		ExpiresAt: time.Now().Add(3 * time.Minute).Unix(),
	}
	newer := older
	newer.TokenID = "t-new"
	newer.CreatedAt = time.Now()
	newer.ExpiresAt = time.Now().Add(5 * time.Minute).Unix()

	ts := &mockTokenStore{}
	ts.On("FindByEmailAndCode", mock.Anything, "user@example.com", "482913").
		Return([]domain.VerificationToken{older, newer}, nil)
	ts.On("Consume", mock.Anything, "t-old").Return(true, nil)

	svc := newService(ts, nil, nil)
	_, err := svc.Verify(context.Background(), VerifyRequest{Email: "user@example.com", OTP: "482913"})

	require.NoError(t, err)
	ts.AssertCalled(t, "Consume", mock.Anything, "t-old")
}

func TestVerify_NormalizesEmailBeforeLookup(t *testing.T) {
	ts := &mockTokenStore{}
	ts.On("FindByEmailAndCode", mock.Anything, "user@example.com", "482913").
		Return([]domain.VerificationToken{}, nil)

	svc := newService(ts, nil, nil)
	_, err := svc.Verify(context.Background(), VerifyRequest{Email: "USER@Example.COM", OTP: "482913"})

	require.Error(t, err)
	ts.AssertCalled(t, "FindByEmailAndCode", mock.Anything, "user@example.com", "482913")
}

func TestVerify_WithSigner_ReturnsProofToken(t *testing.T) {
	ts := &mockTokenStore{}
	sg := &mockSigner{}
	ts.On("FindByEmailAndCode", mock.Anything, "user@example.com", "482913").
		Return([]domain.VerificationToken{{
			TokenID:   "t1",
			Email:     "user@example.com",
			Code:      "482913",
			ExpiresAt: time.Now().Add(time.Minute).Unix(),
		}}, nil)
	ts.On("Consume", mock.Anything, "t1").Return(true, nil)
	sg.On("Sign", "user@example.com").Return("signed-proof", nil)

	svc := newService(ts, nil, sg)
	result, err := svc.Verify(context.Background(), VerifyRequest{Email: "user@example.com", OTP: "482913"})

	require.NoError(t, err)
	assert.Equal(t, "signed-proof", result.ProofToken)
}

func TestVerify_SignerFailure_StillVerified(t *testing.T) {
	ts := &mockTokenStore{}
	sg := &mockSigner{}
	ts.On("FindByEmailAndCode", mock.Anything, "user@example.com", "482913").
		Return([]domain.VerificationToken{{
			TokenID:   "t1",
			Email:     "user@example.com",
			Code:      "482913",
			ExpiresAt: time.Now().Add(time.Minute).Unix(),
		}}, nil)
	ts.On("Consume", mock.Anything, "t1").Return(true, nil)
	sg.On("Sign", "user@example.com").Return("", errors.New("no key"))

	svc := newService(ts, nil, sg)
	result, err := svc.Verify(context.Background(), VerifyRequest{Email: "user@example.com", OTP: "482913"})

	require.NoError(t, err)
	assert.Empty(t, result.ProofToken)
}
