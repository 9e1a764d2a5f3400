package handlers_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"purrform/pkg/auth"
	"purrform/pkg/backend"
	"purrform/pkg/geocode"
	"purrform/pkg/role"
	"purrform/pkg/session"
	"purrform/pkg/token"
	"purrform/pkg/user"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Login(username, password string) (*user.User, error) {
	args := m.Called(username, password)
	if u := args.Get(0); u != nil {
		return u.(*user.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ListBreederCertificates(ctx context.Context, status backend.CertificateStatus) ([]backend.BreederCertificate, error) {
	args := m.Called(status)
	certs, _ := args.Get(0).([]backend.BreederCertificate)
	return certs, args.Error(1)
}

func (m *mockBackend) ReviewBreederCertificate(ctx context.Context, id string, review backend.Review) (*backend.BreederCertificate, error) {
	args := m.Called(id, review)
	cert, _ := args.Get(0).(*backend.BreederCertificate)
	return cert, args.Error(1)
}

func (m *mockBackend) UploadBreederCertificate(ctx context.Context, up backend.CertificateUpload) (*backend.BreederCertificate, error) {
	args := m.Called(up)
	cert, _ := args.Get(0).(*backend.BreederCertificate)
	return cert, args.Error(1)
}

func (m *mockBackend) ListDeliveryDates(ctx context.Context) ([]backend.DeliveryDate, error) {
	args := m.Called()
	dates, _ := args.Get(0).([]backend.DeliveryDate)
	return dates, args.Error(1)
}

func (m *mockBackend) UpdateDeliveryDate(ctx context.Context, d backend.DeliveryDate) (*backend.DeliveryDate, error) {
	args := m.Called(d)
	out, _ := args.Get(0).(*backend.DeliveryDate)
	return out, args.Error(1)
}

func (m *mockBackend) SearchRecallProducts(ctx context.Context, q backend.RecallQuery) ([]backend.RecallProduct, error) {
	args := m.Called(q)
	products, _ := args.Get(0).([]backend.RecallProduct)
	return products, args.Error(1)
}

func (m *mockBackend) TraderCreditReport(ctx context.Context, from, to string) (*backend.TraderCreditReport, error) {
	args := m.Called(from, to)
	report, _ := args.Get(0).(*backend.TraderCreditReport)
	return report, args.Error(1)
}

func (m *mockBackend) ListIngredients(ctx context.Context) ([]backend.Ingredient, error) {
	args := m.Called()
	list, _ := args.Get(0).([]backend.Ingredient)
	return list, args.Error(1)
}

func (m *mockBackend) GetIngredient(ctx context.Context, id string) (*backend.Ingredient, error) {
	args := m.Called(id)
	in, _ := args.Get(0).(*backend.Ingredient)
	return in, args.Error(1)
}

func (m *mockBackend) CreateIngredient(ctx context.Context, in backend.Ingredient) (*backend.Ingredient, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*backend.Ingredient)
	return out, args.Error(1)
}

func (m *mockBackend) UpdateIngredient(ctx context.Context, in backend.Ingredient) (*backend.Ingredient, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*backend.Ingredient)
	return out, args.Error(1)
}

func (m *mockBackend) DeleteIngredient(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (*geocode.Location, error) {
	args := m.Called(address)
	loc, _ := args.Get(0).(*geocode.Location)
	return loc, args.Error(1)
}

var testLogger = slog.New(slog.DiscardHandler)

type fixture struct {
	codec    *token.Codec
	sessions *session.Manager
	verifier *auth.Verifier
}

func newFixture(t *testing.T) *fixture {
	codec, err := token.New([]byte("handlers-test-secret-handlers-te"))
	require.NoError(t, err)
	sessions := session.NewManager(codec)
	return &fixture{
		codec:    codec,
		sessions: sessions,
		verifier: auth.NewVerifier(sessions, testLogger),
	}
}

func (f *fixture) signIn(t *testing.T, req *http.Request, rl role.Role) *http.Request {
	raw, err := f.codec.Encode(token.Payload{Role: rl})
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: raw})
	return req
}
