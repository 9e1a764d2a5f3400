package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"

	"purrform/pkg/auth"
	"purrform/pkg/backend"
	"purrform/pkg/geocode"
	"purrform/pkg/role"
)

const (
	dateLayout         = "2006-01-02"
	maxCertificateSize = 10 << 20
	muxVarID           = "id"
)

// certificateTypes are the file kinds a breeder may upload, matched on content.
var certificateTypes = []string{"application/pdf", "image/png", "image/jpeg", "image/webp"}

func sniffCertificate(data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	for _, want := range certificateTypes {
		if mt.Is(want) {
			return want, true
		}
	}
	return mt.String(), false
}

type Backend interface {
	ListBreederCertificates(ctx context.Context, status backend.CertificateStatus) ([]backend.BreederCertificate, error)
	ReviewBreederCertificate(ctx context.Context, id string, review backend.Review) (*backend.BreederCertificate, error)
	UploadBreederCertificate(ctx context.Context, up backend.CertificateUpload) (*backend.BreederCertificate, error)
	ListDeliveryDates(ctx context.Context) ([]backend.DeliveryDate, error)
	UpdateDeliveryDate(ctx context.Context, d backend.DeliveryDate) (*backend.DeliveryDate, error)
	SearchRecallProducts(ctx context.Context, q backend.RecallQuery) ([]backend.RecallProduct, error)
	TraderCreditReport(ctx context.Context, from, to string) (*backend.TraderCreditReport, error)
	ListIngredients(ctx context.Context) ([]backend.Ingredient, error)
	GetIngredient(ctx context.Context, id string) (*backend.Ingredient, error)
	CreateIngredient(ctx context.Context, in backend.Ingredient) (*backend.Ingredient, error)
	UpdateIngredient(ctx context.Context, in backend.Ingredient) (*backend.Ingredient, error)
	DeleteIngredient(ctx context.Context, id string) error
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Location, error)
}

type DashboardHandler struct {
	Backend  Backend
	Geocoder Geocoder
	Verifier *auth.Verifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func NewDashboardHandler(b Backend, g Geocoder, v *auth.Verifier, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		Backend:  b,
		Geocoder: g,
		Verifier: v,
		Logger:   logger,
		Now:      time.Now,
	}
}

// authorize runs the session check every dashboard page starts with. When it
// returns false the response has already been written.
func (h *DashboardHandler) authorize(w http.ResponseWriter, r *http.Request) (role.Role, bool) {
	switch out := h.Verifier.VerifySession(w, r).(type) {
	case auth.Authorized:
		if !out.Role.Permits(r.URL.Path) {
			http.Redirect(w, r, out.Role.Landing(), http.StatusSeeOther)
			return "", false
		}
		return out.Role, true
	case auth.RedirectRequired:
		http.Redirect(w, r, out.Target, http.StatusSeeOther)
		return "", false
	default:
		writeError(w, http.StatusInternalServerError, typeError, "session check failed")
		return "", false
	}
}

func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	pending, err := h.Backend.ListBreederCertificates(r.Context(), backend.StatusPending)
	if err != nil {
		writeUpstreamError(w, h.Logger, "load pending certificates", err)
		return
	}

	writeJSON(w, h.Logger, map[string]any{
		"page":                "dashboard",
		"pendingCertificates": len(pending),
		"certificates":        pending,
	})
}

func (h *DashboardHandler) BreederCertificates(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	status := backend.CertificateStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, typeMessage, "invalid status")
		return
	}

	certs, err := h.Backend.ListBreederCertificates(r.Context(), status)
	if err != nil {
		writeUpstreamError(w, h.Logger, "load certificates", err)
		return
	}
	writeJSON(w, h.Logger, certs)
}

func (h *DashboardHandler) ReviewCertificate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	var review backend.Review
	if ok := DecodeJSONBody(w, r, &review); !ok {
		return
	}
	if review.Status != backend.StatusApproved && review.Status != backend.StatusRejected {
		writeError(w, http.StatusBadRequest, typeMessage, "status must be approved or rejected")
		return
	}

	id := mux.Vars(r)[muxVarID]
	cert, err := h.Backend.ReviewBreederCertificate(r.Context(), id, review)
	if err != nil {
		writeUpstreamError(w, h.Logger, "review certificate", err)
		return
	}

	if ok := writeJSON(w, h.Logger, cert); ok {
		h.Logger.Info("certificate reviewed", "id", id, "status", review.Status)
	}
}

func (h *DashboardHandler) UploadPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Logger, map[string]any{
		"page":    "breeder-certificate",
		"fields":  []string{"breederName", "email", "kennelName", "certificate"},
		"maxSize": maxCertificateSize,
	})
}

// UploadCertificate takes the public breeder form. No session is needed.
func (h *DashboardHandler) UploadCertificate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCertificateSize+1<<20)
	if err := r.ParseMultipartForm(maxCertificateSize); err != nil {
		writeError(w, http.StatusBadRequest, typeMessage, "invalid upload form")
		return
	}

	up := backend.CertificateUpload{
		BreederName: strings.TrimSpace(r.FormValue("breederName")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		KennelName:  strings.TrimSpace(r.FormValue("kennelName")),
	}
	if up.BreederName == "" || !strings.Contains(up.Email, "@") {
		writeError(w, http.StatusBadRequest, typeMessage, "breeder name and a valid email are required")
		return
	}

	f, hdr, err := r.FormFile("certificate")
	if err != nil {
		writeError(w, http.StatusBadRequest, typeMessage, "certificate file is required")
		return
	}
	defer f.Close()

	up.File, err = io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, typeMessage, "could not read certificate file")
		return
	}
	contentType, ok := sniffCertificate(up.File)
	if !ok {
		h.Logger.Debug("certificate rejected", "detected", contentType, "declared", hdr.Header.Get("Content-Type"))
		writeError(w, http.StatusUnsupportedMediaType, typeMessage, "certificate must be a PDF or an image")
		return
	}
	up.FileName = hdr.Filename
	up.ContentType = contentType

	cert, err := h.Backend.UploadBreederCertificate(r.Context(), up)
	if err != nil {
		writeUpstreamError(w, h.Logger, "upload certificate", err)
		return
	}

	if ok := WriteResp(w, h.Logger, cert, http.StatusCreated); ok {
		h.Logger.Info("certificate uploaded", "id", cert.ID)
	}
}

func (h *DashboardHandler) DeliveryDates(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	dates, err := h.Backend.ListDeliveryDates(r.Context())
	if err != nil {
		writeUpstreamError(w, h.Logger, "load delivery dates", err)
		return
	}
	writeJSON(w, h.Logger, dates)
}

func (h *DashboardHandler) UpdateDeliveryDate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	var d backend.DeliveryDate
	if ok := DecodeJSONBody(w, r, &d); !ok {
		return
	}
	if _, err := time.Parse(dateLayout, d.Date); err != nil {
		writeError(w, http.StatusBadRequest, typeMessage, "date must be YYYY-MM-DD")
		return
	}
	d.ID = mux.Vars(r)[muxVarID]

	updated, err := h.Backend.UpdateDeliveryDate(r.Context(), d)
	if err != nil {
		writeUpstreamError(w, h.Logger, "update delivery date", err)
		return
	}

	if ok := writeJSON(w, h.Logger, updated); ok {
		h.Logger.Info("delivery date updated", "id", d.ID, "date", d.Date)
	}
}

func (h *DashboardHandler) RecallProducts(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	q := backend.RecallQuery{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Batch: strings.TrimSpace(r.URL.Query().Get("batch")),
	}
	if q.Query == "" && q.Batch == "" {
		writeJSON(w, h.Logger, []backend.RecallProduct{})
		return
	}

	products, err := h.Backend.SearchRecallProducts(r.Context(), q)
	if err != nil {
		writeUpstreamError(w, h.Logger, "search recall products", err)
		return
	}
	writeJSON(w, h.Logger, products)
}

// TraderCredit defaults to the current month up to today.
func (h *DashboardHandler) TraderCredit(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	now := h.Now()
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format(dateLayout)
	}
	if to == "" {
		to = now.Format(dateLayout)
	}

	start, err1 := time.Parse(dateLayout, from)
	end, err2 := time.Parse(dateLayout, to)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, typeMessage, "dates must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, typeMessage, "from must not be after to")
		return
	}

	report, err := h.Backend.TraderCreditReport(r.Context(), from, to)
	if err != nil {
		writeUpstreamError(w, h.Logger, "load trader credit", err)
		return
	}
	writeJSON(w, h.Logger, report)
}

type IngredientForm struct {
	Name     string `json:"name"`
	Supplier string `json:"supplier"`
	Address  string `json:"address"`
	Country  string `json:"country"`
}

func (f IngredientForm) valid() bool {
	return strings.TrimSpace(f.Name) != "" && strings.TrimSpace(f.Address) != ""
}

func (f IngredientForm) query() string {
	if f.Country == "" {
		return f.Address
	}
	return f.Address + ", " + f.Country
}

func (h *DashboardHandler) Ingredients(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	list, err := h.Backend.ListIngredients(r.Context())
	if err != nil {
		writeUpstreamError(w, h.Logger, "load ingredients", err)
		return
	}
	writeJSON(w, h.Logger, list)
}

func (h *DashboardHandler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	var form IngredientForm
	if ok := DecodeJSONBody(w, r, &form); !ok {
		return
	}
	if !form.valid() {
		writeError(w, http.StatusBadRequest, typeMessage, "name and address are required")
		return
	}

	loc, err := h.Geocoder.Geocode(r.Context(), form.query())
	if err != nil {
		writeUpstreamError(w, h.Logger, "geocode ingredient", err)
		return
	}

	created, err := h.Backend.CreateIngredient(r.Context(), backend.Ingredient{
		Name:      form.Name,
		Supplier:  form.Supplier,
		Address:   form.Address,
		Country:   form.Country,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	})
	if err != nil {
		writeUpstreamError(w, h.Logger, "create ingredient", err)
		return
	}

	if ok := WriteResp(w, h.Logger, created, http.StatusCreated); ok {
		h.Logger.Info("ingredient created", "id", created.ID)
	}
}

// UpdateIngredient only geocodes again when the address moved.
func (h *DashboardHandler) UpdateIngredient(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	var form IngredientForm
	if ok := DecodeJSONBody(w, r, &form); !ok {
		return
	}
	if !form.valid() {
		writeError(w, http.StatusBadRequest, typeMessage, "name and address are required")
		return
	}

	id := mux.Vars(r)[muxVarID]
	current, err := h.Backend.GetIngredient(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, h.Logger, "load ingredient", err)
		return
	}

	next := backend.Ingredient{
		ID:        id,
		Name:      form.Name,
		Supplier:  form.Supplier,
		Address:   form.Address,
		Country:   form.Country,
		Latitude:  current.Latitude,
		Longitude: current.Longitude,
	}
	if form.Address != current.Address || form.Country != current.Country {
		loc, err := h.Geocoder.Geocode(r.Context(), form.query())
		if err != nil {
			writeUpstreamError(w, h.Logger, "geocode ingredient", err)
			return
		}
		next.Latitude, next.Longitude = loc.Latitude, loc.Longitude
	}

	updated, err := h.Backend.UpdateIngredient(r.Context(), next)
	if err != nil {
		writeUpstreamError(w, h.Logger, "update ingredient", err)
		return
	}

	if ok := writeJSON(w, h.Logger, updated); ok {
		h.Logger.Info("ingredient updated", "id", id)
	}
}

func (h *DashboardHandler) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	id := mux.Vars(r)[muxVarID]
	if err := h.Backend.DeleteIngredient(r.Context(), id); err != nil {
		writeUpstreamError(w, h.Logger, "delete ingredient", err)
		return
	}

	if ok := writeJSON(w, h.Logger, map[string]string{"message": "success"}); ok {
		h.Logger.Info("ingredient deleted", "id", id)
	}
}

func (h *DashboardHandler) GeocodeAddress(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	loc, err := h.Geocoder.Geocode(r.Context(), r.URL.Query().Get("address"))
	if errors.Is(err, geocode.ErrEmptyAddress) {
		writeError(w, http.StatusBadRequest, typeMessage, "address is required")
		return
	}
	if err != nil {
		writeUpstreamError(w, h.Logger, "geocode address", err)
		return
	}
	writeJSON(w, h.Logger, loc)
}
