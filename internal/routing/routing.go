package routing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"purrform/pkg/auth"
	"purrform/pkg/handlers"
	"purrform/pkg/middleware"
	"purrform/pkg/role"
	"purrform/pkg/session"
	"purrform/pkg/user"
)

const (
	staticPath   = "./static"
	staticPrefix = "/_next/static/"
)

type Deps struct {
	Users        user.ServiceInterface
	Sessions     *session.Manager
	Backend      handlers.Backend
	Geocoder     handlers.Geocoder
	LoginLimiter *middleware.IPRateLimiter
	Logger       *slog.Logger
}

// NewHandler builds the router and wraps it so the gate sees every request,
// matched or not.
func NewHandler(d Deps) http.Handler {
	r := mux.NewRouter()
	InitRoutes(r, d)
	ServeStaticFiles(r)

	var h http.Handler = r
	h = middleware.Gate(d.Sessions, d.Logger)(h)
	h = auth.Scope(h)
	h = middleware.Panic(d.Logger)(h)
	h = middleware.RequestLog(d.Logger)(h)
	return h
}

func InitRoutes(r *mux.Router, d Deps) {
	verifier := auth.NewVerifier(d.Sessions, d.Logger)

	authHandler := handlers.NewAuthHandler(d.Users, d.Sessions, d.Logger)
	dashHandler := handlers.NewDashboardHandler(d.Backend, d.Geocoder, verifier, d.Logger)

	/* public pages */
	r.HandleFunc(role.HomePath, authHandler.Home).Methods(http.MethodGet)
	r.HandleFunc(role.LoginPath, authHandler.LoginPage).Methods(http.MethodGet)
	r.HandleFunc(role.LoginPath, middleware.RateLimit(d.LoginLimiter, authHandler.Login)).Methods(http.MethodPost)
	r.HandleFunc(role.BreederCertificatePath, dashHandler.UploadPage).Methods(http.MethodGet)
	r.HandleFunc(role.BreederCertificatePath, dashHandler.UploadCertificate).Methods(http.MethodPost)

	r.HandleFunc("/api/logout", authHandler.Logout).Methods(http.MethodPost)

	/* dashboard */
	dash := r.PathPrefix(role.DashboardPath).Subrouter()
	dash.HandleFunc("", dashHandler.Overview).Methods(http.MethodGet)
	dash.HandleFunc("/breeder-certificates", dashHandler.BreederCertificates).Methods(http.MethodGet)
	dash.HandleFunc("/breeder-certificates/{id}/review", dashHandler.ReviewCertificate).Methods(http.MethodPost)
	dash.HandleFunc("/delivery-dates", dashHandler.DeliveryDates).Methods(http.MethodGet)
	dash.HandleFunc("/delivery-dates/{id}", dashHandler.UpdateDeliveryDate).Methods(http.MethodPut)
	dash.HandleFunc("/recall-products", dashHandler.RecallProducts).Methods(http.MethodGet)
	dash.HandleFunc("/trader-credit", dashHandler.TraderCredit).Methods(http.MethodGet)
	dash.HandleFunc("/ingredients", dashHandler.Ingredients).Methods(http.MethodGet)
	dash.HandleFunc("/ingredients", dashHandler.CreateIngredient).Methods(http.MethodPost)
	dash.HandleFunc("/ingredients/geocode", dashHandler.GeocodeAddress).Methods(http.MethodGet)
	dash.HandleFunc("/ingredients/{id}", dashHandler.UpdateIngredient).Methods(http.MethodPut)
	dash.HandleFunc("/ingredients/{id}", dashHandler.DeleteIngredient).Methods(http.MethodDelete)
}

func ServeStaticFiles(r *mux.Router) {
	fs := http.FileServer(http.Dir(staticPath))
	r.PathPrefix(staticPrefix).Handler(http.StripPrefix(staticPrefix, fs))
}

// StartServer serves until ctx is cancelled, then drains in-flight requests.
func StartServer(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("The server is running", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
