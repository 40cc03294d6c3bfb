// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/audience-insights/internal/auth"
	"github.com/tomtom215/audience-insights/internal/authz"
	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/middleware"
)

// Route groups, also the Casbin objects checked by authz.
const (
	GroupEngagement = "engagement"
	GroupMap        = "map"
	GroupNielsen    = "nielsen"
	GroupUserAdmin  = "useradmin"
)

// Router wires the handler into a chi route tree.
type Router struct {
	cfg       *config.ServerConfig
	handler   *Handler
	authn     *auth.Middleware
	authorize *authz.Middleware
}

// NewRouter creates a Router.
func NewRouter(cfg *config.ServerConfig, handler *Handler, authn *auth.Middleware, authorize *authz.Middleware) *Router {
	return &Router{cfg: cfg, handler: handler, authn: authn, authorize: authorize}
}

// Setup builds the HTTP handler serving every route.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	// Global middleware, in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.cors())
	r.Use(middleware.PrometheusMetrics)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(apiSecurityHeaders)

		r.Route("/auth", func(r chi.Router) {
			r.Use(router.rateLimitAuth())
			r.Post("/check_email", h.CheckEmail)
			r.Post("/send_verification_code", h.SendVerificationCode)
			r.Post("/refresh_verification_code", h.RefreshVerificationCode)
			r.Post("/verify_signup", h.VerifySignup)
			r.Post("/login", h.Login)
			r.Post("/request_password_reset", h.RequestPasswordReset)
			r.Post("/reset_password", h.ResetPassword)
		})

		r.Route("/engagement", func(r chi.Router) {
			router.protect(r, GroupEngagement)
			r.Get("/data_range", h.DataRange)
			r.Post("/ytd", h.YTD)
			r.Post("/mom", h.MoM)
			r.Post("/over_time", h.OverTime)
			r.Post("/rank", h.Rank)
			r.Post("/hev", h.HEV)
			r.Post("/engagement_quarterly", h.Quarterly)
			r.Post("/periodicity_history", h.PeriodicityHistory)
		})

		r.Route("/map", func(r chi.Router) {
			router.protect(r, GroupMap)
			r.Get("/coverage_snzips", h.CoverageSNZips)
		})

		r.Route("/nielsen", func(r chi.Router) {
			router.protect(r, GroupNielsen)
			r.Post("/verify_upload_file", h.VerifyUploadFile)
			r.Post("/verify_benchmark_file", h.VerifyBenchmarkFile)
			r.Post("/generate_nielsen_report", h.GenerateNielsenReport)
			r.Post("/download_daily_eml_report", h.DownloadDailyEMLReport)

			r.Get("/download_benchmark_15min", h.DownloadBenchmark15Min)
			r.Get("/get_benchmark_15min_name", h.GetBenchmark15MinName)
			r.Get("/download_benchmark_dayparts", h.DownloadBenchmarkDayparts)
			r.Get("/get_benchmark_dayparts_name", h.GetBenchmarkDaypartsName)
			r.Post("/update_benchmark_files", h.UpdateBenchmarkFiles)

			r.Get("/get_subject_lines", h.GetSubjectLines)
			r.Post("/update_subject_lines", h.UpdateSubjectLines)
			r.Get("/get_email_recipients", h.GetEmailRecipients)
			r.Post("/update_email_recipients", h.UpdateEmailRecipients)
			r.Get("/get_report_notes", h.GetReportNotes)
			r.Post("/update_report_notes", h.UpdateReportNotes)
			r.Get("/get_dma_list", h.GetDMAList)
			r.Get("/get_dma_name_mapping", h.GetDMANameMapping)
			r.Post("/update_dma_name_mapping", h.UpdateDMANameMapping)
			r.Get("/get_dma_penetration", h.GetDMAPenetration)
			r.Get("/get_4_additional_mapping_file", h.GetAdditionalMappingFile)
		})

		r.Route("/useradmin", func(r chi.Router) {
			router.protect(r, GroupUserAdmin)
			r.Get("/get_current_users", h.GetCurrentUsers)
			r.Post("/update_user_role", h.UpdateUserRole)
			r.Post("/delete_user", h.DeleteUser)
			r.Get("/get_pre_approved_emails", h.GetPreApprovedEmails)
			r.Post("/add_pre_approved_email", h.AddPreApprovedEmail)
			r.Post("/delete_pre_approved_email", h.DeletePreApprovedEmail)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

// protect requires a session token whose role may access group.
func (router *Router) protect(r chi.Router, group string) {
	r.Use(router.authn.Authenticate)
	r.Use(router.authorize.Authorize(group))
}

func (router *Router) cors() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   router.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// rateLimitAuth limits the unauthenticated account endpoints per client IP.
// A non-positive limit disables it.
func (router *Router) rateLimitAuth() func(http.Handler) http.Handler {
	if router.cfg.AuthRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		router.cfg.AuthRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, try again later", nil)
		}),
	)
}

// apiSecurityHeaders sets the headers every JSON API response carries.
func apiSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
