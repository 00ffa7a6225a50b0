package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/asset"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/auth"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/cloud"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/control"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/framework"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/integration"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/policy"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/risk"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/search"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/task"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/template"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/vendor"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/metrics"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Logger           *slog.Logger
	TokenVerifier    TokenVerifier
	RateLimiter      RateLimiter
	Metrics          *metrics.ServiceMetrics
	MiddlewareConfig *MiddlewareConfig
	AllowedOrigins   []string
	SearchEnabled    bool
}

// DefaultRouterConfig returns a default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:           slog.Default(),
		RateLimiter:      NewInMemoryRateLimiter(300, time.Minute),
		MiddlewareConfig: DefaultMiddlewareConfig(),
		AllowedOrigins:   []string{"*"},
		SearchEnabled:    true,
	}
}

// Services holds all service dependencies for the API.
type Services struct {
	Vendor      vendor.Service
	Framework   framework.Service
	Control     control.Service
	Asset       asset.Service
	Policy      policy.Service
	Template    template.Service
	Task        task.Service
	Risk        risk.Service
	Search      search.Service
	Integration integration.Service
	Cloud       cloud.Service
	SSO         *auth.SSOExchanger
}

// NewRouter creates a new chi router with all middleware and routes.
func NewRouter(config *RouterConfig, services *Services) chi.Router {
	if config == nil {
		config = DefaultRouterConfig()
	}
	if config.MiddlewareConfig == nil {
		config.MiddlewareConfig = DefaultMiddlewareConfig()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(config.Logger))
	r.Use(LoggingMiddleware(config.Logger))
	r.Use(middleware.RealIP)
	r.Use(CORSMiddleware(config.AllowedOrigins))
	r.Use(ContentTypeMiddleware)
	if config.Metrics != nil {
		r.Use(MetricsMiddleware(config.Metrics))
	}

	if config.TokenVerifier != nil {
		r.Use(AuthMiddleware(config.TokenVerifier, config.MiddlewareConfig))
	}
	if config.RateLimiter != nil {
		r.Use(RateLimitMiddleware(config.RateLimiter, config.MiddlewareConfig))
	}

	registerHealthRoutes(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	registerFeatureRoutes(r, config)
	registerAuthRoutes(r, services)
	registerVendorRoutes(r, services)
	registerFrameworkRoutes(r, services)
	registerControlRoutes(r, services)
	registerAssetRoutes(r, services)
	registerPolicyRoutes(r, services)
	registerTaskRoutes(r, services)
	registerRiskRoutes(r, services)
	if config.SearchEnabled {
		registerSearchRoutes(r, services)
	}
	registerIntegrationRoutes(r, services)
	registerCloudRoutes(r, services)

	return r
}

// registerHealthRoutes registers health check endpoints.
func registerHealthRoutes(r chi.Router) {
	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady)
}

// handleHealth returns overall API health.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: "1.0.0",
	})
}

// handleReady returns readiness status.
func handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HealthResponse represents health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// registerFeatureRoutes registers the feature status endpoint. Clients probe
// it before rendering optional UI such as the search control.
func registerFeatureRoutes(r chi.Router, config *RouterConfig) {
	r.Get("/api/v1/features", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{
			"search": config.SearchEnabled,
		})
	})
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(r chi.Router, services *Services) {
	if services == nil || services.SSO == nil {
		return
	}
	handler := NewAuthHandler(services.SSO)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/sso/exchange", handler.Exchange)
		r.Get("/me", handler.Me)
	})
}

// registerVendorRoutes registers vendor endpoints.
func registerVendorRoutes(r chi.Router, services *Services) {
	if services == nil || services.Vendor == nil {
		return
	}
	handler := NewVendorHandler(services.Vendor)
	r.Route("/api/v1/vendors", func(r chi.Router) {
		r.Post("/", handler.Create)
		r.Get("/", handler.List)
		r.Get("/stats", handler.Stats)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/assessments", handler.AddAssessment)
		r.Get("/{id}/assessments", handler.ListAssessments)
	})
}

// registerFrameworkRoutes registers framework and requirement endpoints.
func registerFrameworkRoutes(r chi.Router, services *Services) {
	if services == nil || services.Framework == nil {
		return
	}
	handler := NewFrameworkHandler(services.Framework)
	r.Route("/api/v1/frameworks", func(r chi.Router) {
		r.Post("/", handler.Create)
		r.Get("/", handler.List)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/requirements", handler.AddRequirement)
		r.Get("/{id}/requirements", handler.ListRequirements)
		r.Get("/{id}/gap-analysis", handler.GapAnalysis)
	})
	r.Route("/api/v1/requirements", func(r chi.Router) {
		r.Get("/{id}", handler.GetRequirement)
		r.Put("/{id}", handler.UpdateRequirement)
		r.Delete("/{id}", handler.DeleteRequirement)
	})
}

// registerControlRoutes registers control endpoints.
func registerControlRoutes(r chi.Router, services *Services) {
	if services == nil || services.Control == nil {
		return
	}
	handler := NewControlHandler(services.Control)
	r.Route("/api/v1/controls", func(r chi.Router) {
		r.Post("/", handler.Create)
		r.Get("/", handler.List)
		r.Get("/stats", handler.Stats)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/requirements", handler.MapRequirements)
		r.Get("/{id}/requirements/candidates", handler.CandidateRequirements)
		r.Delete("/{id}/requirements/{requirementId}", handler.UnmapRequirement)
	})
}

// registerAssetRoutes registers asset endpoints.
func registerAssetRoutes(r chi.Router, services *Services) {
	if services == nil || services.Asset == nil {
		return
	}
	handler := NewAssetHandler(services.Asset)
	r.Route("/api/v1/assets", func(r chi.Router) {
		r.Post("/", handler.Create)
		r.Get("/", handler.List)
		r.Get("/stats", handler.Stats)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/controls", handler.LinkControls)
		r.Get("/{id}/controls/candidates", handler.CandidateControls)
		r.Delete("/{id}/controls/{controlId}", handler.UnlinkControl)
	})
}

// registerPolicyRoutes registers policy and template endpoints.
func registerPolicyRoutes(r chi.Router, services *Services) {
	if services == nil {
		return
	}
	if services.Policy != nil {
		handler := NewPolicyHandler(services.Policy)
		r.Route("/api/v1/policies", func(r chi.Router) {
			r.Post("/", handler.Create)
			r.Get("/", handler.List)
			r.Get("/{id}", handler.Get)
			r.Put("/{id}", handler.Update)
			r.Delete("/{id}", handler.Delete)
			r.Post("/{id}/transition", handler.Transition)
			r.Get("/{id}/versions", handler.ListVersions)
			r.Post("/{id}/acknowledge", handler.Acknowledge)
			r.Get("/{id}/acknowledgments", handler.AcknowledgmentStatus)
			r.Post("/{id}/attachments", handler.UploadAttachment)
		})
	}
	if services.Template != nil {
		handler := NewTemplateHandler(services.Template)
		r.Route("/api/v1/policy-templates", func(r chi.Router) {
			r.Get("/", handler.List)
			r.Get("/{id}", handler.Get)
		})
	}
}

// registerTaskRoutes registers task endpoints.
func registerTaskRoutes(r chi.Router, services *Services) {
	if services == nil || services.Task == nil {
		return
	}
	handler := NewTaskHandler(services.Task)
	r.Route("/api/v1/tasks", func(r chi.Router) {
		r.Post("/", handler.Create)
		r.Get("/", handler.List)
		r.Get("/stats", handler.Stats)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/comments", handler.AddComment)
		r.Get("/{id}/comments", handler.ListComments)
	})
}

// registerRiskRoutes registers risk endpoints.
func registerRiskRoutes(r chi.Router, services *Services) {
	if services == nil || services.Risk == nil {
		return
	}
	handler := NewRiskHandler(services.Risk)
	r.Route("/api/v1/risks", func(r chi.Router) {
		r.Post("/", handler.Create)
		r.Get("/", handler.List)
		r.Get("/heatmap", handler.Heatmap)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
	})
}

// registerSearchRoutes registers the unified search endpoint.
func registerSearchRoutes(r chi.Router, services *Services) {
	if services == nil || services.Search == nil {
		return
	}
	handler := NewSearchHandler(services.Search)
	r.Get("/api/v1/search", handler.Search)
}

// registerIntegrationRoutes registers integration endpoints.
func registerIntegrationRoutes(r chi.Router, services *Services) {
	if services == nil || services.Integration == nil {
		return
	}
	handler := NewIntegrationHandler(services.Integration)
	r.Route("/api/v1/integrations", func(r chi.Router) {
		r.Get("/", handler.Status)
		r.Post("/sync", handler.SyncAll)
		r.Post("/{name}/sync", handler.Sync)
	})
}

// registerCloudRoutes registers read-only cloud inventory endpoints and the
// collector snapshot upload.
func registerCloudRoutes(r chi.Router, services *Services) {
	if services == nil || services.Cloud == nil {
		return
	}
	handler := NewCloudHandler(services.Cloud)
	r.Route("/api/v1/cloud", func(r chi.Router) {
		r.Post("/snapshot", handler.ImportSnapshot)
		r.Get("/s3-buckets", handler.ListS3Buckets)
		r.Get("/s3-buckets/{id}", handler.GetS3Bucket)
		r.Get("/ec2-instances", handler.ListEC2Instances)
		r.Get("/ec2-instances/{id}", handler.GetEC2Instance)
		r.Get("/rds-instances", handler.ListRDSInstances)
		r.Get("/rds-instances/{id}", handler.GetRDSInstance)
		r.Get("/iam-users", handler.ListIAMUsers)
		r.Get("/iam-users/{id}", handler.GetIAMUser)
		r.Get("/iam-roles", handler.ListIAMRoles)
		r.Get("/iam-roles/{id}", handler.GetIAMRole)
		r.Get("/iam-policies", handler.ListIAMPolicies)
		r.Get("/iam-policies/{id}", handler.GetIAMPolicy)
		r.Get("/cloudtrail-events", handler.ListCloudTrailEvents)
		r.Get("/cloudtrail-events/{id}", handler.GetCloudTrailEvent)
		r.Get("/securityhub-findings", handler.ListSecurityHubFindings)
		r.Get("/securityhub-findings/{id}", handler.GetSecurityHubFinding)
		r.Get("/config-rules", handler.ListConfigRuleResults)
		r.Get("/config-rules/{id}", handler.GetConfigRuleResult)
	})
}
