package reporting

import (
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	reportingapp "github.com/sngm3741/avero-reporting/api/internal/reporting/application"
)

// Handler wires the reporting HTTP endpoints to application services.
type Handler struct {
	logger            *logrus.Logger
	queries           reportingapp.ReportQueryService
	generation        reportingapp.GenerationService
	sync              reportingapp.SyncService
	defaultBusinessID string
	strictParams      bool
	now               func() time.Time
	background        func(func())
	validate          *validator.Validate
	generating        atomic.Bool
	syncing           atomic.Bool
}

// Config provides dependencies for Handler. Generation and Sync are optional;
// the matching admin endpoints answer 503 without them.
type Config struct {
	Logger            *logrus.Logger
	Queries           reportingapp.ReportQueryService
	Generation        reportingapp.GenerationService
	Sync              reportingapp.SyncService
	DefaultBusinessID string
	StrictParams      bool
	Now               func() time.Time
	Background        func(func())
}

// NewHandler constructs the reporting handler set.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		logger:            cfg.Logger,
		queries:           cfg.Queries,
		generation:        cfg.Generation,
		sync:              cfg.Sync,
		defaultBusinessID: cfg.DefaultBusinessID,
		strictParams:      cfg.StrictParams,
		now:               cfg.Now,
		background:        cfg.Background,
		validate:          validator.New(),
	}
	if h.logger == nil {
		h.logger = logrus.StandardLogger()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.background == nil {
		h.background = func(fn func()) { go fn() }
	}
	return h
}

// Register mounts the public query route onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reporting", h.reportHandler())
}

// RegisterAdmin mounts the generation and sync triggers. Callers wrap r with authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/generate", h.generateHandler())
	r.Post("/sync", h.syncHandler())
}
