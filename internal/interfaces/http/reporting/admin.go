package reporting

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sngm3741/avero-reporting/api/internal/interfaces/http/common"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

type triggerResponse struct {
	Status  string              `json:"status"`
	Reports []domain.ReportType `json:"reports,omitempty"`
}

// generateHandler は生成をバックグラウンドで開始し、即座に 202 を返す。
// 同一プロセス内で実行中なら 409。プロセスをまたぐ排他は RunLocker が担う。
func (h *Handler) generateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.generation == nil {
			common.WriteError(h.logger, w, http.StatusServiceUnavailable, "generation is not configured")
			return
		}

		reports := domain.ReportTypes
		if raw := strings.TrimSpace(r.URL.Query().Get("report")); raw != "" {
			report, err := domain.ParseReportType(raw)
			if err != nil {
				h.writeError(w, err)
				return
			}
			reports = []domain.ReportType{report}
		}

		if !h.generating.CompareAndSwap(false, true) {
			h.writeError(w, domain.ErrRunInProgress)
			return
		}

		log := h.logger.WithField("reports", reports)
		if user, ok := common.UserFromContext(r.Context()); ok {
			log = log.WithField("triggered_by", user.ID)
		}

		h.background(func() {
			defer h.generating.Store(false)
			ctx := context.Background()
			if len(reports) == len(domain.ReportTypes) {
				if _, err := h.generation.GenerateAll(ctx); err != nil {
					log.WithError(err).Error("generation failed")
				}
				return
			}
			if _, err := h.generation.Generate(ctx, reports[0]); err != nil {
				log.WithError(err).Error("generation failed")
			}
		})

		common.WriteJSON(h.logger, w, http.StatusAccepted, triggerResponse{Status: "accepted", Reports: reports})
	}
}

// syncHandler pulls the remote data set and regenerates every report afterwards.
func (h *Handler) syncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.sync == nil || h.generation == nil {
			common.WriteError(h.logger, w, http.StatusServiceUnavailable, "sync is not configured")
			return
		}
		if !h.syncing.CompareAndSwap(false, true) {
			h.writeError(w, domain.ErrRunInProgress)
			return
		}

		log := h.logger.WithField("trigger", "sync")
		if user, ok := common.UserFromContext(r.Context()); ok {
			log = log.WithField("triggered_by", user.ID)
		}

		h.background(func() {
			defer h.syncing.Store(false)
			ctx := context.Background()
			counts, err := h.sync.Sync(ctx)
			if err != nil {
				log.WithError(err).Error("sync failed")
				return
			}
			log.WithFields(logrus.Fields{"documents": counts}).Info("sync finished")
			if _, err := h.generation.GenerateAll(ctx); err != nil {
				log.WithError(err).Error("generation after sync failed")
			}
		})

		common.WriteJSON(h.logger, w, http.StatusAccepted, triggerResponse{Status: "accepted", Reports: domain.ReportTypes})
	}
}
