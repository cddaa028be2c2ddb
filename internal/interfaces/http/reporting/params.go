package reporting

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sngm3741/avero-reporting/api/internal/interfaces/http/common"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

const (
	defaultReport   = "EGS"
	defaultInterval = "day"
	defaultLimit    = "100"
	defaultOffset   = "0"
	defaultLookback = 24 * time.Hour
)

// reportParams holds the raw query string values of GET /reporting.
type reportParams struct {
	Report       string `validate:"required"`
	BusinessID   string `validate:"required"`
	Start        string `validate:"required"`
	End          string `validate:"required"`
	TimeInterval string `validate:"required"`
	Limit        string `validate:"required,number"`
	Offset       string `validate:"required,number"`
}

// paramsError carries per-field validation failures to the 400 response.
type paramsError struct {
	details map[string]string
}

func (e *paramsError) Error() string {
	fields := make([]string, 0, len(e.details))
	for field, tag := range e.details {
		fields = append(fields, field+"="+tag)
	}
	sort.Strings(fields)
	return domain.ErrInvalidParams.Error() + ": " + strings.Join(fields, ", ")
}

func (e *paramsError) Unwrap() error {
	return domain.ErrInvalidParams
}

func readParams(query url.Values) reportParams {
	return reportParams{
		Report:       strings.TrimSpace(query.Get("report")),
		BusinessID:   strings.TrimSpace(query.Get("business_id")),
		Start:        strings.TrimSpace(query.Get("start")),
		End:          strings.TrimSpace(query.Get("end")),
		TimeInterval: strings.TrimSpace(query.Get("timeInterval")),
		Limit:        strings.TrimSpace(query.Get("limit")),
		Offset:       strings.TrimSpace(query.Get("offset")),
	}
}

// withDefaults fills absent values: the previous 24 hours of the demo business, by day.
func (p reportParams) withDefaults(now time.Time, businessID string) reportParams {
	now = now.UTC()
	fill := func(value *string, fallback string) {
		if *value == "" {
			*value = fallback
		}
	}
	fill(&p.Report, defaultReport)
	fill(&p.BusinessID, businessID)
	fill(&p.Start, domain.FormatWire(now.Add(-defaultLookback)))
	fill(&p.End, domain.FormatWire(now))
	fill(&p.TimeInterval, defaultInterval)
	fill(&p.Limit, defaultLimit)
	fill(&p.Offset, defaultOffset)
	return p
}

func (h *Handler) parseQuery(query url.Values) (domain.RollupQuery, error) {
	params := readParams(query)
	if !h.strictParams {
		params = params.withDefaults(h.now(), h.defaultBusinessID)
	}
	if err := h.validate.Struct(params); err != nil {
		return domain.RollupQuery{}, validationError(err)
	}

	report, err := domain.ParseReportType(params.Report)
	if err != nil {
		return domain.RollupQuery{}, err
	}
	start, err := domain.ParseWire(params.Start)
	if err != nil {
		return domain.RollupQuery{}, &paramsError{details: map[string]string{"start": "datetime"}}
	}
	end, err := domain.ParseWire(params.End)
	if err != nil {
		return domain.RollupQuery{}, &paramsError{details: map[string]string{"end": "datetime"}}
	}
	limit, err := common.ParseInt(params.Limit)
	if err != nil {
		return domain.RollupQuery{}, &paramsError{details: map[string]string{"limit": "number"}}
	}
	offset, err := common.ParseInt(params.Offset)
	if err != nil {
		return domain.RollupQuery{}, &paramsError{details: map[string]string{"offset": "number"}}
	}

	return domain.RollupQuery{
		Report:       report,
		BusinessID:   params.BusinessID,
		Start:        start,
		End:          end,
		TimeInterval: domain.TimeInterval(strings.ToLower(params.TimeInterval)),
		Limit:        limit,
		Offset:       offset,
	}, nil
}

func validationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
	}
	details := make(map[string]string, len(validationErrors))
	for _, ve := range validationErrors {
		details[ve.Field()] = ve.Tag()
	}
	return &paramsError{details: details}
}
