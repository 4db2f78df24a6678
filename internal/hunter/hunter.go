package hunter

import (
	"context"
	"errors"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/config"
	"github.com/sells-group/tradescope/internal/db"
)

var hs6Re = regexp.MustCompile(`^[0-9]{6}$`)

// ErrInvalidRequest marks caller mistakes so transports can map them to
// client errors instead of failures.
var ErrInvalidRequest = eris.New("hunter: invalid request")

// IsValidationError reports whether err came from request validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// Hunter serves ranked buyer lists. Stateless per request: each hunt loads
// its own snapshot and scores it with the pure scorer.
type Hunter struct {
	loader *Loader
	cfg    config.HunterConfig
}

func New(pool db.Pool, cfg config.HunterConfig) *Hunter {
	return &Hunter{loader: NewLoader(pool), cfg: cfg}
}

// Hunt validates and normalizes the request, loads a snapshot, and returns
// the ranked cohort.
func (h *Hunter) Hunt(ctx context.Context, req Request) ([]ScoredBuyer, error) {
	if !hs6Re.MatchString(req.HSCode6) {
		return nil, eris.Wrapf(ErrInvalidRequest, "hs code %q, want six digits", req.HSCode6)
	}
	if !ValidCeiling(req.MaxRiskLevel) {
		return nil, eris.Wrapf(ErrInvalidRequest, "max risk level %q", req.MaxRiskLevel)
	}
	if req.MonthsLookback <= 0 {
		req.MonthsLookback = h.cfg.DefaultMonthsLookback
	}
	if req.Limit <= 0 {
		req.Limit = h.cfg.DefaultLimit
	}
	if req.Limit > h.cfg.MaxLimit {
		req.Limit = h.cfg.MaxLimit
	}

	snap, err := h.loader.Load(ctx, req)
	if err != nil {
		return nil, err
	}

	ranked := Score(snap, req, h.cfg)
	if len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}

	zap.L().With(zap.String("component", "hunter")).Debug("hunt served",
		zap.String("hs_code_6", req.HSCode6),
		zap.Int("cohort", len(snap.Rows)),
		zap.Int("returned", len(ranked)),
	)
	return ranked, nil
}
