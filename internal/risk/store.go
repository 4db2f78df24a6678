package risk

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/model"
)

// Store writes and reads versioned risk opinions. The write path is
// archive-then-upsert inside one transaction: the superseded row, if any,
// is copied to risk_score_history before the current row is replaced, so
// prior opinions are never lost.
type Store struct {
	pool db.Pool
}

func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert records one opinion, archiving whatever it supersedes.
func (s *Store) Upsert(ctx context.Context, score model.RiskScore) error {
	reasons, err := json.Marshal(score.Reasons)
	if err != nil {
		return eris.Wrap(err, "risk: marshal reasons")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "risk: begin score tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := Archive(ctx, tx, score.EntityType, score.EntityID, score.ScopeKey, score.EngineVersion); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO trade.risk_scores
    (entity_type, entity_id, scope_key, engine_version,
     score, confidence, level, main_reason, reasons, computed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
ON CONFLICT (entity_type, entity_id, scope_key, engine_version)
DO UPDATE SET
    score = EXCLUDED.score,
    confidence = EXCLUDED.confidence,
    level = EXCLUDED.level,
    main_reason = EXCLUDED.main_reason,
    reasons = EXCLUDED.reasons,
    computed_at = EXCLUDED.computed_at`,
		score.EntityType, score.EntityID, score.ScopeKey, score.EngineVersion,
		score.Score, score.Confidence, score.Level, score.MainReason, reasons,
	); err != nil {
		return eris.Wrapf(err, "risk: upsert score for %s %s", score.EntityType, score.EntityID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "risk: commit score tx")
	}
	return nil
}

// Archive copies the current opinion for the given key, if one exists, into
// the history table. Called inside the same transaction as the overwrite;
// exposed separately so the archival step is testable on its own.
func Archive(ctx context.Context, tx pgx.Tx, entityType model.EntityType, entityID, scopeKey, engineVersion string) error {
	if _, err := tx.Exec(ctx, `
INSERT INTO trade.risk_score_history
    (entity_type, entity_id, scope_key, engine_version,
     score, confidence, level, main_reason, reasons, computed_at)
SELECT entity_type, entity_id, scope_key, engine_version,
       score, confidence, level, main_reason, reasons, computed_at
FROM trade.risk_scores
WHERE entity_type = $1 AND entity_id = $2 AND scope_key = $3 AND engine_version = $4`,
		entityType, entityID, scopeKey, engineVersion,
	); err != nil {
		return eris.Wrapf(err, "risk: archive score for %s %s", entityType, entityID)
	}
	return nil
}

// Current returns all current opinions about an entity, newest first.
func (s *Store) Current(ctx context.Context, entityType model.EntityType, entityID string) ([]model.RiskScore, error) {
	rows, err := s.pool.Query(ctx, `
SELECT entity_type, entity_id, scope_key, engine_version,
       score::float8, confidence::float8, level, main_reason, reasons, computed_at
FROM trade.risk_scores
WHERE entity_type = $1 AND entity_id = $2
ORDER BY computed_at DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "risk: load scores for %s %s", entityType, entityID)
	}
	defer rows.Close()

	var scores []model.RiskScore
	for rows.Next() {
		var (
			sc      model.RiskScore
			reasons []byte
		)
		if err := rows.Scan(&sc.EntityType, &sc.EntityID, &sc.ScopeKey, &sc.EngineVersion,
			&sc.Score, &sc.Confidence, &sc.Level, &sc.MainReason, &reasons, &sc.ComputedAt); err != nil {
			return nil, eris.Wrap(err, "risk: scan score")
		}
		if len(reasons) > 0 {
			if err := json.Unmarshal(reasons, &sc.Reasons); err != nil {
				return nil, eris.Wrap(err, "risk: unmarshal reasons")
			}
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// WorstCurrentLevel reduces an entity's current opinions to the most severe
// level, or UNKNOWN if it has none.
func (s *Store) WorstCurrentLevel(ctx context.Context, entityType model.EntityType, entityID string) (model.RiskLevel, error) {
	scores, err := s.Current(ctx, entityType, entityID)
	if err != nil {
		return model.RiskUnknown, err
	}
	return WorstLevel(scores), nil
}

// WorstLevel picks the most severe level among opinions; UNKNOWN when the
// slice is empty.
func WorstLevel(scores []model.RiskScore) model.RiskLevel {
	worst := model.RiskUnknown
	worstRank := -1
	for _, sc := range scores {
		if r, ok := sc.Level.Rank(); ok && r > worstRank {
			worst = sc.Level
			worstRank = r
		}
	}
	return worst
}
