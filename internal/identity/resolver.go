package identity

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradescope/internal/db"
	"github.com/sells-group/tradescope/internal/model"
)

// role binds a shipment name column to the organization role it implies and
// the country column that locates the entity: buyers sit in the destination
// country, suppliers in the origin country.
type role struct {
	Name       string // organization role key ("buyer" / "supplier")
	OrgType    model.OrgType
	NameCol    string
	CountryCol string
	UUIDCol    string
}

var roles = []role{
	{Name: "buyer", OrgType: model.OrgTypeBuyer, NameCol: "buyer_name_raw", CountryCol: "dest_country", UUIDCol: "buyer_uuid"},
	{Name: "supplier", OrgType: model.OrgTypeSupplier, NameCol: "supplier_name_raw", CountryCol: "origin_country", UUIDCol: "supplier_uuid"},
}

// Resolver maps every (raw name, country, role) triple seen in standardized
// shipments to a stable organization, entirely in set-based SQL passes.
// Operating only on rows with resolved_at IS NULL makes re-runs no-ops.
type Resolver struct {
	pool db.Pool
}

// NewResolver creates a new Resolver.
func NewResolver(pool db.Pool) *Resolver {
	return &Resolver{pool: pool}
}

// Result summarizes one resolution run.
type Result struct {
	RowsResolved int64 // std_shipments rows stamped resolved
	OrgsCreated  int64
	OrgsUpdated  int64 // variant attach / type escalation
	HiddenBuyers int64 // export rows flagged for mirror matching
}

// Run executes the resolution passes for both roles, backfills the shipment
// uuid columns, flags hidden buyers, and stamps processed rows.
func (r *Resolver) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "identity.resolver"))
	res := &Result{}

	for _, rl := range roles {
		created, err := r.createMissing(ctx, rl)
		if err != nil {
			return res, err
		}
		res.OrgsCreated += created

		updated, err := r.attachVariants(ctx, rl)
		if err != nil {
			return res, err
		}
		res.OrgsUpdated += updated

		if err := r.backfillUUIDs(ctx, rl); err != nil {
			return res, err
		}

		log.Info("role pass complete",
			zap.String("role", rl.Name),
			zap.Int64("orgs_created", created),
			zap.Int64("orgs_updated", updated),
		)
	}

	hidden, err := r.flagHiddenBuyers(ctx)
	if err != nil {
		return res, err
	}
	res.HiddenBuyers = hidden

	stamped, err := r.stampResolved(ctx)
	if err != nil {
		return res, err
	}
	res.RowsResolved = stamped

	log.Info("resolution complete",
		zap.Int64("rows_resolved", res.RowsResolved),
		zap.Int64("orgs_created", res.OrgsCreated),
		zap.Int64("orgs_updated", res.OrgsUpdated),
		zap.Int64("hidden_buyers", res.HiddenBuyers),
	)
	return res, nil
}

// createMissing inserts one organization per distinct (normalized name,
// country) pair not yet known, seeded with the raw variants observed in
// this role. NOT EXISTS keeps re-runs from creating duplicates.
func (r *Resolver) createMissing(ctx context.Context, rl role) (int64, error) {
	sql := fmt.Sprintf(`
INSERT INTO trade.organizations (org_uuid, normalized_name, country, org_type, variants)
SELECT gen_random_uuid(), n.norm_name, n.country, '%s',
       jsonb_build_object('%s', n.raw_names)
FROM (
    SELECT %s AS norm_name,
           s.%s AS country,
           jsonb_agg(DISTINCT s.%s) AS raw_names
    FROM trade.std_shipments s
    WHERE s.resolved_at IS NULL
      AND NOT %s
    GROUP BY 1, 2
) n
WHERE n.norm_name <> ''
  AND NOT EXISTS (
      SELECT 1 FROM trade.organizations o
      WHERE o.normalized_name = n.norm_name AND o.country = n.country
  )`,
		rl.OrgType, rl.Name,
		NormalizeNameSQL("s."+rl.NameCol),
		rl.CountryCol, rl.NameCol,
		PlaceholderSQL("s."+rl.NameCol),
	)

	tag, err := r.pool.Exec(ctx, sql)
	if err != nil {
		return 0, eris.Wrapf(err, "identity: create %s organizations", rl.Name)
	}
	return tag.RowsAffected(), nil
}

// attachVariants merges newly observed raw spellings into existing
// organizations and escalates the type to MIXED when an entity created in
// the other role shows up here. Escalation is monotonic: MIXED stays MIXED.
func (r *Resolver) attachVariants(ctx context.Context, rl role) (int64, error) {
	otherType := model.OrgTypeSupplier
	if rl.OrgType == model.OrgTypeSupplier {
		otherType = model.OrgTypeBuyer
	}

	sql := fmt.Sprintf(`
UPDATE trade.organizations o
SET variants = jsonb_set(
        o.variants,
        '{%s}',
        (
            SELECT COALESCE(jsonb_agg(DISTINCT u.v), '[]'::jsonb)
            FROM (
                SELECT jsonb_array_elements_text(COALESCE(o.variants->'%s', '[]'::jsonb)) AS v
                UNION
                SELECT jsonb_array_elements_text(n.raw_names) AS v
            ) u
        )
    ),
    org_type = CASE WHEN o.org_type = '%s' THEN 'MIXED' ELSE o.org_type END,
    updated_at = now()
FROM (
    SELECT %s AS norm_name,
           s.%s AS country,
           jsonb_agg(DISTINCT s.%s) AS raw_names
    FROM trade.std_shipments s
    WHERE s.resolved_at IS NULL
      AND NOT %s
    GROUP BY 1, 2
) n
WHERE o.normalized_name = n.norm_name
  AND o.country = n.country`,
		rl.Name, rl.Name,
		otherType,
		NormalizeNameSQL("s."+rl.NameCol),
		rl.CountryCol, rl.NameCol,
		PlaceholderSQL("s."+rl.NameCol),
	)

	tag, err := r.pool.Exec(ctx, sql)
	if err != nil {
		return 0, eris.Wrapf(err, "identity: attach %s variants", rl.Name)
	}
	return tag.RowsAffected(), nil
}

// backfillUUIDs writes the resolved organization uuid onto pending shipment
// rows. Where imperfect normalization produced duplicate organizations for
// one (name, country), the earliest-created one wins, deterministically.
func (r *Resolver) backfillUUIDs(ctx context.Context, rl role) error {
	sql := fmt.Sprintf(`
UPDATE trade.std_shipments s
SET %s = o.org_uuid
FROM (
    SELECT DISTINCT ON (normalized_name, country) org_uuid, normalized_name, country
    FROM trade.organizations
    ORDER BY normalized_name, country, created_at
) o
WHERE s.resolved_at IS NULL
  AND NOT %s
  AND o.normalized_name = %s
  AND o.country = s.%s`,
		rl.UUIDCol,
		PlaceholderSQL("s."+rl.NameCol),
		NormalizeNameSQL("s."+rl.NameCol),
		rl.CountryCol,
	)

	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "identity: backfill %s uuids", rl.UUIDCol)
	}
	return nil
}

// flagHiddenBuyers marks pending export rows whose declared buyer is a
// placeholder. These rows keep a null buyer_uuid and become candidates for
// the mirror matcher.
func (r *Resolver) flagHiddenBuyers(ctx context.Context) (int64, error) {
	sql := fmt.Sprintf(`
UPDATE trade.std_shipments s
SET hidden_buyer = TRUE
WHERE s.resolved_at IS NULL
  AND s.direction = 'EXPORT'
  AND %s`,
		PlaceholderSQL("s.buyer_name_raw"),
	)

	tag, err := r.pool.Exec(ctx, sql)
	if err != nil {
		return 0, eris.Wrap(err, "identity: flag hidden buyers")
	}
	return tag.RowsAffected(), nil
}

// stampResolved marks all pending rows as resolved so the next run skips them.
func (r *Resolver) stampResolved(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE trade.std_shipments SET resolved_at = now() WHERE resolved_at IS NULL`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "identity: stamp resolved")
	}
	return tag.RowsAffected(), nil
}

// DuplicateNameCount reports how many (normalized name, country) pairs map
// to more than one organization. Deduplication quality is monitored rather
// than enforced; this is the metric to watch.
func (r *Resolver) DuplicateNameCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM (
    SELECT normalized_name, country
    FROM trade.organizations
    GROUP BY normalized_name, country
    HAVING COUNT(*) > 1
) d`).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "identity: duplicate name count")
	}
	return n, nil
}
