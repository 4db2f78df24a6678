package identity

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tradescope/internal/model"
)

// ResolveOne resolves a single (raw name, country, role) triple, creating
// the organization if needed. The batch pipeline uses the set-based passes
// in Resolver.Run; this path serves ad-hoc lookups and keeps the contract
// testable row by row. Returns nil uuid for placeholder names.
func (r *Resolver) ResolveOne(ctx context.Context, rawName, country string, orgType model.OrgType) (*uuid.UUID, error) {
	if IsPlaceholder(rawName) {
		return nil, nil
	}
	normName := NormalizeName(rawName)

	roleKey := "buyer"
	if orgType == model.OrgTypeSupplier {
		roleKey = "supplier"
	}

	var (
		id          uuid.UUID
		currentType model.OrgType
	)
	err := r.pool.QueryRow(ctx, `
SELECT org_uuid, org_type FROM trade.organizations
WHERE normalized_name = $1 AND country = $2
ORDER BY created_at LIMIT 1`,
		normName, country,
	).Scan(&id, &currentType)

	switch {
	case err == pgx.ErrNoRows || (err != nil && err.Error() == "no rows in result set"):
		id = uuid.New()
		variants, merr := json.Marshal(map[string][]string{roleKey: {rawName}})
		if merr != nil {
			return nil, eris.Wrap(merr, "identity: marshal variants")
		}
		if _, err := r.pool.Exec(ctx, `
INSERT INTO trade.organizations (org_uuid, normalized_name, country, org_type, variants)
VALUES ($1, $2, $3, $4, $5)`,
			id, normName, country, orgType, variants,
		); err != nil {
			return nil, eris.Wrapf(err, "identity: create organization %q", normName)
		}
		return &id, nil

	case err != nil:
		return nil, eris.Wrapf(err, "identity: lookup organization %q", normName)
	}

	// Known organization: attach the variant and escalate the type if this
	// sighting is in the other role.
	newType := currentType.Escalate(orgType)
	if _, err := r.pool.Exec(ctx, `
UPDATE trade.organizations
SET variants = jsonb_set(
        variants,
        $2,
        (
            SELECT COALESCE(jsonb_agg(DISTINCT u.v), '[]'::jsonb)
            FROM (
                SELECT jsonb_array_elements_text(COALESCE(variants->$3, '[]'::jsonb)) AS v
                UNION
                SELECT $4::text AS v
            ) u
        )
    ),
    org_type = $5,
    updated_at = now()
WHERE org_uuid = $1`,
		id, []string{roleKey}, roleKey, rawName, newType,
	); err != nil {
		return nil, eris.Wrapf(err, "identity: attach variant to %s", id)
	}

	return &id, nil
}

// Get loads an organization by id, including its variant sets.
func (r *Resolver) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var (
		org      model.Organization
		variants []byte
	)
	err := r.pool.QueryRow(ctx, `
SELECT org_uuid, normalized_name, country, org_type, variants, website, created_at, updated_at
FROM trade.organizations WHERE org_uuid = $1`,
		id,
	).Scan(&org.UUID, &org.NormalizedName, &org.Country, &org.Type, &variants, &org.Website, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "identity: get organization %s", id)
	}
	if variants != nil {
		if err := json.Unmarshal(variants, &org.Variants); err != nil {
			return nil, eris.Wrap(err, "identity: unmarshal variants")
		}
	}
	return &org, nil
}
