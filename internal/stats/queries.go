package stats

// Query is one read-only aggregate returning (time, value) rows.
type Query struct {
	Name string
	SQL  string
}

// Admin views count soft-deleted organizations; they describe history, not the current tenant list.
var (
	weeklyActiveOrgs = Query{Name: "weekly_active_orgs", SQL: `
		SELECT date_trunc('week', created_at) AS time, COUNT(DISTINCT helicone_org_id)::float8 AS value
		FROM request
		WHERE created_at >= now() - interval '12 weeks'
		GROUP BY 1 ORDER BY 1`}

	monthlyActiveOrgs = Query{Name: "monthly_active_orgs", SQL: `
		SELECT date_trunc('month', created_at) AS time, COUNT(DISTINCT helicone_org_id)::float8 AS value
		FROM request
		WHERE created_at >= now() - interval '12 months'
		GROUP BY 1 ORDER BY 1`}

	weeklyNewUsers = Query{Name: "weekly_new_users", SQL: `
		SELECT date_trunc('week', created_at) AS time, COUNT(*)::float8 AS value
		FROM users
		WHERE created_at >= now() - interval '12 weeks'
		GROUP BY 1 ORDER BY 1`}

	orgGrowth = Query{Name: "org_growth", SQL: `
		SELECT week AS time, SUM(created) OVER (ORDER BY week)::float8 AS value
		FROM (
			SELECT date_trunc('week', created_at) AS week, COUNT(*) AS created
			FROM organization
			GROUP BY 1
		) w
		ORDER BY 1`}

	churnedOrgs = Query{Name: "churned_orgs", SQL: `
		WITH active AS (
			SELECT DISTINCT date_trunc('week', created_at) AS week, helicone_org_id AS org
			FROM request
			WHERE created_at >= now() - interval '13 weeks'
		)
		SELECT prev.week + interval '1 week' AS time, COUNT(*)::float8 AS value
		FROM active prev
		LEFT JOIN active cur ON cur.org = prev.org AND cur.week = prev.week + interval '1 week'
		WHERE cur.org IS NULL AND prev.week + interval '1 week' <= date_trunc('week', now())
		GROUP BY 1 ORDER BY 1`}

	retention = Query{Name: "retention_4w", SQL: `
		WITH cohort AS (
			SELECT id, date_trunc('week', created_at) AS week
			FROM organization
			WHERE created_at >= now() - interval '16 weeks' AND created_at < now() - interval '4 weeks'
		)
		SELECT c.week AS time,
			100.0 * COUNT(DISTINCT r.helicone_org_id) / NULLIF(COUNT(DISTINCT c.id), 0) AS value
		FROM cohort c
		LEFT JOIN request r ON r.helicone_org_id = c.id
			AND r.created_at >= c.week + interval '4 weeks' AND r.created_at < c.week + interval '5 weeks'
		GROUP BY 1 ORDER BY 1`}
)
