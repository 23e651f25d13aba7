package database

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/pkg/config"
)

const facilitiesTable = "m_company_facilities"

var facilityColumns = []interface{}{
	"facility_id", "facility_name", "facility_type", "capacity", "location",
	"equipment", "management_type", "external_id", "created_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FacilityQuery accumulates optional facility predicates and folds them into
// a single conjunctive WHERE clause. Every value is a bound parameter.
type FacilityQuery struct {
	driver     string
	dialect    goqu.DialectWrapper
	predicates []exp.Expression
	paginate   bool
	limit      uint
	offset     uint
}

// NewFacilityQuery starts an unfiltered query for the given SQL driver
func NewFacilityQuery(driver string) *FacilityQuery {
	return &FacilityQuery{
		driver:  driver,
		dialect: goqu.Dialect(driver),
	}
}

// FacilityQueryFromFilter builds the query for a normalized filter
func FacilityQueryFromFilter(driver string, filter repositories.FacilityFilter, paginate bool) *FacilityQuery {
	q := NewFacilityQuery(driver).
		WithName(filter.Name).
		WithType(filter.FacilityType).
		WithLocation(filter.Location).
		WithMinCapacity(filter.MinCapacity)
	if paginate {
		q.Page(filter.Limit, filter.Offset)
	}
	return q
}

// WithName adds a case-insensitive substring match on the facility name
func (q *FacilityQuery) WithName(name string) *FacilityQuery {
	if name == "" {
		return q
	}
	q.predicates = append(q.predicates, goqu.C("facility_name").ILike("%"+likeEscaper.Replace(name)+"%"))
	return q
}

// WithType adds an exact match on the facility type
func (q *FacilityQuery) WithType(facilityType string) *FacilityQuery {
	if facilityType == "" {
		return q
	}
	q.predicates = append(q.predicates, goqu.Ex{"facility_type": facilityType})
	return q
}

// WithLocation adds a full-text match on location. Every token must match as
// a prefix of an indexed word. A query without tokens adds nothing.
func (q *FacilityQuery) WithLocation(location string) *FacilityQuery {
	tokens := repositories.LocationTokens(location)
	if len(tokens) == 0 {
		return q
	}

	if q.driver == config.DriverPostgres {
		terms := make([]string, len(tokens))
		for i, t := range tokens {
			terms[i] = t + ":*"
		}
		q.predicates = append(q.predicates, goqu.L(
			"to_tsvector('simple', ?) @@ to_tsquery('simple', ?)",
			goqu.I("location"), strings.Join(terms, " & "),
		))
		return q
	}

	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = "+" + t + "*"
	}
	q.predicates = append(q.predicates, goqu.L(
		"MATCH(?) AGAINST(? IN BOOLEAN MODE)",
		goqu.I("location"), strings.Join(terms, " "),
	))
	return q
}

// WithMinCapacity adds an inclusive lower bound on capacity
func (q *FacilityQuery) WithMinCapacity(minCapacity *int) *FacilityQuery {
	if minCapacity == nil {
		return q
	}
	q.predicates = append(q.predicates, goqu.C("capacity").Gte(*minCapacity))
	return q
}

// Page limits the row query to one page
func (q *FacilityQuery) Page(limit, offset int) *FacilityQuery {
	q.paginate = true
	q.limit = uint(limit)
	q.offset = uint(offset)
	return q
}

func (q *FacilityQuery) filtered() *goqu.SelectDataset {
	ds := q.dialect.From(facilitiesTable).Prepared(true)
	if len(q.predicates) > 0 {
		ds = ds.Where(q.predicates...)
	}
	return ds
}

// CountSQL returns the statement counting all matches, ignoring pagination
func (q *FacilityQuery) CountSQL() (string, []interface{}, error) {
	return q.filtered().Select(goqu.COUNT(goqu.Star()).As("total")).ToSQL()
}

// SelectSQL returns the statement reading matches ordered by facility_id
func (q *FacilityQuery) SelectSQL() (string, []interface{}, error) {
	ds := q.filtered().
		Select(facilityColumns...).
		Order(goqu.I("facility_id").Asc())
	if q.paginate {
		ds = ds.Limit(q.limit).Offset(q.offset)
	}
	return ds.ToSQL()
}
