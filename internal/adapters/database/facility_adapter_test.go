package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/facilityreservation/backend/pkg/config"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

var facilityColumnNames = []string{
	"facility_id", "facility_name", "facility_type", "capacity", "location",
	"equipment", "management_type", "external_id", "created_at",
}

func newMockClient(t *testing.T, driver string) (*sqldb.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqldb.NewClientFromDB(db, driver), mock
}

func TestFacilityAdapter_GetByID(t *testing.T) {
	created := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("decodes equipment and nullable columns", func(t *testing.T) {
		client, mock := newMockClient(t, config.DriverMySQL)
		mock.ExpectQuery("SELECT .* FROM `m_company_facilities` WHERE").
			WithArgs("F1").
			WillReturnRows(sqlmock.NewRows(facilityColumnNames).
				AddRow("F1", "Main Hall", "hall", 120, "Tokyo Shinagawa", `{ "projector": true }`, "external", "EXT-9", created))

		facility, err := NewFacilityAdapter(client).GetByID(context.Background(), "F1")
		require.NoError(t, err)
		assert.Equal(t, "Main Hall", facility.Name)
		assert.Equal(t, 120, facility.Capacity)
		assert.JSONEq(t, `{"projector":true}`, string(facility.Equipment))
		assert.Equal(t, entities.ManagementTypeExternal, facility.ManagementType)
		require.NotNil(t, facility.ExternalID)
		assert.Equal(t, "EXT-9", *facility.ExternalID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is FacilityNotFound", func(t *testing.T) {
		client, mock := newMockClient(t, config.DriverMySQL)
		mock.ExpectQuery("SELECT .* FROM `m_company_facilities`").
			WillReturnRows(sqlmock.NewRows(facilityColumnNames))

		_, err := NewFacilityAdapter(client).GetByID(context.Background(), "nope")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeFacilityNotFound))
	})

	t.Run("corrupt equipment is a DataIntegrityError", func(t *testing.T) {
		client, mock := newMockClient(t, config.DriverMySQL)
		mock.ExpectQuery("SELECT .* FROM `m_company_facilities`").
			WillReturnRows(sqlmock.NewRows(facilityColumnNames).
				AddRow("F1", "Main Hall", "hall", 120, "Tokyo", `{"projector":`, "internal", nil, created))

		_, err := NewFacilityAdapter(client).GetByID(context.Background(), "F1")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeDataIntegrity))
		assert.ErrorIs(t, err, entities.ErrInvalidEquipment)
	})

	t.Run("driver failure is a StoreError", func(t *testing.T) {
		client, mock := newMockClient(t, config.DriverMySQL)
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

		_, err := NewFacilityAdapter(client).GetByID(context.Background(), "F1")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreError))
	})
}

func TestFacilityAdapter_Search(t *testing.T) {
	created := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("counts then reads the page", func(t *testing.T) {
		client, mock := newMockClient(t, config.DriverMySQL)
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS `total` FROM `m_company_facilities` WHERE").
			WithArgs("meeting").
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(7))
		mock.ExpectQuery("SELECT .* FROM `m_company_facilities` WHERE .* ORDER BY `facility_id` ASC LIMIT").
			WithArgs("meeting", int64(2), int64(4)).
			WillReturnRows(sqlmock.NewRows(facilityColumnNames).
				AddRow("F5", "Room 5", "meeting", 8, "Osaka", nil, "internal", nil, created).
				AddRow("F6", "Room 6", "meeting", 8, "Osaka", `["whiteboard"]`, "internal", nil, created))

		page, err := NewFacilityAdapter(client).Search(context.Background(), repositories.FacilityFilter{
			FacilityType: "meeting",
			Limit:        2,
			Offset:       4,
		})
		require.NoError(t, err)
		assert.Equal(t, 7, page.TotalCount)
		assert.Equal(t, 2, page.Limit)
		assert.Equal(t, 4, page.Offset)
		require.Len(t, page.Facilities, 2)
		assert.Nil(t, page.Facilities[0].Equipment)
		assert.JSONEq(t, `["whiteboard"]`, string(page.Facilities[1].Equipment))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		client, mock := newMockClient(t, config.DriverMySQL)
		mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(facilityColumnNames))

		page, err := NewFacilityAdapter(client).Search(context.Background(), repositories.FacilityFilter{Name: "zzz"})
		require.NoError(t, err)
		assert.NotNil(t, page.Facilities)
		assert.Empty(t, page.Facilities)
		assert.Equal(t, repositories.DefaultFacilityLimit, page.Limit)
	})

	t.Run("one corrupt row fails the whole call", func(t *testing.T) {
		client, mock := newMockClient(t, config.DriverMySQL)
		mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(2))
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(facilityColumnNames).
			AddRow("F1", "A", "hall", 1, "x", `[]`, "internal", nil, created).
			AddRow("F2", "B", "hall", 1, "x", `not json`, "internal", nil, created))

		_, err := NewFacilityAdapter(client).Search(context.Background(), repositories.FacilityFilter{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeDataIntegrity))
	})
}

func TestFacilityAdapter_ListAllHasNoPagination(t *testing.T) {
	client, mock := newMockClient(t, config.DriverPostgres)
	mock.ExpectQuery(`SELECT .* FROM "m_company_facilities" ORDER BY "facility_id" ASC$`).
		WillReturnRows(sqlmock.NewRows(facilityColumnNames))

	facilities, err := NewFacilityAdapter(client).ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, facilities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityAdapter_Create(t *testing.T) {
	client, mock := newMockClient(t, config.DriverMySQL)
	mock.ExpectExec("INSERT INTO `m_company_facilities`").WillReturnResult(sqlmock.NewResult(0, 1))

	facility := &entities.Facility{
		ID:             "F9",
		Name:           "Annex",
		FacilityType:   "hall",
		Capacity:       30,
		Location:       "Nagoya",
		ManagementType: entities.ManagementTypeInternal,
	}
	require.NoError(t, NewFacilityAdapter(client).Create(context.Background(), facility))
	assert.False(t, facility.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
