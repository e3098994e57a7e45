// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhouse/gavelhouse/internal/market"
)

var siteCols = []string{"id", "name", "timezone", "session_expiration_seconds", "minimum_bid_increment", "created_at"}

func testStoredSite() *market.Site {
	return &market.Site{
		ID:                       ulid.Make(),
		Name:                     "demo",
		Timezone:                 2,
		SessionExpirationSeconds: 3600,
		MinimumBidIncrement:      0.5,
		CreatedAt:                time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSiteRepository_Create(t *testing.T) {
	site := testStoredSite()

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO sites`).
					WithArgs(site.ID.String(), site.Name, site.Timezone, site.SessionExpirationSeconds, site.MinimumBidIncrement, site.CreatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate name maps to name in use",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO sites`).
					WithArgs(site.ID.String(), site.Name, site.Timezone, site.SessionExpirationSeconds, site.MinimumBidIncrement, site.CreatedAt).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "sites_name_key"})
			},
			wantErr: market.ErrNameInUse,
		},
		{
			name: "connection failure maps to unavailable",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO sites`).
					WithArgs(site.ID.String(), site.Name, site.Timezone, site.SessionExpirationSeconds, site.MinimumBidIncrement, site.CreatedAt).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: market.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewSiteRepository(mock)
			err = repo.Create(context.Background(), site)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestSiteRepository_GetByName(t *testing.T) {
	site := testStoredSite()

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		rows := pgxmock.NewRows(siteCols).
			AddRow(site.ID.String(), site.Name, site.Timezone, site.SessionExpirationSeconds, site.MinimumBidIncrement, site.CreatedAt)
		mock.ExpectQuery(`FROM sites\s+WHERE name = \$1`).
			WithArgs(site.Name).
			WillReturnRows(rows)

		repo := NewSiteRepository(mock)
		got, err := repo.GetByName(context.Background(), site.Name)
		require.NoError(t, err)
		assert.Equal(t, site.ID, got.ID)
		assert.Equal(t, site.Timezone, got.Timezone)
		assert.Equal(t, site.MinimumBidIncrement, got.MinimumBidIncrement)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`FROM sites\s+WHERE name = \$1`).
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows(siteCols))

		repo := NewSiteRepository(mock)
		_, err = repo.GetByName(context.Background(), "missing")
		require.ErrorIs(t, err, market.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSiteRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	first := testStoredSite()
	second := testStoredSite()
	second.Name = "other"

	rows := pgxmock.NewRows(siteCols).
		AddRow(first.ID.String(), first.Name, first.Timezone, first.SessionExpirationSeconds, first.MinimumBidIncrement, first.CreatedAt).
		AddRow(second.ID.String(), second.Name, second.Timezone, second.SessionExpirationSeconds, second.MinimumBidIncrement, second.CreatedAt)
	mock.ExpectQuery(`FROM sites`).WillReturnRows(rows)

	repo := NewSiteRepository(mock)
	sites, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "demo", sites[0].Name)
	assert.Equal(t, "other", sites[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestSiteRepository_Delete(t *testing.T) {
	id := ulid.Make()

	t.Run("successful delete", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM sites WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		repo := NewSiteRepository(mock)
		require.NoError(t, repo.Delete(context.Background(), id))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("second delete surfaces not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM sites WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := NewSiteRepository(mock)
		require.ErrorIs(t, repo.Delete(context.Background(), id), market.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}
