package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hotelRowColumns = []string{"id", "code", "name", "qr_generated", "last_qr_generated", "is_active", "created_at", "updated_at"}

func TestHotelGetActiveByCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHotelRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM hotels WHERE code = \$1 AND is_active = TRUE`).
		WithArgs("grandhotel").
		WillReturnRows(sqlmock.NewRows(hotelRowColumns).AddRow(1, "grandhotel", "Grand Hotel", true, now, true, now, now))
	mock.ExpectQuery(`FROM hotels WHERE code = \$1 AND is_active = TRUE`).
		WithArgs("nowhere").
		WillReturnRows(sqlmock.NewRows(hotelRowColumns))

	hotel, err := repo.GetActiveByCode(t.Context(), "grandhotel")
	require.NoError(t, err)
	require.NotNil(t, hotel)
	assert.True(t, hotel.QRGenerated)
	assert.True(t, hotel.LastQRGenerated.Valid)

	missing, err := repo.GetActiveByCode(t.Context(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHotelCreate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewHotelRepository(db)
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO hotels`).
			WithArgs("lakeside", "Lakeside Inn").
			WillReturnRows(sqlmock.NewRows(hotelRowColumns).AddRow(2, "lakeside", "Lakeside Inn", false, nil, true, now, now))

		hotel, err := repo.Create(t.Context(), "lakeside", "Lakeside Inn")
		require.NoError(t, err)
		assert.Equal(t, int64(2), hotel.ID)
		assert.False(t, hotel.QRGenerated)
		assert.False(t, hotel.LastQRGenerated.Valid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Code", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewHotelRepository(db)

		mock.ExpectQuery(`INSERT INTO hotels`).
			WithArgs("lakeside", "Lakeside Inn").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "hotels_code_key"})

		_, err := repo.Create(t.Context(), "lakeside", "Lakeside Inn")
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHotelSetQRGenerated(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHotelRepository(db)

	mock.ExpectExec(`UPDATE hotels SET qr_generated = \$1`).
		WithArgs(true, "grandhotel").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE hotels SET qr_generated = \$1`).
		WithArgs(false, "nowhere").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetQRGenerated(t.Context(), "grandhotel", true))
	assert.ErrorIs(t, repo.SetQRGenerated(t.Context(), "nowhere", false), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHotelDeactivate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHotelRepository(db)

	mock.ExpectExec(`UPDATE hotels SET is_active = FALSE`).
		WithArgs("grandhotel").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(t.Context(), "grandhotel"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
