package visit

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVisit(t *testing.T) {
	valid := NewVisitInput{
		SalespersonID: "VEN-1",
		ClientID:      "CLI-1",
		Address:       "Calle 1 # 2-3",
		City:          "Bogota",
		Contact:       "Ana",
		Date:          time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC),
	}

	t.Run("creates pending visit", func(t *testing.T) {
		v, err := NewVisit(valid)

		require.NoError(t, err)
		assert.NotEmpty(t, v.ID)
		assert.Equal(t, StatusPending, v.Status)
		assert.Equal(t, time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC), v.Date)
	})

	t.Run("finish marks visit finished", func(t *testing.T) {
		v, err := NewVisit(valid)
		require.NoError(t, err)

		v.Finish()

		assert.Equal(t, StatusFinished, v.Status)
	})

	tests := []struct {
		name   string
		mutate func(*NewVisitInput)
		want   error
	}{
		{"missing salesperson", func(in *NewVisitInput) { in.SalespersonID = "" }, ErrSalespersonRequired},
		{"missing client", func(in *NewVisitInput) { in.ClientID = " " }, ErrClientRequired},
		{"missing city", func(in *NewVisitInput) { in.City = "" }, ErrAddressRequired},
		{"missing date", func(in *NewVisitInput) { in.Date = time.Time{} }, ErrDateRequired},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			v, err := NewVisit(in)

			assert.Nil(t, v)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDetail_Apply(t *testing.T) {
	d := &Detail{VisitID: "v1", PhotoKey: "visitas/v1/abc-foto.jpg"}

	err := d.Apply(DetailInput{ClientID: " CLI-1 ", AttendedBy: "Luis", Findings: "stock bajo"})

	require.NoError(t, err)
	assert.Equal(t, "CLI-1", d.ClientID)
	assert.Equal(t, "Luis", d.AttendedBy)
	assert.Equal(t, "stock bajo", d.Findings)
	assert.Equal(t, "visitas/v1/abc-foto.jpg", d.PhotoKey, "photo key is not an editable field")

	assert.ErrorIs(t, d.Apply(DetailInput{}), ErrClientRequired)
}

func TestPhotoObjectKey(t *testing.T) {
	pattern := regexp.MustCompile(`^visitas/v-123/[0-9a-f]{32}-(.+)$`)

	key := PhotoObjectKey("v-123", "shelf.png")
	m := pattern.FindStringSubmatch(key)
	require.NotNil(t, m, key)
	assert.Equal(t, "shelf.png", m[1])

	key = PhotoObjectKey("v-123", "")
	m = pattern.FindStringSubmatch(key)
	require.NotNil(t, m, key)
	assert.Equal(t, DefaultPhotoName, m[1])

	assert.NotEqual(t, PhotoObjectKey("v-123", "a.jpg"), PhotoObjectKey("v-123", "a.jpg"))
}
