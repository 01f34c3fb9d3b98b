package patients

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "Ana Reyes", Profile{FirstName: " Ana ", LastName: "Reyes"}.DisplayName())
	assert.Equal(t, "Ana", Profile{FirstName: "Ana"}.DisplayName())
	assert.Equal(t, "", Profile{}.DisplayName())
}

type stubRepo map[string]Profile

func (s stubRepo) GetByID(_ context.Context, id string) (Profile, error) {
	p, ok := s[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func TestDirectory_DisplayName(t *testing.T) {
	d := NewDirectory(stubRepo{"p-1": {ID: "p-1", FirstName: "Juan", LastName: "Dela Cruz"}})

	name, err := d.DisplayName(context.Background(), " p-1 ")
	require.NoError(t, err)
	assert.Equal(t, "Juan Dela Cruz", name)

	_, err = d.DisplayName(context.Background(), "p-2")
	assert.ErrorIs(t, err, ErrNotFound)
}
