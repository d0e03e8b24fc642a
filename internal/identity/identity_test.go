package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_Validate(t *testing.T) {
	assert.ErrorIs(t, Identity{}.Validate(), ErrMissingIdentity)
	assert.ErrorIs(t, New("   ").Validate(), ErrMissingIdentity)
	assert.NoError(t, New("u-1").Validate())
}

func TestFromContext(t *testing.T) {
	_, err := FromContext(context.Background())
	require.ErrorIs(t, err, ErrMissingIdentity)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u-1", FirstName: "Ada"})
	id, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.UserID)

	_, err = FromContext(WithIdentity(context.Background(), Identity{}))
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestIdentity_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Identity{UserID: "1", FirstName: "Ada", LastName: "Lovelace"}.DisplayName())
	assert.Equal(t, "ada", Identity{UserID: "1", Username: "ada"}.DisplayName())
	assert.Equal(t, "1", Identity{UserID: "1"}.DisplayName())
}
