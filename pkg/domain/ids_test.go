package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "benefid/pkg/domain"
)

// IDs must render as uuid strings in JSON, not as raw byte arrays.
func TestIdentityIDJSONRendering(t *testing.T) {
	identityID := id.NewIdentityID()

	data, err := json.Marshal(identityID)
	require.NoError(t, err)
	assert.Equal(t, `"`+identityID.String()+`"`, string(data))

	var parsed id.IdentityID
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, identityID, parsed)
}

func TestClaimIDUnmarshalRejectsGarbage(t *testing.T) {
	var claimID id.ClaimID
	err := json.Unmarshal([]byte(`"not-a-uuid"`), &claimID)
	require.Error(t, err)
}

func TestParseActorID(t *testing.T) {
	actor := id.NewActorID()

	parsed, err := id.ParseActorID(actor.String())
	require.NoError(t, err)
	assert.Equal(t, actor, parsed)

	_, err = id.ParseActorID("")
	require.Error(t, err)
}
