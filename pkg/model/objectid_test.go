package model

import (
	"strings"
	"testing"

	"github.com/oneconcern/lfslink/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOid = strings.Repeat("0123456789abcdef", 4)

func TestParseObjectID(t *testing.T) {
	id, err := ParseObjectID(testOid)
	require.NoError(t, err)
	assert.Equal(t, testOid, id.String())

	a, b := id.Shards()
	assert.Equal(t, "01", a)
	assert.Equal(t, "23", b)

	for _, bad := range []string{
		"",
		testOid[:63],
		testOid + "0",
		strings.ToUpper(testOid),
		strings.Repeat("zz", 32),
	} {
		_, err := ParseObjectID(bad)
		require.Error(t, err, "expected %q to be rejected", bad)
		var badID *BadObjectID
		assert.True(t, errors.As(err, &badID))
	}
}

func TestIsObjectIDName(t *testing.T) {
	assert.True(t, IsObjectIDName(testOid))
	assert.False(t, IsObjectIDName("ab"))
	assert.False(t, IsObjectIDName(testOid[:62]+"G0"))
}
