package entitystore_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/entity-store/pkg/entitystore"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "it''s", entitystore.SanitizeString("it's"))
	assert.Equal(t, "plain", entitystore.SanitizeString("plain"))
	assert.Equal(t, "ab", entitystore.SanitizeString("a\x00b"))
}

func TestSanitizeInt(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		want    int64
		wantErr bool
	}{
		{name: "int", in: 42, want: 42},
		{name: "int64", in: int64(-7), want: -7},
		{name: "whole float", in: float64(10), want: 10},
		{name: "fractional float", in: 10.5, wantErr: true},
		{name: "numeric string", in: " 123 ", want: 123},
		{name: "garbage string", in: "12abc", wantErr: true},
		{name: "unsupported type", in: []int{1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := entitystore.SanitizeInt(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, entitystore.ErrInvalidArgument)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValidFragment(t *testing.T) {
	assert.True(t, entitystore.ValidFragment(""))
	assert.True(t, entitystore.ValidFragment("e.time_created DESC, e.guid DESC"))
	assert.True(t, entitystore.ValidFragment("COUNT(e.guid) AS total"))
	assert.False(t, entitystore.ValidFragment("e.guid; DROP TABLE entities"))
	assert.False(t, entitystore.ValidFragment("name = 'x'"))
}

func TestValidateRelationshipName(t *testing.T) {
	assert.NoError(t, entitystore.ValidateRelationshipName("friend"))
	assert.NoError(t, entitystore.ValidateRelationshipName(strings.Repeat("x", entitystore.RelationshipNameLimit)))

	err := entitystore.ValidateRelationshipName("")
	assert.ErrorIs(t, err, entitystore.ErrInvalidArgument)

	err = entitystore.ValidateRelationshipName(strings.Repeat("x", entitystore.RelationshipNameLimit+1))
	assert.ErrorIs(t, err, entitystore.ErrInvalidArgument)
}
