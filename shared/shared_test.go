package shared_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"motel/shared"
	"motel/shared/constant"
	"motel/shared/dto"
)

func TestCalculateTotalPage(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		limit    int
		expected int
	}{
		{name: "zero total", total: 0, limit: 10, expected: 1},
		{name: "zero limit", total: 25, limit: 0, expected: 1},
		{name: "exact pages", total: 20, limit: 10, expected: 2},
		{name: "partial last page", total: 21, limit: 10, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shared.CalculateTotalPage(tt.total, tt.limit))
		})
	}
}

func TestTransformFields(t *testing.T) {
	type update struct {
		ClientName string `db:"client_name"`
		Phone      string `db:"phone"`
		Ignored    string
	}

	fields := shared.TransformFields(update{ClientName: "Ana"}, "operator-1")

	assert.Equal(t, "Ana", fields["client_name"])
	assert.NotContains(t, fields, "phone")
	assert.Equal(t, "operator-1", fields[constant.FieldModifiedBy])
	assert.Contains(t, fields, constant.FieldModifiedAt)
}

func TestFilterByID(t *testing.T) {
	group := shared.FilterByID("abc", "id", "rooms")

	where, args := group.GetWhereClause()

	assert.Equal(t, "(rooms.id = :id)", where)
	assert.Equal(t, map[string]any{"id": "abc"}, args)
}

func TestBuildCacheKeyWithQuery_Stable(t *testing.T) {
	params := dto.QueryParams{Page: 1, Limit: 10}
	filter := shared.FilterByID("abc", "id", "rooms")

	first := shared.BuildCacheKeyWithQuery("room:gets", params, filter)
	second := shared.BuildCacheKeyWithQuery("room:gets", params, filter)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, shared.BuildCacheKeyWithQuery("room:gets", dto.QueryParams{Page: 2, Limit: 10}, filter))
}
