package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"motel/shared/dto"
)

func TestFilter_GetWhereClause(t *testing.T) {
	tests := []struct {
		name      string
		filter    dto.Filter
		wantWhere string
		wantArgs  map[string]any
	}{
		{
			name:      "eq with table",
			filter:    dto.Filter{Field: "state", Value: "cleaning", Operator: dto.FilterOperatorEq, Table: "rooms"},
			wantWhere: "rooms.state = :state",
			wantArgs:  map[string]any{"state": "cleaning"},
		},
		{
			name:      "less eq with custom arg name",
			filter:    dto.Filter{ArgName: "cutoff", Field: "actual_exit", Value: "2024-05-01", Operator: dto.FilterOperatorLessEq},
			wantWhere: "actual_exit <= :cutoff",
			wantArgs:  map[string]any{"cutoff": "2024-05-01"},
		},
		{
			name:      "is null",
			filter:    dto.Filter{Field: "actual_exit", Operator: dto.FilterIsNull, Table: "rentals"},
			wantWhere: "rentals.actual_exit IS NULL",
			wantArgs:  map[string]any{},
		},
		{
			name:      "unknown operator yields empty clause",
			filter:    dto.Filter{Field: "state", Value: "x", Operator: "between"},
			wantWhere: "",
			wantArgs:  map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.filter.GetWhereClause()
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFilterGroup_GetWhereClause(t *testing.T) {
	group := dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{Field: "status", Value: "active", Operator: dto.FilterOperatorEq, Table: "rentals"},
			dto.Filter{Field: "room_id", Value: "r1", Operator: dto.FilterOperatorEq, Table: "rentals"},
		},
	}

	where, args := group.GetWhereClause()

	assert.Equal(t, "(rentals.status = :status AND rentals.room_id = :room_id)", where)
	assert.Equal(t, map[string]any{"status": "active", "room_id": "r1"}, args)
}

func TestFilterGroup_Empty(t *testing.T) {
	group := dto.FilterGroup{}

	where, args := group.GetWhereClause()

	assert.Empty(t, where)
	assert.Empty(t, args)
}
