package validator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"motel/shared/validator"
)

type checkInPayload struct {
	RoomID     string `json:"room_id"     validate:"required"`
	ClientName string `json:"client_name" validate:"required,max=100"`
	Hours      int    `json:"hours"       validate:"required,gte=1,lte=24"`
	EntryMode  string `json:"entry_mode"  validate:"required,oneof=vehicle camera on_foot"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "valid payload",
			body: `{"room_id":"r1","client_name":"Ana","hours":2,"entry_mode":"vehicle"}`,
		},
		{
			name:    "missing required field",
			body:    `{"room_id":"r1","hours":2,"entry_mode":"vehicle"}`,
			wantErr: true,
		},
		{
			name:    "hours out of range",
			body:    `{"room_id":"r1","client_name":"Ana","hours":0,"entry_mode":"vehicle"}`,
			wantErr: true,
		},
		{
			name:    "entry mode outside the closed set",
			body:    `{"room_id":"r1","client_name":"Ana","hours":2,"entry_mode":"teleport"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			body:    `{"room_id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := checkInPayload{}
			err := validator.Validate(strings.NewReader(tt.body), &payload)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, validator.ValidateVar("2024-05-01", "required"))
	assert.Error(t, validator.ValidateVar("", "required"))
}
