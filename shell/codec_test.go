package shell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

type samplePayload struct {
	ReservationID string `json:"reservationId"`
	Quantity      int    `json:"quantity"`
}

func Test_EncodePayload_UsesCamelCaseFieldNames(t *testing.T) {
	// act
	data, err := shell.EncodePayload(samplePayload{ReservationID: "r-1", Quantity: 2})

	// assert
	assert.NoError(t, err)
	assert.JSONEq(t, `{"reservationId":"r-1","quantity":2}`, string(data))
}

func Test_DecodePayload_RejectsMalformedDocument(t *testing.T) {
	// act
	_, err := shell.DecodePayload[samplePayload]([]byte(`{"quantity":`))

	// assert
	assert.ErrorIs(t, err, store.ErrDecodingFailed)
}
