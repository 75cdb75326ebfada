package responses

import (
	"errors"
	"net/http"
	"testing"

	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/service"
	"github.com/stretchr/testify/assert"
)

func TestConvertStateConflict(t *testing.T) {
	err := &service.Error{
		Kind:          service.KindStateConflict,
		Code:          service.CodeAuctionEnded,
		Message:       "auction for invoice INV-1 has ended",
		CurrentStatus: "funding",
	}
	response := Convert(err)
	assert.Equal(t, http.StatusConflict, response.HttpStatusCode)
	assert.Equal(t, service.CodeAuctionEnded, response.Code)
	assert.Equal(t, "funding", response.Status)
}

func TestConvertInsufficientCarriesAvailable(t *testing.T) {
	err := &service.Error{
		Kind:      service.KindInsufficientResource,
		Code:      service.CodeInsufficientTokens,
		Message:   "requested 500 tokens, 100 available",
		Available: money.New(100),
	}
	response := Convert(err)
	assert.Equal(t, http.StatusBadRequest, response.HttpStatusCode)
	assert.Equal(t, "100", response.Available)
}

func TestConvertUnknownError(t *testing.T) {
	response := Convert(errors.New("connection reset"))
	assert.Equal(t, http.StatusInternalServerError, response.HttpStatusCode)
	assert.Equal(t, GeneralServerError.Code, response.Code)
}
