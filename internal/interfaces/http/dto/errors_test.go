package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{"ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("RESERVED_TENANT"))
	assert.Equal(t, "TENANT_MISMATCH", NormalizeErrorCode("TENANT_MISMATCH"))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1}, 41, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, &Meta{Total: 41, Page: 2, PageSize: 20, TotalPages: 3}, resp.Meta)
}

func TestPageRequest_Normalize(t *testing.T) {
	p := PageRequest{}
	p.Normalize()
	assert.Equal(t, PageRequest{Page: 1, PageSize: 20}, p)

	p = PageRequest{Page: 3, PageSize: 50}
	p.Normalize()
	assert.Equal(t, PageRequest{Page: 3, PageSize: 50}, p)
}
