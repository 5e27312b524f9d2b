package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/treasury/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRef(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		ref     model.AccountRef
	}{
		{
			name: "unique",
			ref:  model.AccountRef{ID: "0b3b5d2c-6c6e-4d43-9f5b-7f3c2e7a1d11", Kind: model.KindUnique},
		},
		{
			name: "virtual",
			ref:  model.VirtualRef("server_bank"),
		},
		{
			name:    "empty id",
			ref:     model.VirtualRef(""),
			wantErr: ErrEmptyString,
		},
		{
			name:    "whitespace id",
			ref:     model.VirtualRef("   "),
			wantErr: ErrEmptyString,
		},
		{
			name:    "unknown kind",
			ref:     model.AccountRef{ID: "x", Kind: model.AccountKind(7)},
			wantErr: ErrInvalidKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRef(tt.ref)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateRef() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateRef() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePage(t *testing.T) {
	tests := []struct {
		name    string
		offset  int
		limit   int
		wantErr bool
	}{
		{name: "first page", offset: 0, limit: 5},
		{name: "later page", offset: 25, limit: 5},
		{name: "zero limit", offset: 0, limit: 0},
		{name: "negative offset", offset: -5, limit: 5, wantErr: true},
		{name: "negative limit", offset: 0, limit: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePage(tt.offset, tt.limit)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPagination) {
				t.Errorf("validatePage() error = %v, want ErrInvalidPagination", err)
			}
		})
	}
}
