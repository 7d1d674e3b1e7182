package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTechnicalFlags(t *testing.T) {
	s := &TechnicalFlagsService{Repo: newTestRepo(t)}
	ctx := context.Background()

	flags, err := s.GetOrCreate(ctx, "tok-a", "cf-1")
	require.NoError(t, err)
	assert.False(t, flags.IsStockUpdated)
	assert.False(t, flags.HasInvoiceCreated)

	again, err := s.GetOrCreate(ctx, "tok-a", "cf-1")
	require.NoError(t, err)
	assert.Equal(t, flags.ID, again.ID)

	updated, err := s.SetStockUpdated(ctx, "tok-a", "cf-1", true)
	require.NoError(t, err)
	assert.True(t, updated.IsStockUpdated)

	invoice := "FV/2026/05/001"
	withInvoice, err := s.SetInvoice(ctx, "tok-a", "cf-1", &invoice)
	require.NoError(t, err)
	assert.True(t, withInvoice.HasInvoiceCreated)
	assert.Equal(t, invoice, *withInvoice.InvoiceID)
	assert.True(t, withInvoice.IsStockUpdated)

	cleared, err := s.SetInvoice(ctx, "tok-a", "cf-1", nil)
	require.NoError(t, err)
	assert.False(t, cleared.HasInvoiceCreated)
	assert.Nil(t, cleared.InvoiceID)

	_, err = s.SetStockUpdated(ctx, "tok-b", "cf-2", true)
	require.NoError(t, err)
	byOrder, err := s.ForOrders(ctx, "tok-a", []string{"cf-1", "cf-2"})
	require.NoError(t, err)
	assert.Len(t, byOrder, 1)
	assert.Contains(t, byOrder, "cf-1")

	_, err = s.GetOrCreate(ctx, "", "cf-1")
	require.Error(t, err)
}
