package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shrimp-trace/internal/model"
)

func newRequestFixture(t *testing.T) (*fixture, PurchaseRequestService, Actor) {
	t.Helper()
	f := newFixture(t, "100")
	products := NewProductService(f.db, f.products, f.ledger, f.cache, nil)
	buyer := f.company(t, model.KindExporting, "Caspian Export")
	return f, NewPurchaseRequestService(f.requests, products, nil),
		Actor{ID: buyer.ID, Kind: model.AccountExporting, Name: buyer.Name}
}

func TestRequestService_CreateBySupportCode(t *testing.T) {
	f, svc, buyer := newRequestFixture(t)

	pr, err := svc.CreateRequest(buyer, &CreatePurchaseRequest{SupportCode: " " + f.product.SupportCode})
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, pr.Status)
	assert.Equal(t, f.product.SupportCode, pr.SupportCode)
	assert.Equal(t, f.farmer.ID, pr.OwnerID)

	_, err = svc.CreateRequest(buyer, &CreatePurchaseRequest{ProductID: f.product.ID})
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	_, err = svc.CreateRequest(buyer, &CreatePurchaseRequest{SupportCode: "ZZZZZZZZ"})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.CreateRequest(buyer, &CreatePurchaseRequest{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRequest(f.farmerActor(), &CreatePurchaseRequest{ProductID: f.product.ID})
	assert.ErrorIs(t, err, ErrWrongCompanyKind)
}

func TestRequestService_Decide(t *testing.T) {
	f, svc, buyer := newRequestFixture(t)

	pr, err := svc.CreateRequest(buyer, &CreatePurchaseRequest{ProductID: f.product.ID})
	require.NoError(t, err)

	_, err = svc.Approve(buyer, pr.ID)
	assert.ErrorIs(t, err, ErrForbidden, "only the owner decides")

	got, err := svc.Approve(f.farmerActor(), pr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, got.Status)

	products, err := svc.GetPurchasedProducts(buyer)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, f.product.ID, products[0].ID)

	got, err = svc.Reject(f.farmerActor(), pr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, got.Status)

	products, err = svc.GetPurchasedProducts(buyer)
	require.NoError(t, err)
	assert.Empty(t, products)

	rejected, err := svc.GetOutgoing(buyer, model.RequestRejected)
	require.NoError(t, err)
	assert.Len(t, rejected, 1)

	incoming, err := svc.GetIncoming(f.farmerActor())
	require.NoError(t, err)
	assert.Len(t, incoming, 2, "fixture request plus this one")
}

func TestRequestService_Delete(t *testing.T) {
	f, svc, buyer := newRequestFixture(t)

	pr, err := svc.CreateRequest(buyer, &CreatePurchaseRequest{ProductID: f.product.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteRequest(buyer, pr.ID), ErrForbidden)
	require.NoError(t, svc.DeleteRequest(f.farmerActor(), pr.ID))
	assert.ErrorIs(t, svc.DeleteRequest(f.farmerActor(), pr.ID), ErrRequestNotFound)
}
