package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func TestBuildOrderFromRequestComputesTotal(t *testing.T) {
	req := createOrderRequest{
		Items: []createOrderItemRequest{
			{ProductID: primitive.NewObjectID().Hex(), Name: "Mug", Price: 10, Quantity: 2},
			{ProductID: primitive.NewObjectID().Hex(), Name: "Plate", Price: 7.5, Quantity: 1},
		},
		CustomerName:    "  Aziza Karimova ",
		CustomerEmail:   "Aziza@Example.COM",
		CustomerPhone:   "+998901234567",
		CustomerAddress: "Tashkent",
	}

	order, err := buildOrderFromRequest(req)
	if err != nil {
		t.Fatalf("buildOrderFromRequest returned error: %v", err)
	}
	if order.TotalAmount != 27.5 {
		t.Fatalf("expected total 27.5, got %v", order.TotalAmount)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("expected status %q, got %q", models.OrderStatusPending, order.Status)
	}
	if order.PaymentStatus != models.PaymentStatusUnpaid {
		t.Fatalf("expected payment status %q, got %q", models.PaymentStatusUnpaid, order.PaymentStatus)
	}
	if order.CustomerName != "Aziza Karimova" {
		t.Fatalf("expected trimmed customer name, got %q", order.CustomerName)
	}
	if order.CustomerEmail != "aziza@example.com" {
		t.Fatalf("expected lowercased email, got %q", order.CustomerEmail)
	}
}

func TestBuildOrderFromRequestRejectsEmptyItems(t *testing.T) {
	req := createOrderRequest{
		CustomerName:    "A",
		CustomerEmail:   "a@example.com",
		CustomerPhone:   "1",
		CustomerAddress: "B",
	}
	if _, err := buildOrderFromRequest(req); err == nil {
		t.Fatal("expected error for order with no items")
	}
}

func TestBuildOrderFromRequestRejectsBadItems(t *testing.T) {
	validID := primitive.NewObjectID().Hex()
	tests := []struct {
		name string
		item createOrderItemRequest
	}{
		{"invalid product id", createOrderItemRequest{ProductID: "not-an-id", Name: "X", Price: 1, Quantity: 1}},
		{"zero quantity", createOrderItemRequest{ProductID: validID, Name: "X", Price: 1, Quantity: 0}},
		{"negative quantity", createOrderItemRequest{ProductID: validID, Name: "X", Price: 1, Quantity: -3}},
	}
	for _, tc := range tests {
		req := createOrderRequest{
			Items:           []createOrderItemRequest{tc.item},
			CustomerName:    "A",
			CustomerEmail:   "a@example.com",
			CustomerPhone:   "1",
			CustomerAddress: "B",
		}
		if _, err := buildOrderFromRequest(req); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
