package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusCancelRequested},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusProcessing, OrderStatusCancelRequested},
		{OrderStatusShipped, OrderStatusDelivered},
		{OrderStatusDelivered, OrderStatusReturnRequested},
		{OrderStatusCancelRequested, OrderStatusCancelled},
		{OrderStatusCancelRequested, OrderStatusPending},
		{OrderStatusCancelRequested, OrderStatusProcessing},
		{OrderStatusReturnRequested, OrderStatusReturnApproved},
		{OrderStatusReturnRequested, OrderStatusDelivered},
		{OrderStatusReturnApproved, OrderStatusReturnCompleted},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusShipped, OrderStatusCancelRequested},
		{OrderStatusShipped, OrderStatusProcessing},
		{OrderStatusDelivered, OrderStatusShipped},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusReturnCompleted, OrderStatusDelivered},
		{OrderStatusReturnApproved, OrderStatusDelivered},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be denied", tc.from, tc.to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusCancelled, OrderStatusReturnCompleted} {
		if !status.IsTerminal() {
			t.Errorf("%s should be terminal", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusDelivered, OrderStatusCancelRequested} {
		if status.IsTerminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}
}

func TestOrderStatusCancellable(t *testing.T) {
	if !OrderStatusPending.IsCancellable() || !OrderStatusProcessing.IsCancellable() {
		t.Error("pending and processing orders are cancellable")
	}
	if OrderStatusShipped.IsCancellable() || OrderStatusDelivered.IsCancellable() {
		t.Error("shipped and delivered orders are not cancellable")
	}
}
