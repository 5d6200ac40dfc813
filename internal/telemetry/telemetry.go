// Package telemetry exposes Prometheus metrics for the order pipeline.
// HTTP-level metrics live in the middleware package; these counters track
// business events the services emit directly.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts successful checkout submissions by payment method.
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "Orders created through checkout.",
	}, []string{"payment_method"})

	// CheckoutFailures counts rejected submissions by reason code.
	CheckoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "orders",
		Name:      "checkout_failures_total",
		Help:      "Checkout submissions rejected before order creation.",
	}, []string{"reason"})

	// CouponRedemptions counts coupon uses consumed by placed orders.
	CouponRedemptions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "coupons",
		Name:      "redemptions_total",
		Help:      "Coupon redemptions recorded at order placement.",
	})

	// CouponRejections counts failed coupon validations by rule.
	CouponRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "coupons",
		Name:      "rejections_total",
		Help:      "Coupon validations rejected, labelled by the failing rule.",
	}, []string{"rule"})

	// RiderAcceptConflicts counts lost races for order assignment.
	RiderAcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "riders",
		Name:      "accept_conflicts_total",
		Help:      "Order accept attempts that lost the assignment race.",
	})

	// DeliveryTransitions counts lifecycle moves by target status.
	DeliveryTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "orders",
		Name:      "delivery_transitions_total",
		Help:      "Delivery status transitions applied.",
	}, []string{"to"})
)
