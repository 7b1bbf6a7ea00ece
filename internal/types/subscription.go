package types

import (
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the lifecycle status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing       SubscriptionStatus = "trialing"
	SubscriptionStatusActive         SubscriptionStatus = "active"
	SubscriptionStatusPaused         SubscriptionStatus = "paused"
	SubscriptionStatusPastDue        SubscriptionStatus = "past_due"
	SubscriptionStatusPendingRenewal SubscriptionStatus = "pending_renewal"
	SubscriptionStatusFinished       SubscriptionStatus = "finished"
	SubscriptionStatusCanceled       SubscriptionStatus = "canceled"
)

var SubscriptionStatusValues = []SubscriptionStatus{
	SubscriptionStatusTrialing,
	SubscriptionStatusActive,
	SubscriptionStatusPaused,
	SubscriptionStatusPastDue,
	SubscriptionStatusPendingRenewal,
	SubscriptionStatusFinished,
	SubscriptionStatusCanceled,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// Label is the display name of the status
func (s SubscriptionStatus) Label() string {
	switch s {
	case SubscriptionStatusTrialing:
		return "Trialing"
	case SubscriptionStatusActive:
		return "Active"
	case SubscriptionStatusPaused:
		return "Paused"
	case SubscriptionStatusPastDue:
		return "Past Due"
	case SubscriptionStatusPendingRenewal:
		return "Pending Renewal"
	case SubscriptionStatusFinished:
		return "Finished"
	case SubscriptionStatusCanceled:
		return "Canceled"
	default:
		return string(s)
	}
}

func (s SubscriptionStatus) Validate() error {
	if !lo.Contains(SubscriptionStatusValues, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"allowed_values": SubscriptionStatusValues,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether the subscription will never bill again
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusFinished || s == SubscriptionStatusCanceled
}

// BillIn defines when a billing cycle is invoiced
type BillIn string

const (
	// BillInAdvance invoices a cycle when it starts
	BillInAdvance BillIn = "advance"
	// BillInArrears invoices a cycle when it ends
	BillInArrears BillIn = "arrears"
)

var BillInValues = []BillIn{
	BillInAdvance,
	BillInArrears,
}

func (b BillIn) String() string {
	return string(b)
}

func (b BillIn) Validate() error {
	if !lo.Contains(BillInValues, b) {
		return ierr.NewError("invalid bill in").
			WithHint("Bill in must be advance or arrears").
			WithReportableDetails(map[string]any{
				"allowed_values": BillInValues,
				"provided_value": b,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ContractRenewal defines what happens when a contract term ends
type ContractRenewal string

const (
	ContractRenewalAuto   ContractRenewal = "auto"
	ContractRenewalManual ContractRenewal = "manual"
	ContractRenewalNone   ContractRenewal = "none"
)

var ContractRenewalValues = []ContractRenewal{
	ContractRenewalAuto,
	ContractRenewalManual,
	ContractRenewalNone,
}

func (c ContractRenewal) Validate() error {
	if !lo.Contains(ContractRenewalValues, c) {
		return ierr.NewError("invalid contract renewal").
			WithHint("Contract renewal must be auto, manual or none").
			WithReportableDetails(map[string]any{
				"allowed_values": ContractRenewalValues,
				"provided_value": c,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
