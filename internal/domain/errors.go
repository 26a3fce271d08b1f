package domain

import "errors"

// Precondition errors carry the fixed, user-visible reason strings. A failed
// call has zero effect; callers assert on these exact values.
var (
	ErrNotAccepting   = errors.New("Not accepted status")
	ErrNotLocked      = errors.New("Not locked status")
	ErrNotIssued      = errors.New("Not issued status")
	ErrStatusInvalid  = errors.New("Invalid status transition")
	ErrAlreadyIssued  = errors.New("Already issued status")
	ErrZeroAmount     = errors.New("Amount must be greater than zero")
	ErrNotWholeLots   = errors.New("Amount must be whole-number thousands")
	ErrCapacityFull   = errors.New("Product is full")
	ErrMaxCapacity    = errors.New("Max capacity must be whole-number thousands")
	ErrInsufficient   = errors.New("Insufficient balance")
	ErrNoPrincipal    = errors.New("No principal to withdraw")
	ErrUnauthorized   = errors.New("Unauthorized caller")
	ErrPaused         = errors.New("Paused")
	ErrReentrantCall  = errors.New("Reentrant call")
	ErrDistributed    = errors.New("Already distributed")
	ErrNotDistributed = errors.New("Not distributed")
)

// Registry errors.
var (
	ErrProductExists   = errors.New("Product already exists")
	ErrProductNotFound = errors.New("Product not found")
)

// Marketplace errors.
var (
	ErrListingNotFound  = errors.New("Listing not found")
	ErrListingNotLive   = errors.New("Listing has not started")
	ErrNotSeller        = errors.New("Caller is not the listing seller")
	ErrSellerMismatch   = errors.New("Seller does not match listing")
	ErrAssetMismatch    = errors.New("Payment asset does not match listing")
	ErrAssetNotAllowed  = errors.New("Unsupported payment asset")
	ErrNotApprovedForAll = errors.New("Marketplace is not an approved operator")
	ErrUnitsLocked      = errors.New("Units are locked until principal withdrawal")
	ErrSelfPurchase     = errors.New("Buyer cannot be the seller")
)
