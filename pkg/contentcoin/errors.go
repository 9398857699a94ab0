package contentcoin

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrValidation indicates bad or missing input; no external call was made
	ErrValidation = errors.New("validation failed")

	// ErrPublish indicates the content store rejected an upload
	ErrPublish = errors.New("publish failed")

	// ErrChainMismatch indicates the signing session is bound to the wrong chain
	ErrChainMismatch = errors.New("chain mismatch")

	// ErrDeployment indicates the deployment call reverted or was rejected
	ErrDeployment = errors.New("deployment failed")

	// ErrPersistence indicates a catalog write failed
	ErrPersistence = errors.New("persistence failed")

	// ErrUnauthorized indicates a mutation by someone other than the coin's creator
	ErrUnauthorized = errors.New("not the coin creator")

	// ErrNotification indicates a notification could not be delivered
	ErrNotification = errors.New("notification failed")

	// ErrDuplicateAddress indicates the contract address is already catalogued
	ErrDuplicateAddress = errors.New("coin address already exists")

	ErrCoinNotFound    = errors.New("coin not found")
	ErrCreatorNotFound = errors.New("creator not found")

	// ErrMissingCredentials is returned by constructors when a required
	// credential was not configured
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrWalletNotConnected indicates there is no signing session
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrRequestInProgress is returned while another run holds the same
	// idempotency key
	ErrRequestInProgress = errors.New("request with this idempotency key is in progress")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// PublishError wraps a content store failure.
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s failed: %v", e.Op, e.Err)
}

func (e *PublishError) Is(target error) bool {
	return target == ErrPublish
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// ChainMismatchError is not retried automatically; the user has to switch
// networks first.
type ChainMismatchError struct {
	Want int64
	Got  int64
}

func (e *ChainMismatchError) Error() string {
	return fmt.Sprintf("signing session is on chain %d, expected chain %d", e.Got, e.Want)
}

func (e *ChainMismatchError) Is(target error) bool {
	return target == ErrChainMismatch
}

// Remediation is the action the user has to take before retrying.
func (e *ChainMismatchError) Remediation() string {
	return fmt.Sprintf("switch your wallet network to chain %d and try again", e.Want)
}

// DeploymentError wraps a failed deployment. Transient is set when the call
// failed before the relayer answered, so nothing was broadcast.
type DeploymentError struct {
	Err       error
	Transient bool
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("deployment failed: %v", e.Err)
}

func (e *DeploymentError) Is(target error) bool {
	return target == ErrDeployment
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the deployment may be retried without user action.
func (e *DeploymentError) Retryable() bool {
	return e.Transient
}

// PersistenceError wraps a catalog failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence operation %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// AuthorizationError is returned when Requester does not own the coin.
type AuthorizationError struct {
	Requester string
	Owner     string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("wallet %s is not the creator of this coin", e.Requester)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NotificationError wraps a delivery failure on a channel.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification via %s failed: %v", e.Channel, e.Err)
}

func (e *NotificationError) Is(target error) bool {
	return target == ErrNotification
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// DuplicateAddressError is returned by InsertCoin for a known address.
type DuplicateAddressError struct {
	Address string
}

func (e *DuplicateAddressError) Error() string {
	return fmt.Sprintf("coin address %s already exists", e.Address)
}

func (e *DuplicateAddressError) Is(target error) bool {
	return target == ErrDuplicateAddress
}

// StageError records the pipeline stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
