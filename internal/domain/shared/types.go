package shared

// SourceType tags the business object a journal entry originates from
type SourceType string

const (
	SourceTypeSale            SourceType = "sale"
	SourceTypePayment         SourceType = "payment"
	SourceTypeSupplierInvoice SourceType = "supplier_invoice"
	SourceTypeSupplierPayment SourceType = "supplier_payment"
	SourceTypeExpense         SourceType = "expense"
	SourceTypeAdjustment      SourceType = "adjustment"
	SourceTypeManual          SourceType = "manual"
	SourceTypeRefund          SourceType = "refund"
	SourceTypeReversal        SourceType = "reversal"
)

// IsValid reports whether the source type is known
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeSale, SourceTypePayment, SourceTypeSupplierInvoice, SourceTypeSupplierPayment,
		SourceTypeExpense, SourceTypeAdjustment, SourceTypeManual, SourceTypeRefund, SourceTypeReversal:
		return true
	}
	return false
}

// PostingStatus tracks an asynchronously submitted business event
type PostingStatus string

const (
	PostingStatusPending   PostingStatus = "PENDING"
	PostingStatusCompleted PostingStatus = "COMPLETED"
	PostingStatusFailed    PostingStatus = "FAILED"
)

// FailureReason categorizes why an event could not be posted
type FailureReason string

const (
	FailureReasonValidation     FailureReason = "VALIDATION_FAILED"
	FailureReasonInvalidAccount FailureReason = "INVALID_ACCOUNT"
	FailureReasonNotFound       FailureReason = "NOT_FOUND"
	FailureReasonConflict       FailureReason = "CONFLICT"
	FailureReasonUnbalanced     FailureReason = "UNBALANCED_ENTRY"
	FailureReasonUnknownError   FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
