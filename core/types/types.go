package types

// AccountID identifies an account record.
type AccountID uint64

// AssetID identifies an asset record.
type AssetID uint32

// VoteID is an index into the dense per-interval vote tally buffer. Every
// electable candidate and every worker approval/disapproval slot owns one.
type VoteID uint32

// WitnessID identifies a witness candidate record.
type WitnessID uint32

// CommitteeID identifies a committee-member candidate record.
type CommitteeID uint32

// WorkerID identifies a worker record.
type WorkerID uint32

// OrderID identifies a limit order resting on the book.
type OrderID uint64

// FeeBucketID identifies a fee accumulation bucket.
type FeeBucketID uint32

// MembershipKind is the paid-membership tier of an account.
type MembershipKind byte

const (
	MembershipBasic MembershipKind = iota
	MembershipAnnual
	MembershipLifetime
)

func (m MembershipKind) String() string {
	switch m {
	case MembershipBasic:
		return "basic"
	case MembershipAnnual:
		return "annual"
	case MembershipLifetime:
		return "lifetime"
	}

	return "unknown"
}

// WorkerKind selects the payment strategy of a worker. The set is closed:
// payment code matches it exhaustively.
type WorkerKind byte

const (
	// WorkerRefund returns its pay to the reserve by reducing supply.
	WorkerRefund WorkerKind = iota
	// WorkerBurn destroys its pay and counts it as burnt fees.
	WorkerBurn
	// WorkerVesting credits its pay to the owning account's vesting balance.
	WorkerVesting
)

func (w WorkerKind) String() string {
	switch w {
	case WorkerRefund:
		return "refund"
	case WorkerBurn:
		return "burn"
	case WorkerVesting:
		return "vesting"
	}

	return "unknown"
}
