package events

// Event type names
const (
	TypeFBADistributeEvent  = "meridian/FBADistributeEvent"
	TypeOrderCreatedEvent   = "meridian/OrderCreatedEvent"
	TypeOrderFilledEvent    = "meridian/OrderFilledEvent"
	TypeOrderCanceledEvent  = "meridian/OrderCanceledEvent"
	TypeAccountUpgradeEvent = "meridian/AccountUpgradeEvent"
	TypeBudgetEvent         = "meridian/BudgetEvent"
)

// Event is a virtual operation generated by the maintenance engine and
// recorded into history so its effects stay auditable.
type Event interface {
	Type() string
}

type Events []Event

// FBADistributeEvent records the three-way split of one fee-bucket
// accumulator. The network amount is burnt; the other two are credited.
type FBADistributeEvent struct {
	Bucket         uint32 `json:"bucket"`
	BuybackAccount uint64 `json:"buyback_account"`
	BuybackAmount  string `json:"buyback_amount"`
	IssuerAccount  uint64 `json:"issuer_account"`
	IssuerAmount   string `json:"issuer_amount"`
	NetworkAmount  string `json:"network_amount"`
}

func (e *FBADistributeEvent) Type() string {
	return TypeFBADistributeEvent
}

// OrderCreatedEvent records a limit order placed on the book, including
// synthetic buyback orders.
type OrderCreatedEvent struct {
	ID           uint64 `json:"id"`
	Seller       uint64 `json:"seller"`
	SellAsset    uint32 `json:"sell_asset"`
	ForSale      string `json:"for_sale"`
	ReceiveAsset uint32 `json:"receive_asset"`
	MinToReceive string `json:"min_to_receive"`
}

func (e *OrderCreatedEvent) Type() string {
	return TypeOrderCreatedEvent
}

// OrderFilledEvent records one fill against a resting order.
type OrderFilledEvent struct {
	ID       uint64 `json:"id"`
	Maker    uint64 `json:"maker"`
	Taker    uint64 `json:"taker"`
	Paid     string `json:"paid"`
	Received string `json:"received"`
}

func (e *OrderFilledEvent) Type() string {
	return TypeOrderFilledEvent
}

type OrderCanceledEvent struct {
	ID     uint64 `json:"id"`
	Seller uint64 `json:"seller"`
	Refund string `json:"refund"`
}

func (e *OrderCanceledEvent) Type() string {
	return TypeOrderCanceledEvent
}

// AccountUpgradeEvent records a membership transition performed by the
// engine, for example an expired annual membership falling back to basic.
type AccountUpgradeEvent struct {
	Account uint64 `json:"account"`
	From    string `json:"from"`
	To      string `json:"to"`
}

func (e *AccountUpgradeEvent) Type() string {
	return TypeAccountUpgradeEvent
}

// BudgetEvent mirrors the per-interval budget record.
type BudgetEvent struct {
	Time                    uint64 `json:"time"`
	TimeSinceLastBudget     uint64 `json:"time_since_last_budget"`
	FromInitialReserve      string `json:"from_initial_reserve"`
	FromAccumulatedFees     string `json:"from_accumulated_fees"`
	FromUnusedWitnessBudget string `json:"from_unused_witness_budget"`
	RequestedWitnessBudget  string `json:"requested_witness_budget"`
	TotalBudget             string `json:"total_budget"`
	WitnessBudget           string `json:"witness_budget"`
	WorkerBudget            string `json:"worker_budget"`
	LeftoverWorkerFunds     string `json:"leftover_worker_funds"`
	SupplyDelta             string `json:"supply_delta"`
}

func (e *BudgetEvent) Type() string {
	return TypeBudgetEvent
}
