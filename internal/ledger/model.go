package ledger

import "strings"

// Role is the organizational capability of a ledger participant.
type Role string

const (
	RoleSupplier  Role = "SUPPLIER"
	RoleProcessor Role = "PROCESSOR"
	RoleLogistics Role = "LOGISTICS"
	RoleRetailer  Role = "RETAILER"
	RoleConsumer  Role = "CONSUMER"
)

// Roles lists every known role in supply-chain order.
var Roles = []Role{RoleSupplier, RoleProcessor, RoleLogistics, RoleRetailer, RoleConsumer}

// ParseRole normalises s and returns the matching Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Status is the lifecycle stage of an asset.
type Status string

const (
	StatusHarvested Status = "HARVESTED"
	StatusProcessed Status = "PROCESSED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusOnShelf   Status = "ON_SHELF"
	// StatusSold is reserved. No transition produces it yet.
	StatusSold Status = "SOLD"
)

var statusOrder = map[Status]int{
	StatusHarvested: 1,
	StatusProcessed: 2,
	StatusInTransit: 3,
	StatusOnShelf:   4,
	StatusSold:      5,
}

// Rank returns the position of s in the lifecycle, or 0 for an unknown status.
func (s Status) Rank() int { return statusOrder[s] }

// Function names accepted by the engine.
const (
	FuncCreateAsset    = "createAsset"
	FuncProcessAsset   = "processAsset"
	FuncTransportAsset = "transportAsset"
	FuncReceiveAsset   = "receiveAsset"
)

// Asset is the current derived state of a tracked good.
type Asset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	CreateTime  int64  `json:"createTime"`
	LastUpdated int64  `json:"lastUpdated"`
	Status      Status `json:"status"`
	Owner       Role   `json:"owner"`

	Origin        string `json:"origin,omitempty"`
	HarvestDate   string `json:"harvestDate,omitempty"`
	PackageID     string `json:"packageId,omitempty"`
	ProcessTemp   string `json:"processTemp,omitempty"`
	LogisticsID   string `json:"logisticsId,omitempty"`
	TransportTemp string `json:"transportTemp,omitempty"`
	RetailerName  string `json:"retailerName,omitempty"`
	ShelfLife     string `json:"shelfLife,omitempty"`
}

// Block is one immutable, hash-linked record of a state transition.
// Timestamp is Unix milliseconds.
type Block struct {
	TxID         string            `json:"txId"`
	Timestamp    int64             `json:"timestamp"`
	FunctionName string            `json:"functionName"`
	InvokerRole  Role              `json:"invokerRole"`
	Inputs       map[string]string `json:"inputs"`
	Signature    string            `json:"signature"`
	PreviousHash string            `json:"previousHash"`
	CurrentHash  string            `json:"currentHash"`
}

// Entry pairs an asset projection with its ordered transaction history.
type Entry struct {
	Asset   Asset   `json:"asset"`
	History []Block `json:"history"`
}

// Head returns the last block of the chain, or false when History is empty.
func (e *Entry) Head() (Block, bool) {
	if len(e.History) == 0 {
		return Block{}, false
	}
	return e.History[len(e.History)-1], true
}

// Clone returns a deep copy of e. Stores hand out clones so callers can never
// mutate committed state.
func (e Entry) Clone() Entry {
	out := Entry{Asset: e.Asset, History: make([]Block, len(e.History))}
	for i, b := range e.History {
		out.History[i] = b.Clone()
	}
	return out
}

// Clone returns a copy of b with its own Inputs map.
func (b Block) Clone() Block {
	if b.Inputs != nil {
		in := make(map[string]string, len(b.Inputs))
		for k, v := range b.Inputs {
			in[k] = v
		}
		b.Inputs = in
	}
	return b
}
