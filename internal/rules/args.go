package rules

import (
	"strings"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

// Args is the typed argument set of one transition. The concrete type is one
// of CreateArgs, ProcessArgs, TransportArgs or ReceiveArgs.
type Args interface {
	// AssetID returns the trimmed asset id.
	AssetID() string
	// missing returns the names of required fields that are empty.
	missing() []string
	applyTo(a *ledger.Asset)
}

// CreateArgs are the arguments of createAsset.
type CreateArgs struct {
	ID          string
	Name        string
	Category    string
	Origin      string
	HarvestDate string
}

// ProcessArgs are the arguments of processAsset.
type ProcessArgs struct {
	ID          string
	PackageID   string
	ProcessTemp string
}

// TransportArgs are the arguments of transportAsset.
type TransportArgs struct {
	ID            string
	LogisticsID   string
	TransportTemp string
}

// ReceiveArgs are the arguments of receiveAsset.
type ReceiveArgs struct {
	ID           string
	RetailerName string
	ShelfLife    string
}

// Decode converts a raw argument map into the typed arguments of
// functionName. Only the id is trimmed; every other value is kept as given so
// the projection matches the block inputs. It returns false for an unknown
// function.
func Decode(functionName string, raw map[string]string) (Args, bool) {
	id := strings.TrimSpace(raw["id"])
	switch functionName {
	case ledger.FuncCreateAsset:
		return CreateArgs{
			ID:          id,
			Name:        raw["name"],
			Category:    raw["category"],
			Origin:      raw["origin"],
			HarvestDate: raw["harvestDate"],
		}, true
	case ledger.FuncProcessAsset:
		return ProcessArgs{ID: id, PackageID: raw["packageId"], ProcessTemp: raw["processTemp"]}, true
	case ledger.FuncTransportAsset:
		return TransportArgs{ID: id, LogisticsID: raw["logisticsId"], TransportTemp: raw["transportTemp"]}, true
	case ledger.FuncReceiveAsset:
		return ReceiveArgs{ID: id, RetailerName: raw["retailerName"], ShelfLife: raw["shelfLife"]}, true
	default:
		return nil, false
	}
}

func (a CreateArgs) AssetID() string    { return a.ID }
func (a ProcessArgs) AssetID() string   { return a.ID }
func (a TransportArgs) AssetID() string { return a.ID }
func (a ReceiveArgs) AssetID() string   { return a.ID }

func (a CreateArgs) missing() []string {
	return missingFields("name", a.Name, "category", a.Category)
}

func (a ProcessArgs) missing() []string {
	return missingFields("packageId", a.PackageID, "processTemp", a.ProcessTemp)
}

func (a TransportArgs) missing() []string {
	return missingFields("logisticsId", a.LogisticsID, "transportTemp", a.TransportTemp)
}

func (a ReceiveArgs) missing() []string {
	return missingFields("retailerName", a.RetailerName, "shelfLife", a.ShelfLife)
}

// Stage fields are write-once: a field already set is never overwritten.

func (a CreateArgs) applyTo(asset *ledger.Asset) {
	asset.ID = a.ID
	asset.Name = a.Name
	asset.Category = a.Category
	setOnce(&asset.Origin, a.Origin)
	setOnce(&asset.HarvestDate, a.HarvestDate)
}

func (a ProcessArgs) applyTo(asset *ledger.Asset) {
	setOnce(&asset.PackageID, a.PackageID)
	setOnce(&asset.ProcessTemp, a.ProcessTemp)
}

func (a TransportArgs) applyTo(asset *ledger.Asset) {
	setOnce(&asset.LogisticsID, a.LogisticsID)
	setOnce(&asset.TransportTemp, a.TransportTemp)
}

func (a ReceiveArgs) applyTo(asset *ledger.Asset) {
	setOnce(&asset.RetailerName, a.RetailerName)
	setOnce(&asset.ShelfLife, a.ShelfLife)
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// missingFields takes name/value pairs. A whitespace-only value counts as missing.
func missingFields(pairs ...string) []string {
	var out []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			out = append(out, pairs[i])
		}
	}
	return out
}
