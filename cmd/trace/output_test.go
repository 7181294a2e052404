package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"github.com/jmerrifield20/ProvenanceLedger/pkg/client"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

func init() { pterm.DisableColor() }

func sampleEntry() client.Entry {
	return client.Entry{
		Asset: ledger.Asset{
			ID: "A1", Name: "Apples", Category: "Fruit", Origin: "Valley", HarvestDate: "2024-01-01",
			Status: ledger.StatusHarvested, Owner: ledger.RoleSupplier,
			CreateTime: 1_700_000_000_000, LastUpdated: 1_700_000_000_000,
		},
		History: []ledger.Block{{
			TxID:         strings.Repeat("a", 64),
			Timestamp:    1_700_000_000_000,
			FunctionName: ledger.FuncCreateAsset,
			InvokerRole:  ledger.RoleSupplier,
			Inputs:       map[string]string{"id": "A1", "name": "Apples"},
			Signature:    "SIG_SUPPLIER_12345678",
			PreviousHash: strings.Repeat("0", 32),
			CurrentHash:  strings.Repeat("f", 32),
		}},
	}
}

func TestParseArgs(t *testing.T) {
	got, err := parseArgs([]string{"id=A1", "name=Red=Apples", "id=A2"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if got["id"] != "A2" || got["name"] != "Red=Apples" {
		t.Errorf("parseArgs = %v", got)
	}

	for _, bad := range []string{"noequals", "=value"} {
		if _, err := parseArgs([]string{bad}); err == nil {
			t.Errorf("parseArgs(%q): expected error", bad)
		}
	}
}

func TestPrintEntry_text(t *testing.T) {
	var buf bytes.Buffer
	if err := printEntry(&buf, sampleEntry(), "text"); err != nil {
		t.Fatalf("printEntry: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"A1", "HARVESTED", "Valley", "createAsset", "name=Apples"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintEntry_json(t *testing.T) {
	var buf bytes.Buffer
	if err := printEntry(&buf, sampleEntry(), "json"); err != nil {
		t.Fatalf("printEntry: %v", err)
	}
	var decoded client.Entry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Asset.ID != "A1" || len(decoded.History) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestPrintEntry_yaml(t *testing.T) {
	var buf bytes.Buffer
	if err := printEntry(&buf, sampleEntry(), "yaml"); err != nil {
		t.Fatalf("printEntry: %v", err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	asset, _ := decoded["asset"].(map[string]any)
	if asset["id"] != "A1" {
		t.Errorf("asset.id = %v\n%s", asset["id"], buf.String())
	}
	if strings.Contains(buf.String(), "{") {
		t.Errorf("expected block style output:\n%s", buf.String())
	}
}

func TestPrintEntry_unknownFormat(t *testing.T) {
	if err := printEntry(&bytes.Buffer{}, sampleEntry(), "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestPrintAssets(t *testing.T) {
	var buf bytes.Buffer
	if err := printAssets(&buf, nil, "text"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no assets") {
		t.Errorf("empty list output = %q", buf.String())
	}

	buf.Reset()
	assets := []client.Asset{sampleEntry().Asset}
	if err := printAssets(&buf, assets, "text"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Apples") {
		t.Errorf("output missing asset:\n%s", buf.String())
	}
}
