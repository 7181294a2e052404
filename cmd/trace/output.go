package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jmerrifield20/ProvenanceLedger/pkg/client"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

func printEntry(w io.Writer, entry client.Entry, format string) error {
	switch format {
	case "json":
		return writeJSON(w, entry)
	case "yaml":
		return writeYAML(w, entry)
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	a := entry.Asset
	rows := pterm.TableData{
		{"ID", a.ID},
		{"Name", a.Name},
		{"Category", a.Category},
		{"Status", string(a.Status)},
		{"Owner", string(a.Owner)},
		{"Created", formatMillis(a.CreateTime)},
		{"Updated", formatMillis(a.LastUpdated)},
	}
	for _, f := range [][2]string{
		{"Origin", a.Origin}, {"Harvest date", a.HarvestDate},
		{"Package", a.PackageID}, {"Process temp", a.ProcessTemp},
		{"Logistics", a.LogisticsID}, {"Transport temp", a.TransportTemp},
		{"Retailer", a.RetailerName}, {"Shelf life", a.ShelfLife},
	} {
		if f[1] != "" {
			rows = append(rows, []string{f[0], f[1]})
		}
	}
	out, err := pterm.DefaultTable.WithData(rows).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	fmt.Fprintln(w)

	history := pterm.TableData{{"#", "TIME", "FUNCTION", "ROLE", "INPUTS", "HASH", "PREV"}}
	for i, b := range entry.History {
		history = append(history, []string{
			fmt.Sprint(i),
			formatMillis(b.Timestamp),
			b.FunctionName,
			string(b.InvokerRole),
			formatInputs(b.Inputs),
			short(b.CurrentHash),
			short(b.PreviousHash),
		})
	}
	out, err = pterm.DefaultTable.WithHasHeader().WithData(history).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}

func printAssets(w io.Writer, assets []client.Asset, format string) error {
	switch format {
	case "json":
		return writeJSON(w, assets)
	case "yaml":
		return writeYAML(w, assets)
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if len(assets) == 0 {
		fmt.Fprintln(w, "no assets")
		return nil
	}
	rows := pterm.TableData{{"ID", "NAME", "CATEGORY", "STATUS", "OWNER", "UPDATED"}}
	for _, a := range assets {
		rows = append(rows, []string{a.ID, a.Name, a.Category, string(a.Status), string(a.Owner), formatMillis(a.LastUpdated)})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML round-trips v through JSON so the YAML keys match the wire names
// and keep their order.
func writeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func formatInputs(in map[string]string) string {
	keys := make([]string, 0, len(in))
	for k := range in {
		if k != "id" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var s string
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += k + "=" + in[k]
	}
	return s
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
