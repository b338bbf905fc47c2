// Package reconcile merges the three information sources for one candidate
// item — fields read directly off the label, vendor-specific part-number
// heuristics, and the MAC vendor lookup — into a single best-guess record.
//
// Precedence is fixed: explicit printed data always wins; the vendor lookup
// fills a missing make first (it names the OUI owner outright); the dp_n
// Dell heuristic is the fallback after that; vpn fills a missing model before
// dp_n does. Each rule only fires while its target field is still unknown.
package reconcile

import (
	"context"

	"stocktake/internal/device"
	"stocktake/internal/macaddr"
	"stocktake/internal/vendorlookup"
)

// dellMake is adopted when a Dell part number (dp_n) is present and no
// stronger make signal fired: that field, when populated, is definitionally
// Dell's own product.
const dellMake = "Dell"

// Reconciler applies the inference precedence to raw candidate items.
type Reconciler struct {
	resolver vendorlookup.Resolver
}

// New builds a Reconciler around the given vendor resolver.
func New(resolver vendorlookup.Resolver) *Reconciler {
	return &Reconciler{resolver: resolver}
}

// Reconcile produces the finished item for one raw candidate. The vendor
// lookup is the only network touch and happens at most once, and only when
// the label itself named no make and the MAC normalized to a concrete value.
// Deterministic given identical inputs and identical resolver responses.
func (r *Reconciler) Reconcile(ctx context.Context, raw device.RawItem) device.Item {
	mac := macaddr.Normalize(raw.MACAddress)
	itemMake := device.Canonical(raw.Make)
	model := device.Canonical(raw.Model)
	dpn := device.Canonical(raw.DPN)
	vpn := device.Canonical(raw.VPN)

	if itemMake == device.Unknown && mac != device.Unknown {
		if vendor := r.resolver.Vendor(ctx, mac); vendor != "" {
			itemMake = vendor
		}
	}

	makeFromDPN := false
	if itemMake == device.Unknown && dpn != device.Unknown {
		itemMake = dellMake
		makeFromDPN = true
	}

	if model == device.Unknown && vpn != device.Unknown {
		model = vpn
	}
	if model == device.Unknown && makeFromDPN {
		model = dpn
	}

	return device.Item{
		Make:         itemMake,
		Model:        model,
		SerialNumber: device.Canonical(raw.SerialNumber),
		PartNumber:   device.Canonical(raw.PartNumber),
		MACAddress:   mac,
	}
}
