package reconcile

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"stocktake/internal/device"
)

// fakeResolver returns a fixed vendor name and counts calls.
type fakeResolver struct {
	vendor  string
	calls   int
	lastMAC string
}

func (f *fakeResolver) Vendor(_ context.Context, mac string) string {
	f.calls++
	f.lastMAC = mac
	return f.vendor
}

func TestReconcileExplicitFieldsWin(t *testing.T) {
	resolver := &fakeResolver{vendor: "Acme Networks"}
	r := New(resolver)

	item := r.Reconcile(context.Background(), device.RawItem{
		Make:         "Dell",
		Model:        "PowerEdge R740",
		SerialNumber: "SN1",
		PartNumber:   "PN1",
		DPN:          "016PD3",
		VPN:          "KM5221",
		MACAddress:   "AABBCCDDEEFF",
	})

	want := device.Item{
		Make:         "Dell",
		Model:        "PowerEdge R740",
		SerialNumber: "SN1",
		PartNumber:   "PN1",
		MACAddress:   "AA:BB:CC:DD:EE:FF",
	}
	if diff := cmp.Diff(want, item); diff != "" {
		t.Errorf("reconciled item mismatch (-want +got):\n%s", diff)
	}
	// Make was printed on the label; the lookup must not have run.
	assert.Zero(t, resolver.calls)
}

func TestReconcileLookupOutranksDPN(t *testing.T) {
	resolver := &fakeResolver{vendor: "Acme Networks"}
	r := New(resolver)

	item := r.Reconcile(context.Background(), device.RawItem{
		Make:       "N/A",
		DPN:        "016PD3",
		MACAddress: "AA:BB:CC:DD:EE:FF",
	})

	assert.Equal(t, "Acme Networks", item.Make)
	assert.Equal(t, 1, resolver.calls)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", resolver.lastMAC)
}

func TestReconcileDPNFallback(t *testing.T) {
	resolver := &fakeResolver{} // lookup contributes nothing
	r := New(resolver)

	item := r.Reconcile(context.Background(), device.RawItem{
		Make:       "",
		DPN:        "016PD3",
		MACAddress: "AABBCCDDEEFF",
	})

	assert.Equal(t, "Dell", item.Make)
	// No vpn and make came from dp_n, so dp_n doubles as the model.
	assert.Equal(t, "016PD3", item.Model)
}

func TestReconcileVPNBeforeDPNForModel(t *testing.T) {
	// The end-to-end candidate from the intake flow: make and model both
	// N/A, dp_n and vpn both present, lookup absent.
	resolver := &fakeResolver{}
	r := New(resolver)

	item := r.Reconcile(context.Background(), device.RawItem{
		Make:         "N/A",
		Model:        "N/A",
		SerialNumber: "SN1",
		PartNumber:   "",
		DPN:          "016PD3",
		VPN:          "KM5221WBKB-INT",
		MACAddress:   "AABBCCDDEEFF",
	})

	want := device.Item{
		Make:         "Dell",
		Model:        "KM5221WBKB-INT",
		SerialNumber: "SN1",
		PartNumber:   device.Unknown,
		MACAddress:   "AA:BB:CC:DD:EE:FF",
	}
	if diff := cmp.Diff(want, item); diff != "" {
		t.Errorf("reconciled item mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileNoMACNoLookup(t *testing.T) {
	resolver := &fakeResolver{vendor: "Acme Networks"}
	r := New(resolver)

	item := r.Reconcile(context.Background(), device.RawItem{
		Make:       "",
		MACAddress: "not-a-mac",
	})

	assert.Equal(t, device.Unknown, item.Make)
	assert.Equal(t, device.Unknown, item.MACAddress)
	assert.Zero(t, resolver.calls, "sentinel MAC must not trigger a lookup")
}

func TestReconcileAllUnknown(t *testing.T) {
	r := New(&fakeResolver{})
	item := r.Reconcile(context.Background(), device.RawItem{})

	want := device.Item{
		Make:         device.Unknown,
		Model:        device.Unknown,
		SerialNumber: device.Unknown,
		PartNumber:   device.Unknown,
		MACAddress:   device.Unknown,
	}
	if diff := cmp.Diff(want, item); diff != "" {
		t.Errorf("reconciled item mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	resolver := &fakeResolver{}
	r := New(resolver)

	first := r.Reconcile(context.Background(), device.RawItem{
		Make:       "N/A",
		Model:      "N/A",
		DPN:        "016PD3",
		VPN:        "KM5221WBKB-INT",
		MACAddress: "AABBCCDDEEFF",
	})

	// Feed the output back in as a new raw candidate.
	second := r.Reconcile(context.Background(), device.RawItem{
		Make:         first.Make,
		Model:        first.Model,
		SerialNumber: first.SerialNumber,
		PartNumber:   first.PartNumber,
		MACAddress:   first.MACAddress,
	})

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reconciler not idempotent (-first +second):\n%s", diff)
	}
}
