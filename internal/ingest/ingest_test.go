package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stocktake/internal/device"
	"stocktake/internal/ledger"
)

type fakeProcessor struct {
	results map[string]device.Result // keyed on a marker inside the image bytes
	calls   int
}

func (f *fakeProcessor) ProcessImage(_ context.Context, image []byte, _ string) device.Result {
	f.calls++
	if res, ok := f.results[string(image)]; ok {
		return res
	}
	return device.Result{Err: &device.ErrorRecord{Reason: "unexpected image"}}
}

type fakeLedger struct {
	rows      []ledger.Row
	appendErr error
}

func (f *fakeLedger) EnsureHeader(_ context.Context) error { return nil }

func (f *fakeLedger) Append(_ context.Context, row ledger.Row) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, row)
	return nil
}

func oneItem(vendor string) device.Result {
	return device.Result{Items: []device.Item{{
		Make:         vendor,
		Model:        "M",
		SerialNumber: "S",
		PartNumber:   device.Unknown,
		MACAddress:   device.Unknown,
	}}}
}

// imageServer serves named fake images; requesting /missing.jpg fails.
func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(strings.TrimPrefix(r.URL.Path, "/")))
	}))
	t.Cleanup(server.Close)
	return server
}

func newCoordinator(p ImageProcessor, l ledger.Ledger) *Coordinator {
	return New(p, l, time.UTC, zap.NewNop())
}

func event(server *httptest.Server, files ...string) Event {
	ev := Event{
		ClientName: "Acme Corp",
		Submitter:  "tech",
		CreatedAt:  time.Date(2026, 8, 29, 15, 4, 5, 0, time.UTC),
	}
	for _, f := range files {
		ct := "image/jpeg"
		if strings.HasSuffix(f, ".pdf") {
			ct = "application/pdf"
		}
		ev.Attachments = append(ev.Attachments, Attachment{
			URL:         server.URL + "/" + f,
			Filename:    f,
			ContentType: ct,
		})
	}
	return ev
}

func TestProcessMissingClientName(t *testing.T) {
	proc := &fakeProcessor{}
	c := newCoordinator(proc, &fakeLedger{})

	out := c.Process(context.Background(), Event{ClientName: "  "})
	assert.Equal(t, StatusNoInput, out.Status)
	assert.Contains(t, out.Reply, "Client name is missing")
	assert.Zero(t, proc.calls)
}

func TestProcessNoImageAttachments(t *testing.T) {
	server := imageServer(t)
	proc := &fakeProcessor{}
	c := newCoordinator(proc, &fakeLedger{})

	out := c.Process(context.Background(), event(server, "report.pdf"))
	assert.Equal(t, StatusNoInput, out.Status)
	assert.Contains(t, out.Reply, "No image attachments")
	assert.Zero(t, proc.calls)
}

func TestImageAttachmentsFilter(t *testing.T) {
	atts := []Attachment{
		{Filename: "label.jpg", ContentType: "image/jpeg"},
		{Filename: "invoice.pdf", ContentType: "application/pdf"},
		{Filename: "rack.png", ContentType: "image/png"},
		{Filename: "notes.txt", ContentType: "text/plain"},
	}
	images := ImageAttachments(atts)
	require.Len(t, images, 2)
	assert.Equal(t, "label.jpg", images[0].Filename)
	assert.Equal(t, "rack.png", images[1].Filename)
	assert.Empty(t, ImageAttachments(nil))
}

func TestProcessFullSuccess(t *testing.T) {
	server := imageServer(t)
	led := &fakeLedger{}
	proc := &fakeProcessor{results: map[string]device.Result{
		"front.jpg": oneItem("Dell"),
	}}
	c := newCoordinator(proc, led)

	out := c.Process(context.Background(), event(server, "front.jpg"))
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 1, out.Saved)
	assert.Zero(t, out.Failed)
	assert.Zero(t, out.Errored)

	require.Len(t, led.rows, 1)
	row := led.rows[0]
	assert.Equal(t, "2026-08-29 15:04:05", row.Timestamp)
	assert.Equal(t, "tech", row.User)
	assert.Equal(t, "Acme Corp", row.ClientName)
	assert.Equal(t, "Dell", row.Make)
	assert.Equal(t, server.URL+"/front.jpg", row.ImageURL, "row must carry its source image address")

	assert.Contains(t, out.Reply, "**Client:** Acme Corp")
	assert.Contains(t, out.Reply, "`Dell`")
	assert.Contains(t, out.Reply, "Saved 1 item(s)")
}

func TestProcessPartialOnDownloadFailure(t *testing.T) {
	server := imageServer(t)
	led := &fakeLedger{}
	proc := &fakeProcessor{results: map[string]device.Result{
		"front.jpg": oneItem("Dell"),
	}}
	c := newCoordinator(proc, led)

	out := c.Process(context.Background(), event(server, "front.jpg", "missing.jpg"))
	assert.Equal(t, StatusPartial, out.Status)
	assert.Equal(t, 1, out.Saved)
	assert.Equal(t, 1, out.Errored)
	assert.Equal(t, 1, proc.calls, "failed download must not reach the pipeline")

	assert.Contains(t, out.Reply, "image download failed")
	assert.Equal(t, 1, strings.Count(out.Reply, "(saved)"))
	assert.Equal(t, 1, strings.Count(out.Reply, "(error)"))
}

func TestProcessFailureOnAppendError(t *testing.T) {
	server := imageServer(t)
	led := &fakeLedger{appendErr: errors.New("quota exceeded")}
	proc := &fakeProcessor{results: map[string]device.Result{
		"front.jpg": oneItem("Dell"),
	}}
	c := newCoordinator(proc, led)

	out := c.Process(context.Background(), event(server, "front.jpg"))
	assert.Equal(t, StatusFailure, out.Status)
	assert.Zero(t, out.Saved)
	assert.Equal(t, 1, out.Failed)
	assert.Contains(t, out.Reply, "not saved")
}

func TestProcessErrorRecordCarriesSnippet(t *testing.T) {
	server := imageServer(t)
	proc := &fakeProcessor{results: map[string]device.Result{
		"front.jpg": {Err: &device.ErrorRecord{
			Reason:  "format issue: no JSON array or object found in model output",
			Snippet: "Sorry, I cannot read this label.",
		}},
	}}
	c := newCoordinator(proc, &fakeLedger{})

	out := c.Process(context.Background(), event(server, "front.jpg"))
	assert.Equal(t, StatusFailure, out.Status)
	assert.Contains(t, out.Reply, "format issue")
	assert.Contains(t, out.Reply, "cannot read this label")
}

func TestProcessMultipleItemsPerImage(t *testing.T) {
	server := imageServer(t)
	led := &fakeLedger{}
	proc := &fakeProcessor{results: map[string]device.Result{
		"rack.jpg": {Items: []device.Item{
			{Make: "Dell", Model: "A", SerialNumber: "S1", PartNumber: device.Unknown, MACAddress: device.Unknown},
			{Make: "HP", Model: "B", SerialNumber: "S2", PartNumber: device.Unknown, MACAddress: device.Unknown},
		}},
	}}
	c := newCoordinator(proc, led)

	out := c.Process(context.Background(), event(server, "rack.jpg"))
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 2, out.Saved)
	require.Len(t, led.rows, 2)
	assert.Equal(t, led.rows[0].ImageURL, led.rows[1].ImageURL, "both items share the source image")
}

func TestTruncateReply(t *testing.T) {
	long := strings.Repeat("a", maxReplyLen+500)
	got := truncateReply(long)
	assert.LessOrEqual(t, len([]rune(got)), maxReplyLen)
	assert.True(t, strings.HasSuffix(got, truncationMarker))

	short := "fits"
	assert.Equal(t, short, truncateReply(short))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusSuccess, statusFor(2, 0, 0))
	assert.Equal(t, StatusPartial, statusFor(1, 1, 0))
	assert.Equal(t, StatusPartial, statusFor(1, 0, 1))
	assert.Equal(t, StatusFailure, statusFor(0, 1, 0))
	assert.Equal(t, StatusFailure, statusFor(0, 0, 2))
}
