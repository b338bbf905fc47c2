// Package ingest coordinates one inbound message's attachments through the
// extraction pipeline and into the ledger, and composes the reply the bot
// posts back.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stocktake/internal/device"
	"stocktake/internal/ledger"
)

const (
	downloadTimeout = 15 * time.Second

	// maxReplyLen is Discord's message-length ceiling.
	maxReplyLen      = 2000
	truncationMarker = "\n… (truncated)"

	timestampLayout = "2006-01-02 15:04:05"
)

// ImageProcessor is the pipeline contract the coordinator depends on.
type ImageProcessor interface {
	ProcessImage(ctx context.Context, image []byte, clientName string) device.Result
}

// Attachment is one file on an inbound message.
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
}

// Event is one inbound message with its uploads.
type Event struct {
	ClientName  string
	Submitter   string
	CreatedAt   time.Time
	Attachments []Attachment
}

// Status summarizes how an event went.
type Status int

const (
	// StatusSuccess: every detected item was saved.
	StatusSuccess Status = iota
	// StatusPartial: some items saved, some failed or erred.
	StatusPartial
	// StatusFailure: nothing was saved.
	StatusFailure
	// StatusNoInput: no client name or no image attachments; no pipeline run.
	StatusNoInput
)

// Outcome is what the bot reports back to the channel.
type Outcome struct {
	Status  Status
	Reply   string
	Saved   int
	Failed  int // ledger append failures
	Errored int // download / inference / extraction errors
}

// Coordinator fans one event's attachments through the pipeline, appends the
// resulting rows, and keeps only counts and summary text — never the rows.
type Coordinator struct {
	pipeline   ImageProcessor
	ledger     ledger.Ledger
	httpClient *http.Client
	loc        *time.Location
	log        *zap.Logger
}

// New builds a Coordinator. Row timestamps are rendered in loc.
func New(pipeline ImageProcessor, led ledger.Ledger, loc *time.Location, log *zap.Logger) *Coordinator {
	if loc == nil {
		loc = time.Local
	}
	return &Coordinator{
		pipeline:   pipeline,
		ledger:     led,
		httpClient: &http.Client{Timeout: downloadTimeout},
		loc:        loc,
		log:        log,
	}
}

// tagged pairs one pipeline output with the image it came from.
type tagged struct {
	source string
	item   *device.Item
	rec    *device.ErrorRecord
}

// Process handles one inbound event to completion: sequential downloads,
// sequential pipeline runs, sequential appends. Transport and format errors
// are isolated to the attachment or item they hit; everything else proceeds.
func (c *Coordinator) Process(ctx context.Context, ev Event) Outcome {
	log := c.log.With(zap.String("run", uuid.NewString()[:8]))

	if strings.TrimSpace(ev.ClientName) == "" {
		return Outcome{
			Status: StatusNoInput,
			Reply:  "Client name is missing. Please provide the client's name in the message text along with the image.",
		}
	}

	images := ImageAttachments(ev.Attachments)
	if len(images) == 0 {
		return Outcome{
			Status: StatusNoInput,
			Reply:  "No image attachments found. Attach at least one photo of the device label.",
		}
	}

	log.Info("processing event",
		zap.String("client", ev.ClientName),
		zap.String("submitter", ev.Submitter),
		zap.Int("images", len(images)))

	var results []tagged
	for _, att := range images {
		data, err := c.download(ctx, att.URL)
		if err != nil {
			log.Warn("image download failed", zap.String("file", att.Filename), zap.Error(err))
			results = append(results, tagged{
				source: att.URL,
				rec:    &device.ErrorRecord{Reason: fmt.Sprintf("image download failed: %v", err)},
			})
			continue
		}

		res := c.pipeline.ProcessImage(ctx, data, ev.ClientName)
		if res.Err != nil {
			results = append(results, tagged{source: att.URL, rec: res.Err})
			continue
		}
		for i := range res.Items {
			results = append(results, tagged{source: att.URL, item: &res.Items[i]})
		}
	}

	timestamp := ev.CreatedAt.In(c.loc).Format(timestampLayout)
	var saved, failed, errored int
	var sections []string

	for i, t := range results {
		if t.rec != nil {
			errored++
			sections = append(sections, formatErrorSection(i+1, t))
			continue
		}

		row := ledger.Row{
			Timestamp:    timestamp,
			User:         ev.Submitter,
			ClientName:   ev.ClientName,
			Make:         t.item.Make,
			Model:        t.item.Model,
			SerialNumber: t.item.SerialNumber,
			PartNumber:   t.item.PartNumber,
			MACAddress:   t.item.MACAddress,
			ImageURL:     t.source,
		}
		if err := c.ledger.Append(ctx, row); err != nil {
			log.Error("ledger append failed", zap.Error(err))
			failed++
			sections = append(sections, formatItemSection(i+1, *t.item, "❌ not saved"))
			continue
		}
		saved++
		sections = append(sections, formatItemSection(i+1, *t.item, "saved"))
	}

	out := Outcome{
		Status:  statusFor(saved, failed, errored),
		Reply:   truncateReply(composeReply(ev.ClientName, sections, saved, failed, errored)),
		Saved:   saved,
		Failed:  failed,
		Errored: errored,
	}
	log.Info("event processed",
		zap.Int("saved", saved), zap.Int("failed", failed), zap.Int("errored", errored))
	return out
}

// ImageAttachments filters an event's attachments down to the ones the
// pipeline will process.
func ImageAttachments(atts []Attachment) []Attachment {
	var images []Attachment
	for _, att := range atts {
		if strings.HasPrefix(att.ContentType, "image/") {
			images = append(images, att)
		}
	}
	return images
}

func (c *Coordinator) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func statusFor(saved, failed, errored int) Status {
	switch {
	case saved > 0 && failed == 0 && errored == 0:
		return StatusSuccess
	case saved > 0:
		return StatusPartial
	default:
		return StatusFailure
	}
}

func formatItemSection(n int, it device.Item, note string) string {
	return fmt.Sprintf(
		"**Item %d** (%s)\n**Make:** `%s`\n**Model:** `%s`\n**Serial:** `%s`\n**Part No.:** `%s`\n**MAC Address:** `%s`",
		n, note, it.Make, it.Model, it.SerialNumber, it.PartNumber, it.MACAddress)
}

func formatErrorSection(n int, t tagged) string {
	s := fmt.Sprintf("**Item %d** (error)\n❌ %s", n, t.rec.Reason)
	if t.rec.Snippet != "" {
		s += fmt.Sprintf("\n```%s```", t.rec.Snippet)
	}
	return s
}

func composeReply(clientName string, sections []string, saved, failed, errored int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Client:** %s\n------------------------------------\n", clientName)
	b.WriteString(strings.Join(sections, "\n------------------------------------\n"))
	b.WriteString("\n------------------------------------\n")
	fmt.Fprintf(&b, "Saved %d item(s)", saved)
	if failed > 0 {
		fmt.Fprintf(&b, ", %d save failure(s)", failed)
	}
	if errored > 0 {
		fmt.Fprintf(&b, ", %d error(s)", errored)
	}
	b.WriteString(".")
	return b.String()
}

// truncateReply cuts the reply to the host surface's message ceiling,
// marking the cut.
func truncateReply(s string) string {
	runes := []rune(s)
	if len(runes) <= maxReplyLen {
		return s
	}
	marker := []rune(truncationMarker)
	return string(runes[:maxReplyLen-len(marker)]) + truncationMarker
}
