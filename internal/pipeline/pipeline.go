// Package pipeline runs one image through inference, extraction, and
// reconciliation.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"stocktake/internal/device"
	"stocktake/internal/extract"
	"stocktake/internal/reconcile"
	"stocktake/internal/vision"
)

// errDetailLimit caps how much of an inference failure message is carried
// into the user-facing error record.
const errDetailLimit = 200

// Orchestrator composes the opaque inference call with the extraction parser
// and the field reconciler.
type Orchestrator struct {
	analyzer   vision.Analyzer
	reconciler *reconcile.Reconciler
	log        *zap.Logger
}

// New builds an Orchestrator.
func New(analyzer vision.Analyzer, reconciler *reconcile.Reconciler, log *zap.Logger) *Orchestrator {
	return &Orchestrator{analyzer: analyzer, reconciler: reconciler, log: log}
}

// ProcessImage turns one image's bytes into reconciled items, preserving the
// model's item order. Every failure mode — no bytes, inference error,
// unparseable output — comes back as an error record; nothing is retried and
// nothing escapes as an error value.
func (o *Orchestrator) ProcessImage(ctx context.Context, image []byte, clientName string) device.Result {
	if len(image) == 0 {
		return device.Result{Err: &device.ErrorRecord{Reason: "no image data available"}}
	}

	text, err := o.analyzer.Analyze(ctx, image, clientName)
	if err != nil {
		o.log.Warn("vision analysis failed", zap.Error(err))
		return device.Result{Err: &device.ErrorRecord{
			Reason: "vision analysis failed: " + truncate(err.Error(), errDetailLimit),
		}}
	}

	raws, errRec := extract.Parse(text)
	if errRec != nil {
		o.log.Warn("model output not parseable", zap.String("reason", errRec.Reason))
		return device.Result{Err: errRec}
	}

	items := make([]device.Item, 0, len(raws))
	for _, raw := range raws {
		items = append(items, o.reconciler.Reconcile(ctx, raw))
	}
	o.log.Info("image processed", zap.Int("items", len(items)))
	return device.Result{Items: items}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
